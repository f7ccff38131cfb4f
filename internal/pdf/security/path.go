// Package security confines document and output paths to the configured
// directories.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator resolves user supplied paths against a root directory and
// rejects any that escape it, symlinks included.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir. The directory does
// not have to exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path. Relative paths are taken
// relative to the root.
func (v *PathValidator) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains a NUL byte")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	clean := filepath.Clean(path)

	if !within(clean, v.root) {
		return "", fmt.Errorf("path is outside configured directory: %s", path)
	}

	// Symlinks are followed on both sides when they exist.
	realRoot := v.root
	if r, err := filepath.EvalSymlinks(v.root); err == nil {
		realRoot = r
	}
	if real, err := filepath.EvalSymlinks(clean); err == nil {
		if !within(real, realRoot) && !within(real, v.root) {
			return "", fmt.Errorf("path resolves outside configured directory: %s", path)
		}
	}
	return clean, nil
}

// ValidatePath reports whether path stays inside the root.
func (v *PathValidator) ValidatePath(path string) error {
	_, err := v.Resolve(path)
	return err
}

// ValidateDocument resolves path and checks that it names a regular file no
// larger than maxSize bytes. A non-positive maxSize disables the limit.
func (v *PathValidator) ValidateDocument(path string, maxSize int64) (string, error) {
	resolved, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot access document: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", fmt.Errorf("document is %d bytes, limit is %d", info.Size(), maxSize)
	}
	return resolved, nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
