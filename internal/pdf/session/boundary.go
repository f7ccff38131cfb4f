package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/security"
)

// Source supplies the document bytes.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Name identifies the document, used for the submitted file name.
	Name() string
}

// FileSource reads a document from the configured directory.
type FileSource struct {
	Path      string
	Validator *security.PathValidator
	MaxSize   int64
}

// Fetch validates the path and reads the file.
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapError(errors.ErrorTypeDocumentLoad, err)
	}
	path := s.Path
	if s.Validator != nil {
		resolved, err := s.Validator.ValidateDocument(s.Path, s.MaxSize)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrorTypeDocumentLoad, err, "security validation failed").WithContext(s.Path)
		}
		path = resolved
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrorTypeDocumentLoad, err, "cannot read document").WithContext(s.Path)
	}
	if s.MaxSize > 0 && int64(len(data)) > s.MaxSize {
		return nil, errors.NewPDFErrorWithContext(errors.ErrorTypeDocumentLoad,
			fmt.Sprintf("document exceeds %d bytes", s.MaxSize), s.Path)
	}
	return data, nil
}

// Name returns the file name without its extension.
func (s FileSource) Name() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BytesSource serves a document already in memory.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Fetch(context.Context) ([]byte, error) {
	if len(s.Data) == 0 {
		return nil, errors.NewPDFError(errors.ErrorTypeDocumentLoad, "document is empty")
	}
	return s.Data, nil
}

func (s BytesSource) Name() string {
	if s.Label == "" {
		return "document"
	}
	return s.Label
}

// Submission is a completed document and its status summary.
type Submission struct {
	Name     string
	Document []byte
	Summary  Summary
}

// Submitter receives completed documents. It returns where the document
// went.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (string, error)
}

// FileSubmitter writes <name>.signed.pdf into Dir.
type FileSubmitter struct {
	Dir string
}

const filePerm = 0o640

func (s FileSubmitter) Submit(ctx context.Context, sub Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}
	name := sanitizeName(sub.Name)
	path := filepath.Join(s.Dir, name+".signed.pdf")

	tmp, err := os.CreateTemp(s.Dir, "."+name+"-*.pdf")
	if err != nil {
		return "", fmt.Errorf("cannot create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sub.Document); err != nil {
		tmp.Close()
		return "", fmt.Errorf("cannot write output file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("cannot move output file into place: %w", err)
	}
	return path, nil
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0, ':':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" {
		return "document"
	}
	return name
}
