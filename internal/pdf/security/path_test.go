package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator("/non/existent/path")
	require.NoError(t, err)
	assert.Equal(t, "/non/existent/path", v.Root())
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	v, err := NewPathValidator(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative", "doc.pdf", filepath.Join(root, "doc.pdf"), false},
		{"nested", "sub/doc.pdf", filepath.Join(root, "sub", "doc.pdf"), false},
		{"absolute inside", filepath.Join(root, "sub", "..", "doc.pdf"), filepath.Join(root, "doc.pdf"), false},
		{"root itself", root, root, false},
		{"traversal", "../escape.pdf", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"sibling prefix", root + "-other/doc.pdf", "", true},
		{"nul byte", "doc\x00.pdf", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsEscapingSymlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("%PDF-1.4"), 0o644))

	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	v, err := NewPathValidator(root)
	require.NoError(t, err)
	assert.Error(t, v.ValidatePath("link.pdf"))
}

func TestValidateDocument(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.pdf"), make([]byte, 100), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))

	v, err := NewPathValidator(root)
	require.NoError(t, err)

	got, err := v.ValidateDocument("a.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a.pdf"), got)

	_, err = v.ValidateDocument("a.pdf", 50)
	assert.Error(t, err)
	_, err = v.ValidateDocument("dir", 0)
	assert.Error(t, err)
	_, err = v.ValidateDocument("missing.pdf", 0)
	assert.Error(t, err)
}
