package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	return Load(pflag.NewFlagSet("mcp-pdf-signer", pflag.ContinueOnError), args)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t, "--dir="+dir)
	require.NoError(t, err)

	assert.Equal(t, ModeStdio, cfg.Mode)
	assert.Equal(t, dir, cfg.PDFDirectory)
	assert.Equal(t, filepath.Join(dir, "signed"), cfg.OutputDir)
	assert.Equal(t, 1.5, cfg.Scale)
	assert.Empty(t, cfg.VirtualFields)
}

func TestLoadFlags(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	cfg, err := load(t,
		"--dir="+dir,
		"--mode=server", "--host=0.0.0.0", "--port=9090",
		"--loglevel=debug", "--maxfilesize=1024",
		"--output-dir="+out, "--max-sessions=4",
		"--scale=2", "--min-field-width=50", "--preview-width-cap=2.5", "--preview-padding=4",
	)
	require.NoError(t, err)

	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, "0.0.0.0:9090", cfg.Address())
	assert.True(t, cfg.IsDebug())
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, out, cfg.OutputDir)
	assert.Equal(t, 4, cfg.MaxSessions)
	assert.Equal(t, 2.0, cfg.Scale)
	assert.Equal(t, 50.0, cfg.Policy().MinFieldWidth)
	assert.Equal(t, 2.5, cfg.RenderOptions().PreviewWidthCap)
	assert.Equal(t, 4.0, cfg.RenderOptions().PreviewPadding)
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MCP_PDF_DIR", dir)
	t.Setenv("MCP_PDF_MODE", "server")
	t.Setenv("MCP_PDF_PORT", "7070")
	t.Setenv("MCP_PDF_MAX_SESSIONS", "3")
	t.Setenv("MCP_PDF_MIN_CANVAS_WIDTH", "44")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.PDFDirectory)
	assert.Equal(t, ModeServer, cfg.Mode)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 3, cfg.MaxSessions)
	assert.Equal(t, 44.0, cfg.MinCanvasWidth)
}

func TestLoadFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("MCP_PDF_PORT", "7070")
	cfg, err := load(t, "--dir="+t.TempDir(), "--port=9999")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "signer.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
scale: 2
max-sessions: 8
virtual_fields:
  - page: 0
    name: Initials
    kind: signature
    x: 500
    y: 40
    width: 60
    height: 30
  - page: 1
    name: Date
    kind: text
    x: 72
    y: 100
    width: 120
    height: 20
`), 0o644))

	cfg, err := load(t, "--dir="+dir, "--config="+file)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Scale)
	assert.Equal(t, 8, cfg.MaxSessions)
	require.Len(t, cfg.VirtualFields, 2)
	assert.Equal(t, "Initials", cfg.VirtualFields[0].Name)
	assert.Equal(t, 60.0, cfg.VirtualFields[0].Width)

	virtual, err := cfg.Virtual()
	require.NoError(t, err)
	assert.Len(t, virtual.VirtualFields(1), 1)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"invalid mode", []string{"--dir=" + dir, "--mode=invalid"}},
		{"invalid port", []string{"--dir=" + dir, "--mode=server", "--port=0"}},
		{"invalid log level", []string{"--dir=" + dir, "--loglevel=trace"}},
		{"missing config file", []string{"--dir=" + dir, "--config=" + filepath.Join(dir, "none.yaml")}},
		{"unknown flag", []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestLoadVersionFlag(t *testing.T) {
	_, err := load(t, "--version")
	assert.ErrorIs(t, err, ErrVersionRequested)
}
