package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/a3tai/mcp-pdf-signer/internal/config"
)

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version, buildTime, gitCommit = "1.2.3", "2023-12-01_10:30:00", "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	var buf bytes.Buffer
	printVersion(&buf)

	out := buf.String()
	for _, want := range []string{
		"MCP PDF Signer",
		"Version: 1.2.3",
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with: go",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSetupLogging(t *testing.T) {
	oldOutput, oldFlags := log.Writer(), log.Flags()
	defer func() {
		log.SetOutput(oldOutput)
		log.SetFlags(oldFlags)
	}()

	tests := []struct {
		name     string
		mode     string
		logLevel string
		want     io.Writer
	}{
		{"stdio is silent by default", config.ModeStdio, "info", io.Discard},
		{"stdio debug logs to stderr", config.ModeStdio, "debug", os.Stderr},
		{"server logs to stderr", config.ModeServer, "info", os.Stderr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Mode, cfg.LogLevel = tt.mode, tt.logLevel
			setupLogging(cfg)
			assert.Equal(t, tt.want, log.Writer())
		})
	}

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	setupLogging(cfg)
	assert.NotZero(t, log.Flags()&log.Lshortfile)
}
