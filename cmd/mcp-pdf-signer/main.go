package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-pdf-signer/internal/config"
	"github.com/a3tai/mcp-pdf-signer/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol, so logs go to stderr
		log.SetOutput(os.Stderr)
		// Silence logs in stdio mode unless debug is enabled
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
		return
	}
	// Server mode logs with file and line detail
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) int {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		// Wait for open sessions and SSE streams to close
		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			return 1
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			return 1
		}
	}

	log.Println("Server stopped successfully")
	return 0
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, server *mcp.Server) int {
	// The parent process controls our lifecycle; we exit when stdin closes.
	// Start server and wait for it to complete
	if err := server.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration; --version is reported as ErrVersionRequested
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Create MCP server; completed documents go to the output directory
	server, err := mcp.NewServer(cfg, nil)
	if err != nil {
		log.Printf("Failed to create MCP server: %v", err)
		return 1
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server)
	}
	return runStdioMode(ctx, server)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Signer\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
