package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-signer/internal/config"
	"github.com/a3tai/mcp-pdf-signer/internal/descriptions"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/session"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the MCP server and the open signing sessions
type Server struct {
	config    *config.Config
	sessions  *Registry
	validator *security.PathValidator
	submitter session.Submitter
	logger    *log.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server. A nil submitter writes completed
// documents into the configured output directory.
func NewServer(cfg *config.Config, submitter session.Submitter) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	validator, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF directory: %w", err)
	}
	if submitter == nil {
		submitter = session.FileSubmitter{Dir: cfg.OutputDir}
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		sessions:  NewRegistry(cfg.MaxSessions),
		validator: validator,
		submitter: submitter,
		logger:    log.Default(),
		mcpServer: mcpServer,
	}

	s.registerTools()
	return s, nil
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by sign_open"),
	)
}

func pageArg() mcp.ToolOption {
	return mcp.WithNumber("page",
		mcp.Required(),
		mcp.Description("Zero-based page index"),
	)
}

// registerTools registers all signing tools with the MCP server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("sign_open",
		mcp.WithDescription(descriptions.SignOpenDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF, relative to the PDF directory or absolute inside it"),
		),
	), s.handleSignOpen)

	s.mcpServer.AddTool(mcp.NewTool("sign_fields",
		mcp.WithDescription(descriptions.SignFieldsDescription),
		sessionArg(),
	), s.handleSignFields)

	s.mcpServer.AddTool(mcp.NewTool("sign_set_value",
		mcp.WithDescription(descriptions.SignSetValueDescription),
		sessionArg(),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Field id or field name"),
		),
		mcp.WithString("value",
			mcp.Description("New value; empty clears the field"),
		),
	), s.handleSignSetValue)

	s.mcpServer.AddTool(mcp.NewTool("sign_pointer",
		mcp.WithDescription(descriptions.SignPointerDescription),
		sessionArg(),
		mcp.WithString("event",
			mcp.Required(),
			mcp.Enum(string(session.PointerDown), string(session.PointerMove), string(session.PointerUp)),
			mcp.Description("Pointer event"),
		),
		pageArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Canvas x in pixels")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Canvas y in pixels")),
	), s.handleSignPointer)

	s.mcpServer.AddTool(mcp.NewTool("sign_save_signature",
		mcp.WithDescription(descriptions.SignSaveSignatureDescription),
		sessionArg(),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Signature field id or name"),
		),
		mcp.WithString("image",
			mcp.Required(),
			mcp.Description("Signature image as a data URI or a file path inside the PDF directory"),
		),
	), s.handleSignSaveSignature)

	s.mcpServer.AddTool(mcp.NewTool("sign_place_signature",
		mcp.WithDescription(descriptions.SignPlaceSignatureDescription),
		sessionArg(),
		pageArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Canvas x of the top-left corner")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Canvas y of the top-left corner")),
		mcp.WithNumber("width", mcp.Description("Width in canvas pixels; defaults to the image width")),
		mcp.WithNumber("height", mcp.Description("Height in canvas pixels; defaults to the image height")),
		mcp.WithString("image",
			mcp.Required(),
			mcp.Description("Signature image as a data URI or a file path inside the PDF directory"),
		),
	), s.handleSignPlaceSignature)

	s.mcpServer.AddTool(mcp.NewTool("sign_remove_signature",
		mcp.WithDescription(descriptions.SignRemoveSignatureDescription),
		sessionArg(),
		mcp.WithString("overlay_id",
			mcp.Required(),
			mcp.Description("Id returned by sign_place_signature"),
		),
	), s.handleSignRemoveSignature)

	s.mcpServer.AddTool(mcp.NewTool("sign_preview",
		mcp.WithDescription(descriptions.SignPreviewDescription),
		sessionArg(),
	), s.handleSignPreview)

	s.mcpServer.AddTool(mcp.NewTool("sign_close_editor",
		mcp.WithDescription(descriptions.SignCloseEditorDescription),
		sessionArg(),
	), s.handleSignCloseEditor)

	s.mcpServer.AddTool(mcp.NewTool("sign_render_page",
		mcp.WithDescription(descriptions.SignRenderPageDescription),
		sessionArg(),
		pageArg(),
	), s.handleSignRenderPage)

	s.mcpServer.AddTool(mcp.NewTool("sign_status",
		mcp.WithDescription(descriptions.SignStatusDescription),
		sessionArg(),
	), s.handleSignStatus)

	s.mcpServer.AddTool(mcp.NewTool("sign_complete",
		mcp.WithDescription(descriptions.SignCompleteDescription),
		sessionArg(),
	), s.handleSignComplete)

	s.mcpServer.AddTool(mcp.NewTool("sign_close",
		mcp.WithDescription(descriptions.SignCloseDescription),
		sessionArg(),
	), s.handleSignClose)

	s.mcpServer.AddTool(mcp.NewTool("sign_server_info",
		mcp.WithDescription(descriptions.SignServerInfoDescription),
	), s.handleSignServerInfo)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	defer s.sessions.Clear()
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF signing MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves SSE on the configured address until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}
	return s.serveSSE(ctx, ln)
}

func (s *Server) serveSSE(ctx context.Context, ln net.Listener) error {
	addr := ln.Addr().String()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))
	httpServer := &http.Server{
		Handler:           sse,
		ReadHeaderTimeout: 10 * time.Second,
		// Cancelling ctx ends the long-lived SSE streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	log.Printf("Serving MCP over SSE on http://%s/sse", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve SSE: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		httpServer.Close()
		return fmt.Errorf("failed to shut down SSE server: %w", err)
	}
	log.Printf("SSE server stopped")
	return nil
}
