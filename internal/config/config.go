package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/compositor"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/session"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultScale       = 1.5
	DefaultMaxSessions = 16

	// Directory permissions
	DefaultDirPerm = 0o750
)

// ErrVersionRequested is returned when --version is on the command line.
var ErrVersionRequested = errors.New("version requested")

// VirtualField is a configured signable region without a native widget,
// in PDF points relative to the page's lower left corner.
type VirtualField struct {
	Page        int     `mapstructure:"page"`
	Name        string  `mapstructure:"name"`
	Kind        string  `mapstructure:"kind"`
	X           float64 `mapstructure:"x"`
	Y           float64 `mapstructure:"y"`
	Width       float64 `mapstructure:"width"`
	Height      float64 `mapstructure:"height"`
	Placeholder string  `mapstructure:"placeholder"`
}

// Config holds all configuration for the PDF signing server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	PDFDirectory string
	OutputDir    string
	ConfigFile   string

	// Rendering and hit-target policy
	Scale           float64
	MinCanvasWidth  float64
	MinCanvasHeight float64
	MinFieldWidth   float64
	MinFieldHeight  float64
	PreviewWidthCap float64
	PreviewPadding  float64

	VirtualFields []VirtualField

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
	MaxSessions int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}
	policy := geometry.DefaultPolicy()
	render := compositor.DefaultOptions()

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		PDFDirectory:    currentDir,
		Scale:           DefaultScale,
		MinCanvasWidth:  policy.MinCanvasWidth,
		MinCanvasHeight: policy.MinCanvasHeight,
		MinFieldWidth:   policy.MinFieldWidth,
		MinFieldHeight:  policy.MinFieldHeight,
		PreviewWidthCap: render.PreviewWidthCap,
		PreviewPadding:  render.PreviewPadding,
		Version:         "1.0.0",
		ServerName:      "mcp-pdf-signer",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
		MaxSessions:     DefaultMaxSessions,
	}
}

// LoadFromFlags parses the process command line and environment.
func LoadFromFlags() (*Config, error) {
	return Load(pflag.CommandLine, os.Args[1:])
}

// Load layers defaults, an optional config file, MCP_PDF_* environment
// variables and the flags in args, in increasing priority.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	bindFlagsToViper(v, fs)
	setupUsageMessage(fs)

	if err := checkVersionFlag(args); err != nil {
		return nil, err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", file, err)
		}
	}

	if err := populateConfigFromViper(v, cfg); err != nil {
		return nil, err
	}

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.PDFDirectory, "signed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupViperEnvironment configures environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix("MCP_PDF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("output-dir", cfg.OutputDir)
	v.SetDefault("config", cfg.ConfigFile)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("max-sessions", cfg.MaxSessions)
	v.SetDefault("scale", cfg.Scale)
	v.SetDefault("min-canvas-width", cfg.MinCanvasWidth)
	v.SetDefault("min-canvas-height", cfg.MinCanvasHeight)
	v.SetDefault("min-field-width", cfg.MinFieldWidth)
	v.SetDefault("min-field-height", cfg.MinFieldHeight)
	v.SetDefault("preview-width-cap", cfg.PreviewWidthCap)
	v.SetDefault("preview-padding", cfg.PreviewPadding)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	fs.String("output-dir", "", "Directory completed documents are written to (default <dir>/signed)")
	fs.String("config", "", "Config file (yaml, toml or json), may declare virtual_fields")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Int("max-sessions", cfg.MaxSessions, "Maximum number of open signing sessions")
	fs.Float64("scale", cfg.Scale, "Page render zoom factor")
	fs.Float64("min-canvas-width", cfg.MinCanvasWidth, "Minimum field hit target width in pixels")
	fs.Float64("min-canvas-height", cfg.MinCanvasHeight, "Minimum field hit target height in pixels")
	fs.Float64("min-field-width", cfg.MinFieldWidth, "Minimum field width in points")
	fs.Float64("min-field-height", cfg.MinFieldHeight, "Minimum field height in points")
	fs.Float64("preview-width-cap", cfg.PreviewWidthCap, "Preview growth limit as a multiple of field width")
	fs.Float64("preview-padding", cfg.PreviewPadding, "Padding added to text width in preview, in pixels")
}

var flagNames = []string{
	"mode", "host", "port", "dir", "output-dir", "config", "loglevel", "maxfilesize", "max-sessions",
	"scale", "min-canvas-width", "min-canvas-height", "min-field-width", "min-field-height",
	"preview-width-cap", "preview-padding",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	for _, name := range flagNames {
		_ = v.BindPFlag(name, fs.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(fs *pflag.FlagSet) {
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Signer - A Model Context Protocol server for filling and signing PDF forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs --output-dir=/out   "+
			"# stdio mode with custom directories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/pdfs       # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config=signer.yaml                    # virtual fields from a file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MODE           Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_DIR            PDF directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_OUTPUT_DIR     Output directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_LOGLEVEL       Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MAXFILESIZE    Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_MAX_SESSIONS   Maximum open sessions\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_SCALE          Page render zoom factor\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) error {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) error {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.OutputDir = v.GetString("output-dir")
	cfg.ConfigFile = v.GetString("config")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.MaxSessions = v.GetInt("max-sessions")
	cfg.Scale = v.GetFloat64("scale")
	cfg.MinCanvasWidth = v.GetFloat64("min-canvas-width")
	cfg.MinCanvasHeight = v.GetFloat64("min-canvas-height")
	cfg.MinFieldWidth = v.GetFloat64("min-field-width")
	cfg.MinFieldHeight = v.GetFloat64("min-field-height")
	cfg.PreviewWidthCap = v.GetFloat64("preview-width-cap")
	cfg.PreviewPadding = v.GetFloat64("preview-padding")

	if v.IsSet("virtual_fields") {
		if err := v.UnmarshalKey("virtual_fields", &cfg.VirtualFields); err != nil {
			return fmt.Errorf("invalid virtual_fields: %w", err)
		}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MaxSessions <= 0 {
		return errors.New("maximum sessions must be positive")
	}
	if c.Scale <= 0 {
		return errors.New("scale must be positive")
	}
	if c.MinCanvasWidth < 0 || c.MinCanvasHeight < 0 || c.MinFieldWidth < 0 || c.MinFieldHeight < 0 {
		return errors.New("minimum field sizes cannot be negative")
	}
	if c.PreviewWidthCap < 1 {
		return errors.New("preview width cap must be at least 1")
	}
	if c.PreviewPadding < 0 {
		return errors.New("preview padding cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if _, err := c.Virtual(); err != nil {
		return err
	}
	return nil
}

// Policy returns the hit-target policy.
func (c *Config) Policy() geometry.Policy {
	return geometry.Policy{
		MinCanvasWidth:  c.MinCanvasWidth,
		MinCanvasHeight: c.MinCanvasHeight,
		MinFieldWidth:   c.MinFieldWidth,
		MinFieldHeight:  c.MinFieldHeight,
	}
}

// RenderOptions returns the compositor options.
func (c *Config) RenderOptions() compositor.Options {
	opts := compositor.DefaultOptions()
	opts.PreviewPadding = c.PreviewPadding
	opts.PreviewWidthCap = c.PreviewWidthCap
	return opts
}

// Virtual converts the configured virtual fields. It returns nil when none
// are configured.
func (c *Config) Virtual() (annotation.StaticVirtualFields, error) {
	if len(c.VirtualFields) == 0 {
		return nil, nil
	}
	out := make(annotation.StaticVirtualFields, 0, len(c.VirtualFields))
	for i, vf := range c.VirtualFields {
		kind, err := annotation.ParseKind(vf.Kind)
		if err != nil {
			return nil, fmt.Errorf("virtual field %d: %w", i, err)
		}
		if vf.Page < 0 {
			return nil, fmt.Errorf("virtual field %d: negative page", i)
		}
		if vf.Width <= 0 || vf.Height <= 0 {
			return nil, fmt.Errorf("virtual field %d: width and height must be positive", i)
		}
		out = append(out, annotation.VirtualField{
			Page:        vf.Page,
			Name:        vf.Name,
			Kind:        kind,
			Rect:        geometry.Rect{X: vf.X, Y: vf.Y, Width: vf.Width, Height: vf.Height},
			Placeholder: vf.Placeholder,
		})
	}
	return out, nil
}

// SessionOptions assembles the options for a new signing session.
func (c *Config) SessionOptions(logger *log.Logger) (session.Options, error) {
	virtual, err := c.Virtual()
	if err != nil {
		return session.Options{}, err
	}
	opts := session.Options{
		Scale:  c.Scale,
		Policy: c.Policy(),
		Render: c.RenderOptions(),
		Logger: logger,
	}
	if virtual != nil {
		opts.Virtual = virtual
	}
	return opts, nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDir: %s, LogLevel: %s, "+
		"MaxFileSize: %d, MaxSessions: %d, Scale: %g, VirtualFields: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDir, c.LogLevel,
		c.MaxFileSize, c.MaxSessions, c.Scale, len(c.VirtualFields))
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
