package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio   = "stdio"
	ModeServer  = "server"
	ModeAnalyze = "analyze"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	DefaultWorkers       = 4
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
	DefaultDPI           = 300
	DefaultSliceMinSize  = 15
	DefaultClusterWindow = 30
	DefaultClusterCount  = 2
	DefaultBandGap       = 20
	DefaultGroupGap      = 20
	DefaultSnapTolerance = 30

	DefaultModelEndpoint = "https://api-inference.modelscope.cn/v1"
	DefaultModelID       = "Qwen/Qwen2.5-VL-72B-Instruct"
)

// Config holds all configuration for the document slicing service
type Config struct {
	// Server configuration
	Mode string // "stdio", "server" or "analyze"
	Host string
	Port int

	// Document configuration
	PDFDirectory string
	MaxFileSize  int64 // Maximum PDF file size in bytes

	// Vision model configuration
	ModelEndpoint string
	ModelKey      string
	ModelID       string
	RetryAttempts int
	RetryDelay    time.Duration
	TablePrecheck bool

	// Layout analysis tuning
	DPI             float64
	SliceMinSize    float64
	ClusterWindow   float64
	ClusterMinCount int
	MidlineMargin   float64
	BandGap         float64
	GroupGap        float64
	SnapTolerance   float64

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string

	// Worker pool size for page processing
	Workers int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio, // Default to stdio mode for MCP compatibility
		Host:            DefaultHost,
		Port:            DefaultPort,
		PDFDirectory:    currentDir,
		MaxFileSize:     DefaultMaxFileSize,
		ModelEndpoint:   DefaultModelEndpoint,
		ModelID:         DefaultModelID,
		RetryAttempts:   DefaultRetryAttempts,
		RetryDelay:      DefaultRetryDelay,
		DPI:             DefaultDPI,
		SliceMinSize:    DefaultSliceMinSize,
		ClusterWindow:   DefaultClusterWindow,
		ClusterMinCount: DefaultClusterCount,
		MidlineMargin:   0,
		BandGap:         DefaultBandGap,
		GroupGap:        DefaultGroupGap,
		SnapTolerance:   DefaultSnapTolerance,
		Version:         "1.0.0",
		ServerName:      "docslice",
		LogLevel:        DefaultLogLevel,
		Workers:         DefaultWorkers,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("DOCSLICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("model-endpoint", cfg.ModelEndpoint)
	viper.SetDefault("model-key", cfg.ModelKey)
	viper.SetDefault("model-id", cfg.ModelID)
	viper.SetDefault("retry-attempts", cfg.RetryAttempts)
	viper.SetDefault("retry-delay", cfg.RetryDelay)
	viper.SetDefault("table-precheck", cfg.TablePrecheck)
	viper.SetDefault("dpi", cfg.DPI)
	viper.SetDefault("slice-min-size", cfg.SliceMinSize)
	viper.SetDefault("cluster-window", cfg.ClusterWindow)
	viper.SetDefault("cluster-min-count", cfg.ClusterMinCount)
	viper.SetDefault("midline-margin", cfg.MidlineMargin)
	viper.SetDefault("band-gap", cfg.BandGap)
	viper.SetDefault("group-gap", cfg.GroupGap)
	viper.SetDefault("snap-tolerance", cfg.SnapTolerance)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for HTTP server, 'analyze' for one-shot analysis")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Int("workers", cfg.Workers, "Concurrent page workers per document")
	pflag.String("model-endpoint", cfg.ModelEndpoint, "Vision model API base URL")
	pflag.String("model-key", cfg.ModelKey, "Vision model API key")
	pflag.String("model-id", cfg.ModelID, "Vision model identifier")
	pflag.Int("retry-attempts", cfg.RetryAttempts, "Model call attempts before a page degrades")
	pflag.Duration("retry-delay", cfg.RetryDelay, "Fixed delay between model call attempts")
	pflag.Bool("table-precheck", cfg.TablePrecheck, "Ask a cheap yes/no table question before trusting table boxes")
	pflag.Float64("dpi", cfg.DPI, "Working resolution for page pixel coordinates")
	pflag.Float64("slice-min-size", cfg.SliceMinSize, "Minimum slice width/height in pixels")
	pflag.Float64("cluster-window", cfg.ClusterWindow, "Vector-graphic clustering window size in pixels")
	pflag.Int("cluster-min-count", cfg.ClusterMinCount, "Minimum primitives per vector-graphic cluster")
	pflag.Float64("midline-margin", cfg.MidlineMargin, "Margin around the midline before a box counts as crossing")
	pflag.Float64("band-gap", cfg.BandGap, "Vertical gap within which same-kind layout bands merge")
	pflag.Float64("group-gap", cfg.GroupGap, "Vertical whitespace that separates slice groups")
	pflag.Float64("snap-tolerance", cfg.SnapTolerance, "Distance within which table borders snap to ruled lines")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "loglevel", "maxfilesize", "workers",
		"model-endpoint", "model-key", "model-id", "retry-attempts",
		"retry-delay", "table-precheck", "dpi", "slice-min-size",
		"cluster-window", "cluster-min-count", "midline-margin", "band-gap",
		"group-gap", "snap-tolerance",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ndocslice - PDF layout analysis and slicing service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs                     "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # HTTP server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=analyze doc.pdf                   # one-shot slice summary\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DOCSLICE_MODE            Run mode\n")
		fmt.Fprintf(os.Stderr, "  DOCSLICE_HOST            Server host\n")
		fmt.Fprintf(os.Stderr, "  DOCSLICE_PORT            Server port\n")
		fmt.Fprintf(os.Stderr, "  DOCSLICE_DIR             PDF directory\n")
		fmt.Fprintf(os.Stderr, "  DOCSLICE_MODEL_ENDPOINT  Vision model base URL\n")
		fmt.Fprintf(os.Stderr, "  DOCSLICE_MODEL_KEY       Vision model API key\n")
		fmt.Fprintf(os.Stderr, "  DOCSLICE_WORKERS         Concurrent page workers\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Workers = viper.GetInt("workers")
	cfg.ModelEndpoint = viper.GetString("model-endpoint")
	cfg.ModelKey = viper.GetString("model-key")
	cfg.ModelID = viper.GetString("model-id")
	cfg.RetryAttempts = viper.GetInt("retry-attempts")
	cfg.RetryDelay = viper.GetDuration("retry-delay")
	cfg.TablePrecheck = viper.GetBool("table-precheck")
	cfg.DPI = viper.GetFloat64("dpi")
	cfg.SliceMinSize = viper.GetFloat64("slice-min-size")
	cfg.ClusterWindow = viper.GetFloat64("cluster-window")
	cfg.ClusterMinCount = viper.GetInt("cluster-min-count")
	cfg.MidlineMargin = viper.GetFloat64("midline-margin")
	cfg.BandGap = viper.GetFloat64("band-gap")
	cfg.GroupGap = viper.GetFloat64("group-gap")
	cfg.SnapTolerance = viper.GetFloat64("snap-tolerance")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer && c.Mode != ModeAnalyze {
		return errors.New("mode must be one of 'stdio', 'server' or 'analyze'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if info, err := os.Stat(c.PDFDirectory); err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	} else if !info.IsDir() {
		return fmt.Errorf("PDF directory is not a directory: %s", c.PDFDirectory)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.RetryAttempts < 1 {
		return errors.New("retry attempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("retry delay cannot be negative")
	}
	if c.DPI <= 0 {
		return errors.New("dpi must be positive")
	}
	if c.SliceMinSize < 0 {
		return errors.New("slice minimum size cannot be negative")
	}
	if c.ClusterWindow <= 0 {
		return errors.New("cluster window must be positive")
	}
	if c.ClusterMinCount < 2 {
		return errors.New("cluster minimum count must be at least 2")
	}
	if c.SnapTolerance <= 0 {
		return errors.New("snap tolerance must be positive")
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

	return nil
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
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Workers: %d, DPI: %.0f, LogLevel: %s}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.Workers, c.DPI, c.LogLevel)
}

// IsServerMode returns true if running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsAnalyzeMode returns true if running the one-shot analysis mode
func (c *Config) IsAnalyzeMode() bool {
	return c.Mode == ModeAnalyze
}
