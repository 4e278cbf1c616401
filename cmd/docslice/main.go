package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/pflag"

	"github.com/docslice/docslice/internal/config"
	"github.com/docslice/docslice/internal/mcp"
	"github.com/docslice/docslice/internal/pdfio"
	"github.com/docslice/docslice/internal/pipeline"
	"github.com/docslice/docslice/internal/vision"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		// Reduce log verbosity in stdio mode unless debug is enabled
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		// In server and analyze modes, use normal stderr logging with more detail
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// newCaller builds the vision model client every analysis run goes through.
func newCaller(cfg *config.Config) (vision.Caller, error) {
	clientConfig := vision.DefaultClientConfig()
	clientConfig.BaseURL = cfg.ModelEndpoint
	clientConfig.APIKey = cfg.ModelKey
	clientConfig.ModelID = cfg.ModelID

	client, err := vision.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("vision model client: %w (set --model-key or DOCSLICE_MODEL_KEY)", err)
	}
	return client, nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

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

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	// In stdio mode, the parent process controls our lifecycle
	// We should exit cleanly when stdin is closed or we get an error

	// Start server and wait for it to complete
	if err := server.Run(ctx); err != nil {
		// Only log to stderr in debug mode to avoid protocol interference
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

// runAnalyzeMode processes one document and prints the layout summary as
// JSON on stdout. Interrupts cancel the run; pages already processed are
// still reported.
func runAnalyzeMode(ctx context.Context, cfg *config.Config, pdfPath, rasterPattern string) {
	caller, err := newCaller(cfg)
	if err != nil {
		log.Fatalf("Failed to create model client: %v", err)
	}

	doc, err := pdfio.Open(pdfPath, cfg.MaxFileSize)
	if err != nil {
		log.Fatalf("Failed to open document: %v", err)
	}
	defer doc.Close()

	src := pipeline.NewFileSource(doc, rasterPattern, cfg.DPI)
	orchestrator := pipeline.New(caller, pipeline.ConfigFrom(cfg))

	result, runErr := orchestrator.Run(ctx, src, nil)
	if result == nil {
		log.Fatalf("Analysis failed: %v", runErr)
	}

	summary := pipeline.Summarize(doc.Path(), result)
	payload, err := sonic.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode summary: %v", err)
	}
	fmt.Println(string(payload))

	if runErr != nil {
		log.Printf("Analysis incomplete: %v", runErr)
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && !cfg.IsStdioMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsAnalyzeMode() {
		args := pflag.Args()
		if len(args) != 2 {
			log.Fatalf("analyze mode takes a PDF path and a raster pattern, e.g. docslice --mode=analyze doc.pdf out/page-%%d.png")
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runAnalyzeMode(ctx, cfg, args[0], args[1])
		return
	}

	// Serving modes need the model client up front
	caller, err := newCaller(cfg)
	if err != nil {
		log.Fatalf("Failed to create model client: %v", err)
	}

	// Create MCP server
	server, err := mcp.NewServer(cfg, caller)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Handle different modes
	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("docslice\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
