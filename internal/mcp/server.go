package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/docslice/docslice/internal/config"
	"github.com/docslice/docslice/internal/descriptions"
	"github.com/docslice/docslice/internal/layout"
	"github.com/docslice/docslice/internal/pdfio"
	"github.com/docslice/docslice/internal/pipeline"
	"github.com/docslice/docslice/internal/vision"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	caller    vision.Caller
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance. The caller is the vision
// model client every analysis run goes through.
func NewServer(cfg *config.Config, caller vision.Caller) (*Server, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		caller:    caller,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Register layout analysis tool
	analyzeLayoutTool := mcp.NewTool(
		"pdf_analyze_layout",
		mcp.WithDescription("Analyze a PDF's page layouts and return elements and ordered content slices as JSON"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("rasters",
			mcp.Required(),
			mcp.Description("Printf-style pattern locating rendered page images, e.g. out/page-%d.png"),
		),
	)
	s.mcpServer.AddTool(analyzeLayoutTool, s.handlePDFAnalyzeLayout)

	// Register slice extraction tool
	sliceFileTool := mcp.NewTool(
		"pdf_slice_file",
		mcp.WithDescription("Analyze a PDF's layout and write each kept slice as a cropped PNG image"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("rasters",
			mcp.Required(),
			mcp.Description("Printf-style pattern locating rendered page images, e.g. out/page-%d.png"),
		),
		mcp.WithString("output",
			mcp.Description("Directory to write slice images into (created if missing, defaults to 'slices' under the PDF directory)"),
		),
	)
	s.mcpServer.AddTool(sliceFileTool, s.handlePDFSliceFile)

	// Register layout summary tool
	layoutSummaryTool := mcp.NewTool(
		"pdf_layout_summary",
		mcp.WithDescription("Get a compact per-page layout report for a PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("rasters",
			mcp.Required(),
			mcp.Description("Printf-style pattern locating rendered page images, e.g. out/page-%d.png"),
		),
	)
	s.mcpServer.AddTool(layoutSummaryTool, s.handlePDFLayoutSummary)

	// Register PDF validate file tool
	validateFileTool := mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription("Validate if a file is a readable PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(validateFileTool, s.handlePDFValidateFile)

	// Register server info tool
	serverInfoTool := mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription("Get server information, available tools, active configuration, and usage guidance"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handlePDFServerInfo)
}

// Handler functions
func (s *Server) handlePDFAnalyzeLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, rasters, errResult := s.requireAnalysisArgs(request)
	if errResult != nil {
		return errResult, nil
	}

	summary, _, err := s.analyzeDocument(ctx, path, rasters)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := sonic.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handlePDFSliceFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, rasters, errResult := s.requireAnalysisArgs(request)
	if errResult != nil {
		return errResult, nil
	}

	args := request.GetArguments()
	output := filepath.Join(s.config.PDFDirectory, "slices")
	if dir, ok := args["output"].(string); ok && dir != "" {
		output = s.resolvePath(dir)
	}

	summary, result, err := s.analyzeDocument(ctx, path, rasters)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	written, warnings, err := s.writeSliceImages(result, rasters, output)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Sliced PDF: %s\n", path)
	responseText += fmt.Sprintf("Output directory: %s\n", output)
	responseText += fmt.Sprintf("Slice images written: %d\n", written)
	responseText += fmt.Sprintf("Slices dropped by size filter: %d\n", len(summary.Dropped))
	for _, w := range warnings {
		responseText += fmt.Sprintf("Warning: %s\n", w)
	}
	responseText += "\n" + s.formatLayoutSummary(summary)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFLayoutSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, rasters, errResult := s.requireAnalysisArgs(request)
	if errResult != nil {
		return errResult, nil
	}

	summary, _, err := s.analyzeDocument(ctx, path, rasters)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatLayoutSummary(summary)), nil
}

func (s *Server) handlePDFValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path = s.resolvePath(path)

	doc, err := pdfio.Open(path, s.config.MaxFileSize)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("PDF validation failed for %s: %v", path, err)), nil
	}
	defer doc.Close()

	responseText := fmt.Sprintf("PDF file %s is valid and readable\n", path)
	responseText += fmt.Sprintf("Pages: %d\n", doc.PageCount())
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// requireAnalysisArgs pulls the path and raster pattern every analysis tool
// shares, resolving both against the configured PDF directory.
func (s *Server) requireAnalysisArgs(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	path, err := request.RequireString("path")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	rasters, err := request.RequireString("rasters")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return s.resolvePath(path), s.resolvePath(rasters), nil
}

func (s *Server) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.config.PDFDirectory, path)
}

// analyzeDocument runs the full pipeline over one document.
func (s *Server) analyzeDocument(ctx context.Context, path, rasters string) (pipeline.Summary, *pipeline.DocumentResult, error) {
	doc, err := pdfio.Open(path, s.config.MaxFileSize)
	if err != nil {
		return pipeline.Summary{}, nil, err
	}
	defer doc.Close()

	src := pipeline.NewFileSource(doc, rasters, s.config.DPI)
	orchestrator := pipeline.New(s.caller, pipeline.ConfigFrom(s.config))

	result, err := orchestrator.Run(ctx, src, nil)
	if err != nil {
		return pipeline.Summary{}, nil, err
	}
	return pipeline.Summarize(path, result), result, nil
}

// writeSliceImages crops every kept slice out of its page raster and writes
// it as a PNG. A page whose raster cannot be reloaded is reported as a
// warning rather than failing the whole export.
func (s *Server) writeSliceImages(result *pipeline.DocumentResult, rasters, output string) (int, []string, error) {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return 0, nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := 0
	var warnings []string
	for _, page := range result.Pages {
		if page.Outcome == pipeline.OutcomeFailed || len(page.Slices) == 0 {
			continue
		}

		img, err := pdfio.LoadPageImage(fmt.Sprintf(rasters, page.PageNumber))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: raster unavailable: %v", page.PageNumber, err))
			continue
		}

		for _, slice := range page.Slices {
			crop, err := pdfio.CropSlice(img, slice.BBox)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("page %d slice %d: %v", page.PageNumber, slice.OrderIndex, err))
				continue
			}
			data, err := pdfio.EncodePNG(crop)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("page %d slice %d: %v", page.PageNumber, slice.OrderIndex, err))
				continue
			}
			name := fmt.Sprintf("page_%d_slice_%d.png", page.PageNumber, slice.OrderIndex)
			if err := os.WriteFile(filepath.Join(output, name), data, 0o644); err != nil {
				return written, warnings, fmt.Errorf("failed to write %s: %w", name, err)
			}
			written++
		}
	}
	return written, warnings, nil
}

// Formatting methods
func (s *Server) formatLayoutSummary(summary pipeline.Summary) string {
	text := "PDF Layout Summary\n"
	text += fmt.Sprintf("File: %s\n", summary.Path)
	text += fmt.Sprintf("Pages: %d\n", summary.PageCount)
	text += fmt.Sprintf("Processed: %d (success: %d, degraded: %d, failed: %d)\n",
		summary.Status.Completed, summary.Status.Success, summary.Status.Degraded, summary.Status.Failed)

	text += "\nLayout distribution:\n"
	for _, lt := range []struct {
		label string
		key   layout.LayoutType
	}{
		{"Single column", layout.LayoutSingle},
		{"Double column", layout.LayoutDouble},
		{"Mixed", layout.LayoutMixed},
	} {
		text += fmt.Sprintf("  %s: %d\n", lt.label, summary.LayoutCounts[lt.key])
	}

	text += "\nPages:\n"
	for _, page := range summary.Pages {
		text += fmt.Sprintf("  Page %d: %s layout, %d band(s), %d element(s), %d slice(s)",
			page.PageNumber, page.Layout, page.Bands, page.Elements, page.Slices)
		if page.Dropped > 0 {
			text += fmt.Sprintf(", %d dropped", page.Dropped)
		}
		text += fmt.Sprintf(" [%s]", page.Outcome)
		if page.Failure != "" {
			text += fmt.Sprintf("\n    Failure: %s", page.Failure)
		}
		text += "\n"
	}

	return text
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", s.config.PDFDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n\n", s.config.MaxFileSize/(1024*1024))

	text += "🔬 Analysis Configuration:\n"
	text += fmt.Sprintf("  Model: %s\n", s.config.ModelID)
	text += fmt.Sprintf("  Endpoint: %s\n", s.config.ModelEndpoint)
	text += fmt.Sprintf("  Workers: %d\n", s.config.Workers)
	text += fmt.Sprintf("  Retries: %d attempt(s), %s apart\n", s.config.RetryAttempts, s.config.RetryDelay)
	text += fmt.Sprintf("  Raster DPI: %.0f\n", s.config.DPI)
	text += fmt.Sprintf("  Snap tolerance: %.0f px\n", s.config.SnapTolerance)
	text += fmt.Sprintf("  Minimum slice size: %.0f px\n", s.config.SliceMinSize)
	text += fmt.Sprintf("  Table pre-check: %t\n\n", s.config.TablePrecheck)

	text += "🛠️  Available Tools:\n"
	for _, name := range []string{
		"pdf_analyze_layout",
		"pdf_slice_file",
		"pdf_layout_summary",
		"pdf_validate_file",
		"pdf_server_info",
	} {
		text += fmt.Sprintf("\n• %s\n", name)
		text += fmt.Sprintf("  %s\n", firstLine(descriptions.GetToolDescription(name)))
	}

	text += "\n💡 Usage: render page rasters first, then point the analysis tools at the PDF and the raster pattern.\n"
	return text
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting layout analysis MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// For now, we'll just use stdio mode since the mark3labs library
	// handles the transport differently
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
