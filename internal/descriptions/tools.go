package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	// Core Layout Tools
	PDFAnalyzeLayoutDescription = `Run the full layout analysis pipeline over a PDF and return per-page layouts, elements, and ordered content slices.

**When to use:** Need to understand how a document's pages are organized (single column, double column, mixed) and where every text block, table, and figure sits before transcription or downstream extraction.

**Why it's useful:** Combines a vision model's element detection with the PDF's own vector lines and image placements, corrects model-reported table borders against real ruling lines, and produces reading-ordered slices that respect column structure.

**Examples:**
• Pre-transcription pass: "Analyze layout of research-paper.pdf to get reading-ordered regions"
• Column detection: "Check whether magazine.pdf pages are single or double column"
• Table localization: "Find corrected table bounding boxes in financial-report.pdf"

**Common workflows:**
1. Transcription Pipeline: Analyze layout → Slice pages → Transcribe each slice in order
2. Document Triage: Analyze → Inspect layout distribution → Route complex pages for review
3. Quality Control: Analyze → Compare element counts across pages → Flag outliers

**Best practices:** Render page rasters first (the "rasters" pattern locates them, e.g. "out/page-%d.png"); pages with unreachable rasters fail individually without stopping the document.`

	PDFSliceFileDescription = `Analyze a PDF's layout and write every kept slice out as a cropped PNG image.

**When to use:** Need physical image crops of each layout region, typically to feed a transcription model one region at a time.

**Why it's useful:** Produces ready-to-use crops in reading order, already filtered of degenerate fragments, so downstream models see one coherent region per image instead of a whole busy page.

**Examples:**
• Transcription prep: "Slice textbook.pdf into region images under ./slices/ for OCR"
• Dataset building: "Crop every table region from reports/ for a table-recognition corpus"
• Review artifacts: "Export slice images from contract.pdf so reviewers can check region boundaries"

**Common workflows:**
1. Region Transcription: Slice file → Send each crop to a transcription model → Reassemble in order index
2. Dataset Curation: Slice documents → Filter by region type → Label and store
3. Visual Debugging: Slice → Eyeball the crops → Tune analysis parameters

**Best practices:** Slices are named page_<page>_slice_<order>.png so lexical order within a page matches reading order; the output directory is created if missing.`

	PDFLayoutSummaryDescription = `Get a compact per-document layout report without slice geometry detail.

**When to use:** Need a quick overview of a document's structure: how many pages, which layout type each page has, and how many slices survived filtering.

**Why it's useful:** Answers "what does this document look like" in one cheap call, without the full element and slice payload of a complete analysis.

**Examples:**
• Corpus survey: "Summarize layout of every PDF in /archive/ to find double-column papers"
• Cost estimation: "Check slice counts in manual.pdf to estimate transcription spend"
• Health check: "Summarize batch output to count degraded and failed pages"

**Common workflows:**
1. Batch Planning: Summarize each file → Sort by slice count → Schedule processing
2. Monitoring: Summarize after runs → Track degraded/failed page rates → Alert on regressions
3. Exploration: Summarize → Pick interesting pages → Run full analysis on those

**Best practices:** Runs the same pipeline as full analysis, so it still needs page rasters and a model key; use it when only the aggregate numbers matter.`

	PDFValidateFileDescription = `Verify PDF file integrity and readability before processing.

**When to use:** Before attempting to analyze any PDF file, especially in automated workflows or when handling user uploads.

**Why it's useful:** Prevents processing errors, identifies corrupted files early, and confirms page geometry can be read before spending model calls on the document.

**Examples:**
• Batch processing safety: "Validate all PDFs in /inbox/ before bulk layout analysis"
• Upload verification: "Check user-uploaded contract.pdf is valid before slicing"
• Quality control: "Verify exported-report.pdf is readable before queuing it"

**Common workflows:**
1. Automated Processing: Validate → Analyze if valid → Handle errors gracefully
2. File Quality Check: Validate → Report issues → Fix or reject bad files
3. Pre-processing Pipeline: Validate → Record page count → Schedule rendering

**Best practices:** Always run this first in automated workflows; it reports page count and per-page dimensions on success.`

	// Utility Tools
	PDFServerInfoDescription = `Get real-time server status, available tools, and current analysis configuration.

**When to use:** Starting work with the server, troubleshooting issues, or checking which model and tuning parameters are active.

**Why it's useful:** Provides a complete overview of server capabilities and the effective configuration so results can be interpreted and reproduced.

**Examples:**
• System check: "Verify the server is ready and a model key is configured before batch processing"
• Troubleshooting: "Check server info to see which model endpoint analysis is using"
• Reproducibility: "Record the active DPI and tolerance settings alongside results"

**Common workflows:**
1. Session Startup: Check server info → Verify configuration → Plan processing approach
2. Debugging: Review server status → Check directory paths → Verify tool availability
3. Tuning: Read current parameters → Adjust flags → Confirm via server info

**Best practices:** Run at the start of sessions; the reported parameters are the ones every subsequent analysis call will use.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"pdf_analyze_layout": PDFAnalyzeLayoutDescription,
	"pdf_slice_file":     PDFSliceFileDescription,
	"pdf_layout_summary": PDFLayoutSummaryDescription,
	"pdf_validate_file":  PDFValidateFileDescription,
	"pdf_server_info":    PDFServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
