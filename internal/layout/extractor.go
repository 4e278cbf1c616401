package layout

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/docslice/docslice/internal/geometry"
	"github.com/docslice/docslice/internal/vision"
)

// ParseOutcome tags how the model response was turned into elements.
type ParseOutcome int

const (
	// ParseFailed means the response yielded no usable JSON even after
	// repair. The page proceeds with zero model elements.
	ParseFailed ParseOutcome = iota
	// ParseStrict means the response parsed cleanly.
	ParseStrict
	// ParseRepaired means the response was truncated to the last complete
	// record before it parsed.
	ParseRepaired
)

// String returns the outcome's wire name.
func (o ParseOutcome) String() string {
	switch o {
	case ParseStrict:
		return "parsed"
	case ParseRepaired:
		return "repaired"
	default:
		return "failed"
	}
}

// ParseResult is the tagged outcome of one extraction: the elements (empty
// on failure) plus how they were obtained. Raw response text is never
// trusted beyond this boundary.
type ParseResult struct {
	Outcome  ParseOutcome `json:"outcome"`
	Elements []Element    `json:"elements"`
	Reason   string       `json:"reason,omitempty"`
}

// Pixel budget for the model input image. The endpoint resizes images to a
// pixel count within this window, with both dimensions rounded to multiples
// of 28; reported coordinates are relative to that resized input.
const (
	resizeFactor     = 28
	defaultMinPixels = 512 * 28 * 28
	defaultMaxPixels = 2048 * 28 * 28
)

// elementRecordSchema validates one model-reported element record before it
// is trusted. Records failing validation are skipped individually.
const elementRecordSchema = `{
	"type": "object",
	"properties": {
		"bbox_2d": {
			"type": "array",
			"items": {"type": "number"},
			"minItems": 4,
			"maxItems": 4
		},
		"type": {"type": "string"},
		"label": {"type": "string"},
		"confidence": {"type": "number"}
	},
	"required": ["bbox_2d"]
}`

// ExtractorConfig configures the element extractor.
type ExtractorConfig struct {
	MinPixels     int     // Lower bound of the model input pixel budget
	MaxPixels     int     // Upper bound of the model input pixel budget
	TablePrecheck bool    // Ask a cheap yes/no table question before trusting table boxes
	BlockOverlap  float64 // Overlap ratio above which a text block duplicates a table
	ImageOverlap  float64 // Overlap ratio above which two images are duplicates
}

// DefaultExtractorConfig returns the extractor defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MinPixels:     defaultMinPixels,
		MaxPixels:     defaultMaxPixels,
		TablePrecheck: false,
		BlockOverlap:  0.3,
		ImageOverlap:  0.8,
	}
}

// Extractor turns one page image and a vision-model response into a
// normalized list of typed elements. It makes one outbound model call per
// page (two when the table pre-check is enabled).
type Extractor struct {
	caller vision.Caller
	config ExtractorConfig
	schema *jsonschema.Schema
}

// NewExtractor creates an element extractor using the given model caller.
func NewExtractor(caller vision.Caller, config ExtractorConfig) *Extractor {
	if config.MinPixels <= 0 {
		config.MinPixels = defaultMinPixels
	}
	if config.MaxPixels <= 0 {
		config.MaxPixels = defaultMaxPixels
	}
	return &Extractor{
		caller: caller,
		config: config,
		schema: jsonschema.MustCompileString("element-record.json", elementRecordSchema),
	}
}

// Extract calls the vision model for the page image and parses the response
// into elements in page pixel coordinates. A non-nil error means the model
// call itself failed (after any retry wrapping); parse problems are reported
// through the result's outcome instead and never fail the page.
func (e *Extractor) Extract(ctx context.Context, imagePNG []byte, imageWidth, imageHeight, pageIndex int) (ParseResult, error) {
	response, err := e.caller.Call(ctx, imagePNG, vision.ElementPrompt)
	if err != nil {
		return ParseResult{Outcome: ParseFailed, Reason: err.Error()}, err
	}

	result := e.Parse(response, imageWidth, imageHeight, pageIndex)

	if e.config.TablePrecheck && containsKind(result.Elements, KindTable) {
		hasTables, checkErr := e.HasTables(ctx, imagePNG)
		if checkErr == nil && !hasTables {
			// The cheap question disagrees with the detailed detection;
			// treat the table boxes as misclassified text.
			for i := range result.Elements {
				if result.Elements[i].Kind == KindTable {
					result.Elements[i].Kind = KindText
				}
			}
		}
	}

	return result, nil
}

// HasTables asks the model the cheap yes/no table question.
func (e *Extractor) HasTables(ctx context.Context, imagePNG []byte) (bool, error) {
	answer, err := e.caller.Call(ctx, imagePNG, vision.TableCheckPrompt)
	if err != nil {
		return false, err
	}
	lower := strings.ToLower(strings.TrimSpace(answer))
	return strings.Contains(lower, "yes") || strings.Contains(answer, "是"), nil
}

// Parse converts raw model response text into elements. Exported separately
// so responses can be re-parsed without another model call.
func (e *Extractor) Parse(response string, imageWidth, imageHeight, pageIndex int) ParseResult {
	raw, outcome, reason := extractJSONArray(response)
	if outcome == ParseFailed {
		return ParseResult{Outcome: ParseFailed, Reason: reason}
	}

	var records []map[string]any
	if err := sonic.Unmarshal([]byte(raw), &records); err != nil {
		return ParseResult{Outcome: ParseFailed, Reason: fmt.Sprintf("decode failed after repair: %v", err)}
	}

	inputHeight, inputWidth := smartResize(imageHeight, imageWidth, e.config.MinPixels, e.config.MaxPixels)
	scaleX := float64(imageWidth) / float64(inputWidth)
	scaleY := float64(imageHeight) / float64(inputHeight)

	elements := make([]Element, 0, len(records))
	for i, record := range records {
		if err := e.schema.Validate(record); err != nil {
			continue
		}
		elem, ok := e.recordToElement(record, i, pageIndex, scaleX, scaleY, float64(imageWidth), float64(imageHeight))
		if !ok {
			continue
		}
		elements = append(elements, elem)
	}

	elements = DeduplicateElements(elements, e.config.BlockOverlap, e.config.ImageOverlap)

	return ParseResult{Outcome: outcome, Elements: elements}
}

// recordToElement converts one validated record into a clamped element in
// page pixel space.
func (e *Extractor) recordToElement(record map[string]any, index, pageIndex int,
	scaleX, scaleY, pageWidth, pageHeight float64,
) (Element, bool) {
	coords, ok := record["bbox_2d"].([]any)
	if !ok || len(coords) != 4 {
		return Element{}, false
	}
	vals := make([]float64, 4)
	for i, c := range coords {
		f, ok := c.(float64)
		if !ok {
			return Element{}, false
		}
		vals[i] = f
	}

	bbox := geometry.NewRect(vals[0]*scaleX, vals[1]*scaleY, vals[2]*scaleX, vals[3]*scaleY)

	kind := KindText
	if typeName, ok := record["type"].(string); ok {
		kind = KindFromModelType(typeName)
	}

	elem, err := NewElement(fmt.Sprintf("p%d-e%d", pageIndex, index), kind, bbox, SourceModel, pageWidth, pageHeight)
	if err != nil {
		return Element{}, false
	}
	if label, ok := record["label"].(string); ok {
		elem.Label = label
	}
	if confidence, ok := record["confidence"].(float64); ok {
		elem.Confidence = confidence
	}
	return elem, true
}

// extractJSONArray locates the JSON array inside free-form response text,
// stripping code fences, and repairs a truncated array by cutting back to
// the last complete record and closing the bracket.
func extractJSONArray(response string) (raw string, outcome ParseOutcome, reason string) {
	text := stripFences(response)

	start := strings.Index(text, "[")
	if start < 0 {
		return "", ParseFailed, "response contains no JSON array"
	}
	text = text[start:]

	end := strings.LastIndex(text, "]")
	if end >= 0 {
		candidate := text[:end+1]
		if sonic.Valid([]byte(candidate)) {
			return candidate, ParseStrict, ""
		}
	}

	// Truncated or trailing-garbage response: cut back record by record
	// until the array parses.
	body := text
	for {
		brace := strings.LastIndex(body, "}")
		if brace < 0 {
			return "", ParseFailed, "no complete record found in response"
		}
		candidate := body[:brace+1] + "]"
		if sonic.Valid([]byte(candidate)) {
			return candidate, ParseRepaired, ""
		}
		body = body[:brace]
	}
}

// stripFences removes markdown code fence delimiters around the payload.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```JSON", "```"} {
		text = strings.ReplaceAll(text, fence, "")
	}
	return strings.TrimSpace(text)
}

// smartResize mirrors the endpoint's input scaling: both dimensions rounded
// to multiples of 28, total pixels clamped into [minPixels, maxPixels].
func smartResize(height, width, minPixels, maxPixels int) (inputHeight, inputWidth int) {
	roundTo := func(v float64) int {
		n := int(math.Round(v/resizeFactor)) * resizeFactor
		if n < resizeFactor {
			n = resizeFactor
		}
		return n
	}
	floorTo := func(v float64) int {
		n := int(math.Floor(v/resizeFactor)) * resizeFactor
		if n < resizeFactor {
			n = resizeFactor
		}
		return n
	}
	ceilTo := func(v float64) int {
		return int(math.Ceil(v/resizeFactor)) * resizeFactor
	}

	h, w := float64(height), float64(width)
	hBar, wBar := roundTo(h), roundTo(w)

	if hBar*wBar > maxPixels {
		beta := math.Sqrt(h * w / float64(maxPixels))
		hBar = floorTo(h / beta)
		wBar = floorTo(w / beta)
	} else if hBar*wBar < minPixels {
		beta := math.Sqrt(float64(minPixels) / (h * w))
		hBar = ceilTo(h * beta)
		wBar = ceilTo(w * beta)
	}
	return hBar, wBar
}

func containsKind(elements []Element, kind Kind) bool {
	for _, e := range elements {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
