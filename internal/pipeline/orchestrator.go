package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docslice/docslice/internal/faults"
	"github.com/docslice/docslice/internal/geometry"
	"github.com/docslice/docslice/internal/layout"
	"github.com/docslice/docslice/internal/vision"
)

// PageInput is everything the pipeline needs for one page: the rendered
// raster, its pixel dimensions, and the page's native primitives.
type PageInput struct {
	PageNumber int
	ImagePNG   []byte
	Width      int
	Height     int
	Lines      []geometry.Line
	Images     []layout.Element
}

// Source supplies page inputs for one document. An error from Page means
// the page raster is unusable and the page fails; the document continues.
type Source interface {
	PageCount() int
	Page(ctx context.Context, pageNumber int) (PageInput, error)
}

// Config bundles the per-stage configuration of a document run.
type Config struct {
	Workers    int
	Retry      vision.RetryPolicy
	Extractor  layout.ExtractorConfig
	Corrector  layout.CorrectorConfig
	Cluster    layout.ClusterConfig
	Classifier layout.ClassifierConfig
	Slicer     layout.SlicerConfig
	Filter     layout.FilterConfig
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		Retry:      vision.DefaultRetryPolicy(),
		Extractor:  layout.DefaultExtractorConfig(),
		Corrector:  layout.DefaultCorrectorConfig(),
		Cluster:    layout.DefaultClusterConfig(),
		Classifier: layout.DefaultClassifierConfig(),
		Slicer:     layout.DefaultSlicerConfig(),
		Filter:     layout.DefaultFilterConfig(),
	}
}

// DocumentResult is the reassembled output of one document run: every page
// in page order plus the final run status.
type DocumentResult struct {
	Pages  []PageResult   `json:"pages"`
	Status DocumentStatus `json:"status"`
}

// Orchestrator fans a document's pages out over a bounded worker pool and
// reassembles the results in page order. Pages are isolated: one page's
// failure never stops its siblings, and the document as a whole fails only
// when no page produces output.
type Orchestrator struct {
	extractor  *layout.Extractor
	corrector  *layout.Corrector
	clusterer  *layout.Clusterer
	classifier *layout.Classifier
	slicer     *layout.Slicer
	config     Config
}

// New creates an orchestrator. The model caller is wrapped with the
// configured retry policy; every stage below sees only the retried caller.
func New(caller vision.Caller, config Config) *Orchestrator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	retried := vision.WithRetry(caller, config.Retry)
	return &Orchestrator{
		extractor:  layout.NewExtractor(retried, config.Extractor),
		corrector:  layout.NewCorrector(config.Corrector),
		clusterer:  layout.NewClusterer(config.Cluster),
		classifier: layout.NewClassifier(config.Classifier),
		slicer:     layout.NewSlicer(config.Slicer),
		config:     config,
	}
}

// Run processes every page of the source. A nil board is allocated
// internally; passing one in lets callers poll live progress. The returned
// error is non-nil only when the run is cancelled or when zero pages
// produce output.
func (o *Orchestrator) Run(ctx context.Context, src Source, board *StatusBoard) (*DocumentResult, error) {
	total := src.PageCount()
	if total == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	if board == nil {
		board = NewStatusBoard(total)
	}

	workers := o.config.Workers
	if workers > total {
		workers = total
	}

	pages := make(chan int)
	results := make([]PageResult, total)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range pages {
				if ctx.Err() != nil {
					results[n-1] = o.cancelledPage(n, ctx.Err())
					board.Record(results[n-1])
					continue
				}
				results[n-1] = o.processPage(ctx, src, n, board)
				board.Record(results[n-1])
			}
		}()
	}

	for n := 1; n <= total; n++ {
		pages <- n
	}
	close(pages)
	wg.Wait()

	result := &DocumentResult{
		Pages:  results,
		Status: board.Snapshot(),
	}
	sort.Slice(result.Pages, func(i, j int) bool {
		return result.Pages[i].PageNumber < result.Pages[j].PageNumber
	})

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("document run aborted: %w", err)
	}
	if result.Status.Failed == total {
		return result, fmt.Errorf("all %d pages failed", total)
	}
	return result, nil
}

// processPage runs the full per-page pipeline. Model-side failures degrade
// the page to native primitives; only an unloadable raster fails it.
func (o *Orchestrator) processPage(ctx context.Context, src Source, pageNumber int, board *StatusBoard) PageResult {
	board.SetState(pageNumber, StateLoading)
	input, err := src.Page(ctx, pageNumber)
	if err != nil {
		return PageResult{
			PageNumber: pageNumber,
			Outcome:    OutcomeFailed,
			Failure:    faults.Wrap(faults.KindImageLoad, pageNumber, err, "page input unavailable"),
		}
	}
	pageWidth, pageHeight := float64(input.Width), float64(input.Height)

	board.SetState(pageNumber, StateExtracting)
	parsed, callErr := o.extractor.Extract(ctx, input.ImagePNG, input.Width, input.Height, pageNumber)

	var failure *faults.Failure
	switch {
	case callErr != nil:
		failure = faults.Wrap(faults.KindModelCall, pageNumber, callErr, "vision model call failed")
	case parsed.Outcome == layout.ParseFailed:
		failure = faults.New(faults.KindResponseParse, pageNumber, "%s", parsed.Reason)
	}

	elements := make([]layout.Element, 0, len(parsed.Elements)+len(input.Images))
	elements = append(elements, parsed.Elements...)
	elements = append(elements, layout.LinesToElements(input.Lines, pageWidth, pageHeight)...)
	elements = append(elements, input.Images...)

	board.SetState(pageNumber, StateAnalyzing)
	corrected, discarded := o.corrector.Correct(elements, input.Lines)
	clustered := o.clusterer.Cluster(corrected)
	pageLayout := o.classifier.Classify(clustered, pageWidth, pageHeight)

	board.SetState(pageNumber, StateSlicing)
	slices := o.slicer.Slice(clustered, pageLayout, pageNumber)
	kept, dropped := layout.FilterSlices(slices, o.config.Filter)

	outcome := OutcomeSuccess
	if failure != nil {
		outcome = OutcomeDegraded
	}
	return PageResult{
		PageNumber:   pageNumber,
		Width:        input.Width,
		Height:       input.Height,
		Outcome:      outcome,
		ParseOutcome: parsed.Outcome,
		Layout:       pageLayout,
		Elements:     clustered,
		Slices:       kept,
		Dropped:      dropped,
		Discarded:    discarded,
		Failure:      failure,
	}
}

func (o *Orchestrator) cancelledPage(pageNumber int, err error) PageResult {
	return PageResult{
		PageNumber: pageNumber,
		Outcome:    OutcomeFailed,
		Failure:    faults.Wrap(faults.KindUnknown, pageNumber, err, "run cancelled before page started"),
	}
}
