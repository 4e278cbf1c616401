package pipeline

import (
	"sync"

	"github.com/docslice/docslice/internal/faults"
	"github.com/docslice/docslice/internal/layout"
)

// PageState is where a page currently sits in its processing lifecycle.
type PageState string

const (
	StatePending    PageState = "pending"
	StateLoading    PageState = "loading"
	StateExtracting PageState = "extracting"
	StateAnalyzing  PageState = "analyzing"
	StateSlicing    PageState = "slicing"
	StateDone       PageState = "done"
	StateFailed     PageState = "failed"
)

// PageOutcome is the terminal quality of one processed page.
type PageOutcome string

const (
	// OutcomeSuccess means the full pipeline ran with model elements.
	OutcomeSuccess PageOutcome = "success"
	// OutcomeDegraded means the page completed on native primitives only,
	// after the model call or its response parse failed.
	OutcomeDegraded PageOutcome = "degraded"
	// OutcomeFailed means the page produced nothing, typically because its
	// raster could not be loaded.
	OutcomeFailed PageOutcome = "failed"
)

// PageResult is everything one page yields: its layout, its ordered slices,
// the filtered-out slices, and any failure that degraded or killed it.
type PageResult struct {
	PageNumber   int                 `json:"page_number"`
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	Outcome      PageOutcome         `json:"outcome"`
	ParseOutcome layout.ParseOutcome `json:"parse_outcome"`
	Layout       layout.PageLayout   `json:"layout"`
	Elements     []layout.Element    `json:"elements"`
	Slices       []layout.Slice      `json:"slices"`
	Dropped      []layout.Slice      `json:"dropped"`
	Discarded    int                 `json:"discarded"`
	Failure      *faults.Failure     `json:"failure,omitempty"`
}

// DocumentStatus is a point-in-time view of a document run.
type DocumentStatus struct {
	TotalPages int               `json:"total_pages"`
	Completed  int               `json:"completed"`
	Success    int               `json:"success"`
	Degraded   int               `json:"degraded"`
	Failed     int               `json:"failed"`
	States     map[int]PageState `json:"states"`
}

// StatusBoard tracks per-page state for one document run. It is created per
// run, written by the worker pool, and read concurrently by status queries.
type StatusBoard struct {
	mu       sync.Mutex
	total    int
	states   map[int]PageState
	outcomes map[int]PageOutcome
}

// NewStatusBoard creates a board with every page pending.
func NewStatusBoard(totalPages int) *StatusBoard {
	states := make(map[int]PageState, totalPages)
	for n := 1; n <= totalPages; n++ {
		states[n] = StatePending
	}
	return &StatusBoard{
		total:    totalPages,
		states:   states,
		outcomes: make(map[int]PageOutcome, totalPages),
	}
}

// SetState moves a page to a new lifecycle state.
func (b *StatusBoard) SetState(pageNumber int, state PageState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[pageNumber] = state
}

// Record marks a page terminal with its outcome.
func (b *StatusBoard) Record(result PageResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if result.Outcome == OutcomeFailed {
		b.states[result.PageNumber] = StateFailed
	} else {
		b.states[result.PageNumber] = StateDone
	}
	b.outcomes[result.PageNumber] = result.Outcome
}

// Snapshot returns a copy of the current run status.
func (b *StatusBoard) Snapshot() DocumentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := DocumentStatus{
		TotalPages: b.total,
		States:     make(map[int]PageState, len(b.states)),
	}
	for page, state := range b.states {
		status.States[page] = state
	}
	for _, outcome := range b.outcomes {
		status.Completed++
		switch outcome {
		case OutcomeSuccess:
			status.Success++
		case OutcomeDegraded:
			status.Degraded++
		case OutcomeFailed:
			status.Failed++
		}
	}
	return status
}
