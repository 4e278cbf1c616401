package pipeline

import (
	"github.com/docslice/docslice/internal/geometry"
	"github.com/docslice/docslice/internal/layout"
)

// SliceRecord is one retained slice in the document summary.
type SliceRecord struct {
	PageNumber int               `json:"page_number"`
	OrderIndex int               `json:"order_index"`
	BBox       geometry.Rect     `json:"bbox"`
	Region     layout.ColumnKind `json:"region"`
}

// DroppedRecord is one filtered-out slice with the reason it was dropped.
type DroppedRecord struct {
	SliceRecord
	Reason string `json:"reason"`
}

// PageSummary condenses one page's result for the summary artifact.
type PageSummary struct {
	PageNumber int                 `json:"page_number"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Outcome    PageOutcome         `json:"outcome"`
	Layout     layout.LayoutType   `json:"layout"`
	Bands      int                 `json:"bands"`
	Elements   int                 `json:"elements"`
	Slices     int                 `json:"slices"`
	Dropped    int                 `json:"dropped"`
	Discarded  int                 `json:"discarded"`
	Parse      layout.ParseOutcome `json:"parse"`
	Failure    string              `json:"failure,omitempty"`
}

// Summary is the document-level slice-info artifact: what was sliced, what
// was dropped and why, and the layout distribution across pages. This is
// the payload serving layers and the one-shot CLI emit.
type Summary struct {
	Path         string                    `json:"path"`
	PageCount    int                       `json:"page_count"`
	LayoutCounts map[layout.LayoutType]int `json:"layout_counts"`
	Pages        []PageSummary             `json:"pages"`
	Slices       []SliceRecord             `json:"slices"`
	Dropped      []DroppedRecord           `json:"dropped"`
	Status       DocumentStatus            `json:"status"`
}

// Summarize builds the summary artifact from a completed run.
func Summarize(path string, result *DocumentResult) Summary {
	summary := Summary{
		Path:         path,
		PageCount:    len(result.Pages),
		LayoutCounts: make(map[layout.LayoutType]int),
		Status:       result.Status,
	}

	for _, page := range result.Pages {
		ps := PageSummary{
			PageNumber: page.PageNumber,
			Width:      page.Width,
			Height:     page.Height,
			Outcome:    page.Outcome,
			Layout:     page.Layout.Type,
			Bands:      len(page.Layout.Bands),
			Elements:   len(page.Elements),
			Slices:     len(page.Slices),
			Dropped:    len(page.Dropped),
			Discarded:  page.Discarded,
			Parse:      page.ParseOutcome,
		}
		if page.Failure != nil {
			ps.Failure = page.Failure.Error()
		}
		summary.Pages = append(summary.Pages, ps)

		if page.Outcome != OutcomeFailed {
			summary.LayoutCounts[page.Layout.Type]++
		}

		for _, s := range page.Slices {
			summary.Slices = append(summary.Slices, SliceRecord{
				PageNumber: s.PageIndex,
				OrderIndex: s.OrderIndex,
				BBox:       s.BBox,
				Region:     s.Region,
			})
		}
		for _, s := range page.Dropped {
			summary.Dropped = append(summary.Dropped, DroppedRecord{
				SliceRecord: SliceRecord{
					PageNumber: s.PageIndex,
					OrderIndex: s.OrderIndex,
					BBox:       s.BBox,
					Region:     s.Region,
				},
				Reason: "below minimum slice size",
			})
		}
	}
	return summary
}
