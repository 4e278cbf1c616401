package layout

import (
	"sort"

	"github.com/docslice/docslice/internal/geometry"
)

// LayoutType labels the column topology of a page.
type LayoutType string

const (
	LayoutSingle LayoutType = "single"
	LayoutDouble LayoutType = "double"
	LayoutMixed  LayoutType = "mixed"
)

// ColumnKind is the column role of one region.
type ColumnKind string

const (
	ColumnSingle ColumnKind = "single"
	ColumnLeft   ColumnKind = "left"
	ColumnRight  ColumnKind = "right"
)

// ColumnRegion is a rectangular region of the page assigned one column role.
type ColumnRegion struct {
	Kind ColumnKind    `json:"kind"`
	BBox geometry.Rect `json:"bbox"`
}

// Band is a horizontal slab of the page that is either single-column or
// double-column throughout. Bands partition the page vertically.
type Band struct {
	Y1     float64 `json:"y1"`
	Y2     float64 `json:"y2"`
	Double bool    `json:"double"`
}

// PageLayout is the classified column topology of one page: the type label,
// the vertical bands, and the ordered column regions derived from them.
// Regions cover the page top to bottom with no gaps or overlaps; within a
// double band the left region precedes the right.
type PageLayout struct {
	Type    LayoutType     `json:"type"`
	Midline float64        `json:"midline"`
	Bands   []Band         `json:"bands"`
	Regions []ColumnRegion `json:"regions"`
}

// ClassifierConfig configures layout classification.
type ClassifierConfig struct {
	// MidlineMargin is how far past the midline a box must extend on both
	// sides before it counts as crossing.
	MidlineMargin float64
	// BandGap is the vertical distance within which consecutive same-kind
	// element runs merge into one band.
	BandGap float64
	// MinElementArea filters out trivial boxes before classification.
	MinElementArea float64
}

// DefaultClassifierConfig returns the classifier defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MidlineMargin:  0,
		BandGap:        20,
		MinElementArea: 0,
	}
}

// Classifier determines per-page column topology from the distribution of
// element boxes relative to the page midline.
type Classifier struct {
	config ClassifierConfig
}

// NewClassifier creates a layout classifier.
func NewClassifier(config ClassifierConfig) *Classifier {
	if config.BandGap <= 0 {
		config.BandGap = DefaultClassifierConfig().BandGap
	}
	return &Classifier{config: config}
}

// Classify derives the page's column topology:
//
//   - double: no content element crosses the midline — the gap between the
//     columns straddles it cleanly.
//   - single: crossing elements exist and every horizontal cohort of
//     vertically-overlapping elements crosses together.
//   - mixed: some cohort contains an element confined to one half — the
//     page has distinct single-column and double-column bands.
func (c *Classifier) Classify(elements []Element, pageWidth, pageHeight float64) PageLayout {
	midline := pageWidth / 2

	content := c.contentElements(elements)
	if len(content) == 0 {
		return c.singleLayout(midline, pageWidth, pageHeight)
	}

	anyCrossing := false
	for _, e := range content {
		if c.crosses(e, midline) {
			anyCrossing = true
			break
		}
	}

	if !anyCrossing {
		return PageLayout{
			Type:    LayoutDouble,
			Midline: midline,
			Bands:   []Band{{Y1: 0, Y2: pageHeight, Double: true}},
			Regions: []ColumnRegion{
				{Kind: ColumnLeft, BBox: geometry.Rect{X1: 0, Y1: 0, X2: midline, Y2: pageHeight}},
				{Kind: ColumnRight, BBox: geometry.Rect{X1: midline, Y1: 0, X2: pageWidth, Y2: pageHeight}},
			},
		}
	}

	if !c.hasMultiColumnRow(content, midline) {
		return c.singleLayout(midline, pageWidth, pageHeight)
	}

	bands := c.buildBands(content, midline, pageHeight)
	return PageLayout{
		Type:    LayoutMixed,
		Midline: midline,
		Bands:   bands,
		Regions: bandsToRegions(bands, midline, pageWidth),
	}
}

func (c *Classifier) singleLayout(midline, pageWidth, pageHeight float64) PageLayout {
	return PageLayout{
		Type:    LayoutSingle,
		Midline: midline,
		Bands:   []Band{{Y1: 0, Y2: pageHeight, Double: false}},
		Regions: []ColumnRegion{
			{Kind: ColumnSingle, BBox: geometry.Rect{X1: 0, Y1: 0, X2: pageWidth, Y2: pageHeight}},
		},
	}
}

func (c *Classifier) contentElements(elements []Element) []Element {
	var content []Element
	for _, e := range elements {
		if !e.isContent() {
			continue
		}
		if e.BBox.Area() <= c.config.MinElementArea {
			continue
		}
		content = append(content, e)
	}
	return content
}

func (c *Classifier) crosses(e Element, midline float64) bool {
	return e.BBox.CrossesVertical(midline, c.config.MidlineMargin)
}

// hasMultiColumnRow scans horizontal cohorts: for every element, gather the
// elements overlapping it vertically; if such a cohort exists where not all
// members cross the midline, the page has a multi-column row.
func (c *Classifier) hasMultiColumnRow(content []Element, midline float64) bool {
	for i, e := range content {
		cohort := []Element{e}
		for j, other := range content {
			if i == j {
				continue
			}
			if e.BBox.OverlapsVertically(other.BBox) {
				cohort = append(cohort, other)
			}
		}
		if len(cohort) < 2 {
			continue
		}
		for _, member := range cohort {
			if !c.crosses(member, midline) {
				return true
			}
		}
	}
	return false
}

// buildBands groups elements into vertical bands: sort by top coordinate,
// tag each element single (crosses) or double (confined to a half), and
// merge consecutive same-kind runs whose vertical gap is within BandGap.
// Band boundaries are then stretched to partition the page exactly.
func (c *Classifier) buildBands(content []Element, midline, pageHeight float64) []Band {
	sorted := make([]Element, len(content))
	copy(sorted, content)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BBox.Y1 < sorted[j].BBox.Y1
	})

	var bands []Band
	for _, e := range sorted {
		double := !c.crosses(e, midline)
		if n := len(bands); n > 0 && bands[n-1].Double == double && e.BBox.Y1 <= bands[n-1].Y2+c.config.BandGap {
			if e.BBox.Y2 > bands[n-1].Y2 {
				bands[n-1].Y2 = e.BBox.Y2
			}
			continue
		}
		bands = append(bands, Band{Y1: e.BBox.Y1, Y2: e.BBox.Y2, Double: double})
	}

	// Stretch the bands so they cover the page with no gaps: the first
	// starts at the top edge, the last ends at the bottom edge, and
	// adjacent bands meet halfway across the whitespace between them.
	for i := range bands {
		if i == 0 {
			bands[i].Y1 = 0
		}
		if i == len(bands)-1 {
			bands[i].Y2 = pageHeight
		} else {
			cut := (bands[i].Y2 + bands[i+1].Y1) / 2
			if cut < bands[i].Y2 {
				cut = bands[i].Y2
			}
			bands[i].Y2 = cut
			bands[i+1].Y1 = cut
		}
	}
	return bands
}

func bandsToRegions(bands []Band, midline, pageWidth float64) []ColumnRegion {
	var regions []ColumnRegion
	for _, band := range bands {
		if band.Double {
			regions = append(regions,
				ColumnRegion{Kind: ColumnLeft, BBox: geometry.Rect{X1: 0, Y1: band.Y1, X2: midline, Y2: band.Y2}},
				ColumnRegion{Kind: ColumnRight, BBox: geometry.Rect{X1: midline, Y1: band.Y1, X2: pageWidth, Y2: band.Y2}},
			)
		} else {
			regions = append(regions,
				ColumnRegion{Kind: ColumnSingle, BBox: geometry.Rect{X1: 0, Y1: band.Y1, X2: pageWidth, Y2: band.Y2}},
			)
		}
	}
	return regions
}
