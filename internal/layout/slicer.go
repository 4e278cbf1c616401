package layout

import (
	"image"
	"sort"

	"github.com/docslice/docslice/internal/geometry"
)

// ColumnIrregular tags slices produced for elements that straddle the
// midline inside a double-column band. It never appears on ColumnRegions.
const ColumnIrregular ColumnKind = "irregular"

// Slice is a final rectangular crop of a page in reading order. OrderIndex
// is monotonically increasing across the whole page: top to bottom, and
// left column before right column within a double band. The rendered image
// is attached by the raster stage after filtering.
type Slice struct {
	PageIndex  int           `json:"page_index"`
	OrderIndex int           `json:"order_index"`
	BBox       geometry.Rect `json:"bbox"`
	Region     ColumnKind    `json:"region"`
	Image      image.Image   `json:"-"`
}

// SlicerConfig configures slice derivation.
type SlicerConfig struct {
	// GroupGap is the vertical whitespace above which two element groups in
	// the same column become separate slices.
	GroupGap float64
}

// DefaultSlicerConfig returns the slicer defaults.
func DefaultSlicerConfig() SlicerConfig {
	return SlicerConfig{GroupGap: 20}
}

// Slicer partitions a page into ordered region slices consistent with its
// classified layout.
type Slicer struct {
	config SlicerConfig
}

// NewSlicer creates a slicer.
func NewSlicer(config SlicerConfig) *Slicer {
	if config.GroupGap <= 0 {
		config.GroupGap = DefaultSlicerConfig().GroupGap
	}
	return &Slicer{config: config}
}

// Slice derives the page's slices from its elements and classified layout.
// Raw line primitives never produce slices of their own; only content
// elements do. Within a double band, an element crossing the midline is
// sliced independently at its own bounding box and interleaved at the
// vertical position where it occurs, with left/right slicing resuming
// below it.
func (s *Slicer) Slice(elements []Element, layout PageLayout, pageIndex int) []Slice {
	var content []Element
	for _, e := range elements {
		if e.isContent() {
			content = append(content, e)
		}
	}

	var slices []Slice
	order := 0
	emit := func(bbox geometry.Rect, region ColumnKind) {
		slices = append(slices, Slice{
			PageIndex:  pageIndex,
			OrderIndex: order,
			BBox:       bbox,
			Region:     region,
		})
		order++
	}

	for _, band := range layout.Bands {
		bandElements := elementsInBand(content, band)
		if len(bandElements) == 0 {
			continue
		}
		if !band.Double {
			for _, group := range s.groupByGap(bandElements) {
				emit(groupBounds(group), ColumnSingle)
			}
			continue
		}
		s.sliceDoubleBand(bandElements, layout.Midline, emit)
	}

	return slices
}

// sliceDoubleBand handles one double-column band. Midline-crossing elements
// split the band into vertical runs; each run is sliced left column first,
// then right, and the crossing element itself becomes its own slice between
// the runs.
func (s *Slicer) sliceDoubleBand(bandElements []Element, midline float64,
	emit func(geometry.Rect, ColumnKind),
) {
	var irregular, regular []Element
	for _, e := range bandElements {
		if e.BBox.X1 < midline && e.BBox.X2 > midline {
			irregular = append(irregular, e)
		} else {
			regular = append(regular, e)
		}
	}
	sort.Slice(irregular, func(i, j int) bool {
		return irregular[i].BBox.Y1 < irregular[j].BBox.Y1
	})

	remaining := regular
	for _, irr := range irregular {
		var inRun, below []Element
		for _, e := range remaining {
			if verticalCenter(e) < irr.BBox.Y1 {
				inRun = append(inRun, e)
			} else {
				below = append(below, e)
			}
		}
		s.sliceColumns(inRun, midline, emit)
		emit(irr.BBox, ColumnIrregular)
		remaining = below
	}
	s.sliceColumns(remaining, midline, emit)
}

// sliceColumns emits the slices for one vertical run of a double band: all
// left-column groups first, then all right-column groups.
func (s *Slicer) sliceColumns(elements []Element, midline float64, emit func(geometry.Rect, ColumnKind)) {
	var left, right []Element
	for _, e := range elements {
		cx, _ := e.BBox.Center()
		if cx < midline {
			left = append(left, e)
		} else {
			right = append(right, e)
		}
	}
	for _, group := range s.groupByGap(left) {
		emit(groupBounds(group), ColumnLeft)
	}
	for _, group := range s.groupByGap(right) {
		emit(groupBounds(group), ColumnRight)
	}
}

// groupByGap splits elements into contiguous vertical groups: sorted by top
// coordinate, a new group starts whenever the whitespace to the previous
// group exceeds GroupGap.
func (s *Slicer) groupByGap(elements []Element) [][]Element {
	if len(elements) == 0 {
		return nil
	}
	sorted := make([]Element, len(elements))
	copy(sorted, elements)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BBox.Y1 < sorted[j].BBox.Y1
	})

	var groups [][]Element
	current := []Element{sorted[0]}
	maxY2 := sorted[0].BBox.Y2
	for _, e := range sorted[1:] {
		if e.BBox.Y1-maxY2 > s.config.GroupGap {
			groups = append(groups, current)
			current = nil
			maxY2 = e.BBox.Y2
		} else if e.BBox.Y2 > maxY2 {
			maxY2 = e.BBox.Y2
		}
		current = append(current, e)
	}
	groups = append(groups, current)
	return groups
}

func groupBounds(group []Element) geometry.Rect {
	bounds := group[0].BBox
	for _, e := range group[1:] {
		bounds = bounds.Union(e.BBox)
	}
	return bounds
}

// elementsInBand returns the elements whose vertical center falls inside
// the band. Bands partition the page, so every element lands in exactly
// one band.
func elementsInBand(elements []Element, band Band) []Element {
	var out []Element
	for _, e := range elements {
		cy := verticalCenter(e)
		if cy >= band.Y1 && cy < band.Y2 {
			out = append(out, e)
		}
	}
	return out
}

func verticalCenter(e Element) float64 {
	_, cy := e.BBox.Center()
	return cy
}
