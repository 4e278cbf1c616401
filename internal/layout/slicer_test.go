package layout

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docslice/docslice/internal/geometry"
)

func sliceAll(t *testing.T, elements []Element, pageWidth, pageHeight float64) ([]Slice, PageLayout) {
	t.Helper()
	classifier := NewClassifier(DefaultClassifierConfig())
	layout := classifier.Classify(elements, pageWidth, pageHeight)
	slicer := NewSlicer(DefaultSlicerConfig())
	return slicer.Slice(elements, layout, 1), layout
}

// Scenario: full-width title above two columns produces three slices in
// reading order: title, left column, right column.
func TestSliceTitleOverColumns(t *testing.T) {
	elements := []Element{
		textElement("title", 0, 0, 800, 50),
		textElement("left", 0, 60, 400, 500),
		textElement("right", 420, 60, 800, 500),
	}

	slices, layout := sliceAll(t, elements, 800, 1000)

	assert.Equal(t, LayoutMixed, layout.Type)
	require.Len(t, slices, 3)

	assert.Equal(t, geometry.Rect{X1: 0, Y1: 0, X2: 800, Y2: 50}, slices[0].BBox)
	assert.Equal(t, ColumnSingle, slices[0].Region)

	assert.Equal(t, geometry.Rect{X1: 0, Y1: 60, X2: 400, Y2: 500}, slices[1].BBox)
	assert.Equal(t, ColumnLeft, slices[1].Region)

	assert.Equal(t, geometry.Rect{X1: 420, Y1: 60, X2: 800, Y2: 500}, slices[2].BBox)
	assert.Equal(t, ColumnRight, slices[2].Region)

	for i, s := range slices {
		assert.Equal(t, i, s.OrderIndex)
		assert.Equal(t, 1, s.PageIndex)
	}
}

func TestSliceOrderIsMonotonicAndNonOverlapping(t *testing.T) {
	elements := []Element{
		textElement("h", 0, 0, 800, 80),
		textElement("l1", 0, 100, 390, 400),
		textElement("l2", 0, 450, 390, 800),
		textElement("r1", 410, 100, 800, 500),
	}

	slices, _ := sliceAll(t, elements, 800, 1000)
	require.NotEmpty(t, slices)

	for i := 1; i < len(slices); i++ {
		assert.Greater(t, slices[i].OrderIndex, slices[i-1].OrderIndex)
	}
	for i := 0; i < len(slices); i++ {
		for j := i + 1; j < len(slices); j++ {
			assert.False(t, slices[i].BBox.Intersects(slices[j].BBox),
				"slices %d and %d overlap: %s vs %s", i, j, slices[i].BBox, slices[j].BBox)
		}
	}
}

// A midline-crossing element inside a double band is never assigned wholly
// to one column; it becomes its own slice at its own bounding box while the
// columns around it are still sliced left before right.
func TestSliceIrregularDoubleColumn(t *testing.T) {
	figBox := geometry.Rect{X1: 300, Y1: 200, X2: 500, Y2: 300}
	elements := []Element{
		textElement("left", 0, 0, 350, 500),
		textElement("right", 450, 0, 800, 500),
		{ID: "fig", Kind: KindImage, BBox: figBox, Source: SourceModel},
	}

	slices, layout := sliceAll(t, elements, 800, 1000)

	assert.Equal(t, LayoutMixed, layout.Type)
	require.Len(t, slices, 3)

	byRegion := map[ColumnKind]Slice{}
	for _, s := range slices {
		byRegion[s.Region] = s
	}
	require.Contains(t, byRegion, ColumnIrregular)
	require.Contains(t, byRegion, ColumnLeft)
	require.Contains(t, byRegion, ColumnRight)

	assert.Equal(t, figBox, byRegion[ColumnIrregular].BBox,
		"the crossing element keeps its own bbox instead of joining a column")
	assert.Equal(t, geometry.Rect{X1: 0, Y1: 0, X2: 350, Y2: 500}, byRegion[ColumnLeft].BBox)
	assert.Equal(t, geometry.Rect{X1: 450, Y1: 0, X2: 800, Y2: 500}, byRegion[ColumnRight].BBox)
	assert.Less(t, byRegion[ColumnLeft].OrderIndex, byRegion[ColumnRight].OrderIndex)
}

func TestSliceGroupsSeparatedByGap(t *testing.T) {
	// Two paragraphs in one column separated by a 100px gap become two
	// slices; a 10px gap keeps them together.
	far := []Element{
		textElement("p1", 50, 0, 750, 200),
		textElement("p2", 50, 300, 750, 500),
	}
	near := []Element{
		textElement("p1", 50, 0, 750, 200),
		textElement("p2", 50, 210, 750, 500),
	}

	farSlices, _ := sliceAll(t, far, 800, 1000)
	nearSlices, _ := sliceAll(t, near, 800, 1000)

	assert.Len(t, farSlices, 2)
	assert.Len(t, nearSlices, 1)
}

func TestSliceRawLinesProduceNoSlices(t *testing.T) {
	elements := []Element{
		{ID: "rule", Kind: KindRawLine, BBox: geometry.Rect{X1: 0, Y1: 500, X2: 800, Y2: 501}},
	}

	slices, _ := sliceAll(t, elements, 800, 1000)

	assert.Empty(t, slices)
}

func TestFilterDropsDegenerateSlices(t *testing.T) {
	slices := []Slice{
		{OrderIndex: 0, BBox: geometry.Rect{X1: 10, Y1: 10, X2: 20, Y2: 23}},  // 10x13: dropped
		{OrderIndex: 1, BBox: geometry.Rect{X1: 10, Y1: 10, X2: 30, Y2: 40}},  // 20x30: kept
		{OrderIndex: 2, BBox: geometry.Rect{X1: 0, Y1: 0, X2: 200, Y2: 15}},   // height 15: dropped (at threshold)
		{OrderIndex: 3, BBox: geometry.Rect{X1: 0, Y1: 100, X2: 16, Y2: 200}}, // width 16: kept
	}

	kept, dropped := FilterSlices(slices, DefaultFilterConfig())

	require.Len(t, kept, 2)
	require.Len(t, dropped, 2)
	assert.Equal(t, 1, kept[0].OrderIndex)
	assert.Equal(t, 3, kept[1].OrderIndex)

	// Survivors keep their original, possibly non-contiguous indices in
	// ascending order.
	assert.True(t, sort.SliceIsSorted(kept, func(i, j int) bool {
		return kept[i].OrderIndex < kept[j].OrderIndex
	}))
}

func TestFilterIsIdempotent(t *testing.T) {
	slices := []Slice{
		{OrderIndex: 0, BBox: geometry.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		{OrderIndex: 1, BBox: geometry.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}},
	}

	once, _ := FilterSlices(slices, DefaultFilterConfig())
	twice, _ := FilterSlices(once, DefaultFilterConfig())

	assert.Equal(t, once, twice)
}
