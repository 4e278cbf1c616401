package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docslice/docslice/internal/geometry"
)

func textElement(id string, x1, y1, x2, y2 float64) Element {
	return Element{ID: id, Kind: KindText, BBox: geometry.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}, Source: SourceModel}
}

func TestClassifyEmptyPageIsSingle(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	layout := c.Classify(nil, 800, 1000)

	assert.Equal(t, LayoutSingle, layout.Type)
	require.Len(t, layout.Regions, 1)
	assert.Equal(t, ColumnSingle, layout.Regions[0].Kind)
}

func TestClassifyDoubleColumnPage(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	// Two clean columns; nothing touches the midline at x=400.
	elements := []Element{
		textElement("l1", 0, 0, 380, 500),
		textElement("r1", 420, 0, 800, 500),
		textElement("l2", 0, 520, 380, 900),
		textElement("r2", 420, 520, 800, 900),
	}

	layout := c.Classify(elements, 800, 1000)

	assert.Equal(t, LayoutDouble, layout.Type)
	assert.Equal(t, 400.0, layout.Midline)
	require.Len(t, layout.Regions, 2)
	assert.Equal(t, ColumnLeft, layout.Regions[0].Kind)
	assert.Equal(t, ColumnRight, layout.Regions[1].Kind)
}

func TestClassifySingleColumnPage(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	// Full-width paragraphs stacked vertically; every cohort crosses.
	elements := []Element{
		textElement("p1", 50, 0, 750, 200),
		textElement("p2", 50, 220, 750, 500),
		textElement("p3", 50, 520, 750, 900),
	}

	layout := c.Classify(elements, 800, 1000)

	assert.Equal(t, LayoutSingle, layout.Type)
	require.Len(t, layout.Regions, 1)
	assert.Equal(t, ColumnSingle, layout.Regions[0].Kind)
}

// Scenario: a full-width title above a two-column body classifies as mixed
// with a single band on top and a double band below.
func TestClassifyMixedTitleOverColumns(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	elements := []Element{
		textElement("title", 0, 0, 800, 50),
		textElement("left", 0, 60, 400, 500),
		textElement("right", 420, 60, 800, 500),
	}

	layout := c.Classify(elements, 800, 1000)

	assert.Equal(t, LayoutMixed, layout.Type)
	require.Len(t, layout.Bands, 2)
	assert.False(t, layout.Bands[0].Double)
	assert.True(t, layout.Bands[1].Double)

	require.Len(t, layout.Regions, 3)
	assert.Equal(t, ColumnSingle, layout.Regions[0].Kind)
	assert.Equal(t, ColumnLeft, layout.Regions[1].Kind)
	assert.Equal(t, ColumnRight, layout.Regions[2].Kind)

	// Regions partition the page vertically: no gaps, no overlaps.
	assert.Equal(t, 0.0, layout.Regions[0].BBox.Y1)
	assert.Equal(t, layout.Regions[0].BBox.Y2, layout.Regions[1].BBox.Y1)
	assert.Equal(t, 1000.0, layout.Regions[1].BBox.Y2)
}

func TestClassifyRawLinesDoNotInfluenceLayout(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	elements := []Element{
		textElement("l1", 0, 0, 380, 500),
		textElement("r1", 420, 0, 800, 500),
		// A decorative rule across the whole page; geometry, not content.
		{ID: "rule", Kind: KindRawLine, BBox: geometry.Rect{X1: 0, Y1: 990, X2: 800, Y2: 991}},
	}

	layout := c.Classify(elements, 800, 1000)

	assert.Equal(t, LayoutDouble, layout.Type)
}

func TestClassifyMidlineMargin(t *testing.T) {
	config := DefaultClassifierConfig()
	config.MidlineMargin = 10
	c := NewClassifier(config)

	// The box pokes 5px past the midline on one side; within margin, it
	// does not count as crossing and the page stays double.
	elements := []Element{
		textElement("l1", 0, 0, 405, 500),
		textElement("r1", 420, 0, 800, 500),
	}

	layout := c.Classify(elements, 800, 1000)

	assert.Equal(t, LayoutDouble, layout.Type)
}

func TestClassifyBandMerging(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())
	// Two stacked full-width blocks with a small gap merge into one single
	// band; the column pair below forms a second band.
	elements := []Element{
		textElement("h1", 0, 0, 800, 40),
		textElement("h2", 0, 50, 800, 90), // 10px gap, merges with h1
		textElement("left", 0, 200, 390, 600),
		textElement("right", 410, 200, 800, 600),
	}

	layout := c.Classify(elements, 800, 1000)

	require.Equal(t, LayoutMixed, layout.Type)
	require.Len(t, layout.Bands, 2)
	assert.False(t, layout.Bands[0].Double)
	assert.True(t, layout.Bands[1].Double)
}
