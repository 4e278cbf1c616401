package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docslice/docslice/internal/geometry"
)

// tableRules builds the four ruled edges of a table as native lines.
func tableRules(x1, y1, x2, y2 float64) []geometry.Line {
	return []geometry.Line{
		{X1: x1, Y1: y1, X2: x2, Y2: y1}, // top
		{X1: x1, Y1: y2, X2: x2, Y2: y2}, // bottom
		{X1: x1, Y1: y1, X2: x1, Y2: y2}, // left
		{X1: x2, Y1: y1, X2: x2, Y2: y2}, // right
	}
}

func tableElement(bbox geometry.Rect) Element {
	return Element{ID: "t1", Kind: KindTable, BBox: bbox, Source: SourceModel}
}

func TestCorrectSnapsTableToRuledEdges(t *testing.T) {
	c := NewCorrector(DefaultCorrectorConfig())
	// True table at (100,100,400,300); the model over-extends the top and
	// under-extends the right edge.
	lines := tableRules(100, 100, 400, 300)
	pred := tableElement(geometry.Rect{X1: 108, Y1: 88, X2: 385, Y2: 306})

	corrected, discarded := c.Correct([]Element{pred}, lines)

	require.Len(t, corrected, 1)
	assert.Zero(t, discarded)
	got := corrected[0].BBox
	assert.InDelta(t, 100, got.X1, 0.01)
	assert.InDelta(t, 100, got.Y1, 0.01)
	assert.InDelta(t, 400, got.X2, 0.01)
	assert.InDelta(t, 300, got.Y2, 0.01)
}

func TestCorrectIgnoresNonTableElements(t *testing.T) {
	c := NewCorrector(DefaultCorrectorConfig())
	lines := tableRules(100, 100, 400, 300)
	text := Element{ID: "txt", Kind: KindText, BBox: geometry.Rect{X1: 105, Y1: 95, X2: 395, Y2: 305}}

	corrected, _ := c.Correct([]Element{text}, lines)

	require.Len(t, corrected, 1)
	assert.Equal(t, text.BBox, corrected[0].BBox, "non-table boxes must not be touched")
}

func TestCorrectKeepsBoxWhenNoLinesMatch(t *testing.T) {
	c := NewCorrector(DefaultCorrectorConfig())
	// Rules are far away from the prediction; nothing is in tolerance.
	lines := tableRules(600, 600, 900, 800)
	pred := tableElement(geometry.Rect{X1: 100, Y1: 100, X2: 400, Y2: 300})

	corrected, discarded := c.Correct([]Element{pred}, lines)

	require.Len(t, corrected, 1)
	assert.Zero(t, discarded)
	assert.Equal(t, pred.BBox, corrected[0].BBox)
}

func TestCorrectKeepsBoxWithSingleMatchingEdge(t *testing.T) {
	c := NewCorrector(DefaultCorrectorConfig())
	// Only a left rule; fewer than two matched edges means the model box
	// stands. The rule is long enough that endpoint refinement of top and
	// bottom would kick in only when an edge actually snapped.
	lines := []geometry.Line{{X1: 100, Y1: 100, X2: 100, Y2: 300}}
	pred := tableElement(geometry.Rect{X1: 110, Y1: 500, X2: 400, Y2: 700})

	corrected, _ := c.Correct([]Element{pred}, lines)

	require.Len(t, corrected, 1)
	assert.Equal(t, pred.BBox, corrected[0].BBox)
}

func TestCorrectShortTableAnchorsBottomAtTop(t *testing.T) {
	c := NewCorrector(DefaultCorrectorConfig())
	// A two-row table of height 40 with no bottom rule: the bottom is
	// computed from the snapped top plus the predicted height.
	lines := []geometry.Line{
		{X1: 100, Y1: 150, X2: 400, Y2: 150}, // top rule
		{X1: 100, Y1: 140, X2: 100, Y2: 200}, // left rule
	}
	pred := tableElement(geometry.Rect{X1: 105, Y1: 145, X2: 400, Y2: 185})

	corrected, discarded := c.Correct([]Element{pred}, lines)

	require.Len(t, corrected, 1)
	assert.Zero(t, discarded)
	got := corrected[0].BBox
	assert.InDelta(t, 150, got.Y1, 0.01)
	assert.InDelta(t, 190, got.Y2, 0.01, "bottom = snapped top + predicted height")
}

func TestCorrectDiscardsDegenerateResult(t *testing.T) {
	c := NewCorrector(DefaultCorrectorConfig())
	// A short table where the only horizontal rule captures both the top
	// snap and the anchored bottom re-search, collapsing the box to zero
	// height. The degenerate box is discarded, not propagated.
	lines := []geometry.Line{
		{X1: 100, Y1: 110, X2: 400, Y2: 110},
	}
	pred := tableElement(geometry.Rect{X1: 100, Y1: 100, X2: 400, Y2: 120})

	corrected, discarded := c.Correct([]Element{pred}, lines)

	assert.Empty(t, corrected)
	assert.Equal(t, 1, discarded)
}

func TestCorrectWithoutLinesIsNoop(t *testing.T) {
	c := NewCorrector(DefaultCorrectorConfig())
	pred := tableElement(geometry.Rect{X1: 100, Y1: 100, X2: 400, Y2: 300})

	corrected, discarded := c.Correct([]Element{pred}, nil)

	assert.Zero(t, discarded)
	require.Len(t, corrected, 1)
	assert.Equal(t, pred.BBox, corrected[0].BBox)
}
