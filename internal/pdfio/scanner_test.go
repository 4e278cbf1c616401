package pdfio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docslice/docslice/internal/geometry"
)

func scanContent(content string) *contentScanner {
	s := newContentScanner(strings.NewReader(content))
	s.scan()
	return s
}

func TestScannerStrokedLine(t *testing.T) {
	s := scanContent("100 200 m 400 200 l S")

	require.Len(t, s.segments, 1)
	assert.Equal(t, segment{100, 200, 400, 200}, s.segments[0])
}

func TestScannerRectangleYieldsFourEdges(t *testing.T) {
	s := scanContent("10 20 30 40 re f")

	require.Len(t, s.segments, 4)
	assert.Equal(t, segment{10, 20, 40, 20}, s.segments[0])
	assert.Equal(t, segment{40, 20, 40, 60}, s.segments[1])
	assert.Equal(t, segment{40, 60, 10, 60}, s.segments[2])
	assert.Equal(t, segment{10, 60, 10, 20}, s.segments[3])
}

func TestScannerAppliesTransformAndRestoresOnQ(t *testing.T) {
	s := scanContent("q 2 0 0 2 10 20 cm 0 0 m 10 0 l S Q 0 0 m 5 5 l S")

	require.Len(t, s.segments, 2)
	assert.Equal(t, segment{10, 20, 30, 20}, s.segments[0], "scaled and translated by the cm in effect")
	assert.Equal(t, segment{0, 0, 5, 5}, s.segments[1], "Q restores the identity transform")
}

func TestScannerClosePath(t *testing.T) {
	s := scanContent("0 0 m 10 0 l 10 10 l h S")

	require.Len(t, s.segments, 3)
	assert.Equal(t, segment{10, 10, 0, 0}, s.segments[2], "h closes back to the subpath start")
}

func TestScannerRecordsPlacements(t *testing.T) {
	s := scanContent("q 100 0 0 50 200 300 cm /Im1 Do Q /Fm0 Do")

	require.Len(t, s.placements, 2)
	assert.Equal(t, "Im1", s.placements[0].name)
	assert.Equal(t, matrix{100, 0, 0, 50, 200, 300}, s.placements[0].ctm)
	assert.Equal(t, "Fm0", s.placements[1].name)
	assert.Equal(t, identityMatrix, s.placements[1].ctm)
}

func TestScannerSkipsInlineImages(t *testing.T) {
	s := scanContent("BI /W 4 /H 4 /BPC 8 ID \x00\x01\xff\xfe binary EI 0 0 m 1 1 l S")

	require.Len(t, s.segments, 1)
	assert.Equal(t, segment{0, 0, 1, 1}, s.segments[0])
}

func TestScannerIgnoresTextAndStrings(t *testing.T) {
	s := scanContent("BT /F1 12 Tf (hello (nested) world) Tj <48656c6c6f> Tj ET")

	assert.Empty(t, s.segments)
	assert.Empty(t, s.placements)
}

func TestScannerCurvesMovePointWithoutSegments(t *testing.T) {
	s := scanContent("0 0 m 1 1 2 2 3 3 c 4 4 l S")

	require.Len(t, s.segments, 1)
	assert.Equal(t, segment{3, 3, 4, 4}, s.segments[0], "line continues from the curve endpoint")
}

func TestPlacedBoundsFlipsToTopDownPixels(t *testing.T) {
	ps := PageSpace{WidthPt: 612, HeightPt: 792, DPI: 72}
	m := matrix{100, 0, 0, 50, 200, 300}

	bbox := placedBounds(m, ps)

	assert.Equal(t, geometry.Rect{X1: 200, Y1: 442, X2: 300, Y2: 492}, bbox)
}

func TestPageSpaceMapping(t *testing.T) {
	ps := PageSpace{WidthPt: 612, HeightPt: 792, DPI: 300}

	assert.Equal(t, 2550, ps.WidthPx())
	assert.Equal(t, 3300, ps.HeightPx())

	x, y := ps.ToPixels(72, 720)
	assert.InDelta(t, 300, x, 0.01)
	assert.InDelta(t, 300, y, 0.01, "user-space y is measured from the bottom")
}
