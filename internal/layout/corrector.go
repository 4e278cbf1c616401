package layout

import (
	"math"
	"sort"

	"github.com/docslice/docslice/internal/geometry"
)

// CorrectorConfig configures table border correction.
type CorrectorConfig struct {
	// Tolerance is the maximum distance in pixels between a model-reported
	// table edge and a native line for the line to be a snap candidate.
	Tolerance float64
	// SmallTableHeight is the height below which a table gets the relaxed
	// search windows. Ruled tables of only a few rows are where the model
	// misses edges the most.
	SmallTableHeight float64
}

// DefaultCorrectorConfig returns the corrector defaults.
func DefaultCorrectorConfig() CorrectorConfig {
	return CorrectorConfig{
		Tolerance:        30,
		SmallTableHeight: 75,
	}
}

// Corrector rewrites table element boxes using the page's native
// straight-line primitives. The vision model systematically under- or
// over-extends boxes on ruled tables; the table's own rules are the ground
// truth for where its edges are.
type Corrector struct {
	config CorrectorConfig
}

// NewCorrector creates a box corrector.
func NewCorrector(config CorrectorConfig) *Corrector {
	if config.Tolerance <= 0 {
		config.Tolerance = DefaultCorrectorConfig().Tolerance
	}
	if config.SmallTableHeight <= 0 {
		config.SmallTableHeight = DefaultCorrectorConfig().SmallTableHeight
	}
	return &Corrector{config: config}
}

// edgeCandidate is a native line bracketing one edge of a predicted box.
type edgeCandidate struct {
	pos      float64    // Snap coordinate (x for vertical lines, y for horizontal)
	distance float64    // Distance from the predicted edge
	span     [2]float64 // The line's extent on its long axis
}

// Correct returns the element list with every table box re-derived from the
// native lines. Non-table elements pass through untouched. Tables whose
// corrected box degenerates to a non-positive area are discarded; the count
// of discarded boxes is returned alongside.
func (c *Corrector) Correct(elements []Element, lines []geometry.Line) ([]Element, int) {
	if len(lines) == 0 {
		return elements, 0
	}

	corrected := make([]Element, 0, len(elements))
	discarded := 0
	for _, elem := range elements {
		if elem.Kind != KindTable {
			corrected = append(corrected, elem)
			continue
		}
		refined, ok := c.refineTable(elem.BBox, lines)
		if !ok {
			corrected = append(corrected, elem)
			continue
		}
		if !refined.Valid() {
			discarded++
			continue
		}
		elem.BBox = refined
		corrected = append(corrected, elem)
	}
	return corrected, discarded
}

// refineTable searches the native lines for edges bracketing the predicted
// box and snaps to them. It reports false when fewer than two edges were
// found, in which case the model box stands.
func (c *Corrector) refineTable(pred geometry.Rect, lines []geometry.Line) (geometry.Rect, bool) {
	tol := c.config.Tolerance
	width, height := pred.Width(), pred.Height()
	small := height < c.config.SmallTableHeight

	var left, right, top, bottom []edgeCandidate

	for _, line := range lines {
		switch {
		case line.Vertical():
			x := line.XPos()
			lo, hi := line.YRange()
			if !spansEnough(lo, hi, pred.Y1-tol, pred.Y2+tol, height, hi-lo) {
				continue
			}
			// A plausible left rule sits left of the prediction or at most a
			// quarter of the table width inside it; mirrored for the right.
			if d := math.Abs(x - pred.X1); d <= tol && x <= pred.X1+width*0.25 {
				left = append(left, edgeCandidate{pos: x, distance: d, span: [2]float64{lo, hi}})
			}
			if d := math.Abs(x - pred.X2); d <= tol && x >= pred.X2-width*0.25 {
				right = append(right, edgeCandidate{pos: x, distance: d, span: [2]float64{lo, hi}})
			}

		case line.Horizontal():
			y := line.YPos()
			lo, hi := line.XRange()
			if !spansEnough(lo, hi, pred.X1-tol, pred.X2+tol, width, hi-lo) {
				continue
			}
			maxDown := height * 0.25
			maxUp := height * 0.25
			if small {
				// Short tables get wider vertical search windows; their
				// predicted edges routinely land inside the table body.
				maxDown = math.Max(height*0.85, 30)
				maxUp = math.Max(height*0.5, 30)
			}
			if d := math.Abs(y - pred.Y1); d <= tol && y <= pred.Y1+maxDown {
				top = append(top, edgeCandidate{pos: y, distance: d, span: [2]float64{lo, hi}})
			}
			if d := math.Abs(y - pred.Y2); d <= tol && y >= pred.Y2-maxUp {
				bottom = append(bottom, edgeCandidate{pos: y, distance: d, span: [2]float64{lo, hi}})
			}
		}
	}

	refined := pred
	found := map[string]bool{}

	if best, ok := nearest(left); ok {
		refined.X1 = best.pos
		found["left"] = true
	}
	if best, ok := nearest(right); ok {
		refined.X2 = best.pos
		found["right"] = true
	}
	if best, ok := nearest(top); ok {
		refined.Y1 = best.pos
		found["top"] = true
	}

	if small && found["top"] {
		// Anchor the bottom at top + predicted height and re-search near
		// that target instead of near the unreliable predicted bottom.
		target := refined.Y1 + height
		if best, ok := c.searchBottomNear(lines, pred, target, height); ok {
			refined.Y2 = best
		} else {
			refined.Y2 = target
		}
		found["bottom"] = true
	} else if best, ok := nearest(bottom); ok {
		refined.Y2 = best.pos
		found["bottom"] = true
	}

	c.refineFromEndpoints(&refined, pred, found, top, bottom, left, right)

	refined = geometry.NewRect(refined.X1, refined.Y1, refined.X2, refined.Y2)

	if len(found) < 2 {
		return geometry.Rect{}, false
	}
	return refined, true
}

// searchBottomNear looks for a horizontal rule close to the target bottom
// position of a short table.
func (c *Corrector) searchBottomNear(lines []geometry.Line, pred geometry.Rect, target, height float64) (float64, bool) {
	tol := math.Min(c.config.Tolerance, 30)
	maxUp := math.Max(height*0.5, 30)
	width := pred.Width()

	var candidates []edgeCandidate
	for _, line := range lines {
		if !line.Horizontal() {
			continue
		}
		lo, hi := line.XRange()
		if !spansEnough(lo, hi, pred.X1-c.config.Tolerance, pred.X2+c.config.Tolerance, width, hi-lo) {
			continue
		}
		y := line.YPos()
		if d := math.Abs(y - target); d <= tol && y >= target-maxUp {
			candidates = append(candidates, edgeCandidate{pos: y, distance: d})
		}
	}
	best, ok := nearest(candidates)
	return best.pos, ok
}

// refineFromEndpoints uses the endpoints of matched rules to fix the edges
// no rule was found for: a matched horizontal rule's ends locate the left
// and right edges, a matched vertical rule's ends locate the top and
// bottom. Adjustments above 30px are treated as a different rule entirely
// and skipped.
func (c *Corrector) refineFromEndpoints(refined *geometry.Rect, pred geometry.Rect,
	found map[string]bool, top, bottom, left, right []edgeCandidate,
) {
	const maxAdjust = 30.0
	const minAdjust = 2.0

	var horizontal *edgeCandidate
	if found["top"] {
		if best, ok := nearest(top); ok {
			horizontal = &best
		}
	}
	if horizontal == nil && found["bottom"] {
		if best, ok := nearest(bottom); ok {
			horizontal = &best
		}
	}

	if horizontal != nil {
		lineLeft, lineRight := horizontal.span[0], horizontal.span[1]
		if !found["left"] {
			if d := math.Abs(lineLeft - refined.X1); d > minAdjust && d <= maxAdjust {
				refined.X1 = lineLeft
			}
		}
		if !found["right"] {
			if d := math.Abs(lineRight - refined.X2); d > minAdjust && d <= maxAdjust {
				refined.X2 = lineRight
			}
		}
	}

	var spans [][2]float64
	if found["left"] {
		if best, ok := nearest(left); ok {
			spans = append(spans, best.span)
		}
	}
	if found["right"] {
		if best, ok := nearest(right); ok {
			spans = append(spans, best.span)
		}
	}
	if len(spans) > 0 {
		minY, maxY := spans[0][0], spans[0][1]
		for _, s := range spans[1:] {
			minY = math.Min(minY, s[0])
			maxY = math.Max(maxY, s[1])
		}
		if !found["top"] || math.Abs(minY-pred.Y1) < math.Abs(refined.Y1-pred.Y1) {
			if math.Abs(minY-refined.Y1) > minAdjust {
				refined.Y1 = minY
			}
		}
		if !found["bottom"] || math.Abs(maxY-pred.Y2) < math.Abs(refined.Y2-pred.Y2) {
			if math.Abs(maxY-refined.Y2) > minAdjust {
				refined.Y2 = maxY
			}
		}
	}
}

// spansEnough reports whether a line's extent overlaps the search window by
// at least half of the shorter of the two extents. Short stray marks must
// not pull a table edge.
func spansEnough(lineLo, lineHi, windowLo, windowHi, boxExtent, lineExtent float64) bool {
	overlap := math.Min(lineHi, windowHi) - math.Max(lineLo, windowLo)
	required := math.Min(boxExtent*0.5, lineExtent*0.5)
	return overlap >= required
}

func nearest(candidates []edgeCandidate) (edgeCandidate, bool) {
	if len(candidates) == 0 {
		return edgeCandidate{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	return candidates[0], true
}
