// Package geometry provides the rectangle primitives used by the layout
// analysis engine. All coordinates are in page pixel space at the working
// DPI, with the origin at the top-left corner and Y growing downward.
package geometry

import (
	"fmt"
	"math"
)

// Rect is an axis-aligned rectangle identified by its top-left (X1, Y1) and
// bottom-right (X2, Y2) corners. A valid Rect satisfies X1 < X2 and Y1 < Y2.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewRect builds a Rect from two corner points, normalizing the coordinate
// order so the result always has X1 <= X2 and Y1 <= Y2.
func NewRect(x1, y1, x2, y2 float64) Rect {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Valid reports whether the rectangle has positive width and height.
func (r Rect) Valid() bool {
	return r.X1 < r.X2 && r.Y1 < r.Y2
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.Y2 - r.Y1
}

// Area returns the rectangle's area, or 0 for degenerate rectangles.
func (r Rect) Area() float64 {
	if !r.Valid() {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the rectangle's center point.
func (r Rect) Center() (x, y float64) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// Union returns the smallest rectangle containing both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X1: math.Min(r.X1, other.X1),
		Y1: math.Min(r.Y1, other.Y1),
		X2: math.Max(r.X2, other.X2),
		Y2: math.Max(r.Y2, other.Y2),
	}
}

// Intersect returns the overlapping region of r and other. The second return
// value is false when the rectangles do not overlap.
func (r Rect) Intersect(other Rect) (Rect, bool) {
	inter := Rect{
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
		X2: math.Min(r.X2, other.X2),
		Y2: math.Min(r.Y2, other.Y2),
	}
	if !inter.Valid() {
		return Rect{}, false
	}
	return inter, true
}

// Intersects reports whether r and other share any interior area.
func (r Rect) Intersects(other Rect) bool {
	_, ok := r.Intersect(other)
	return ok
}

// OverlapRatio returns the intersection area divided by the area of the
// smaller rectangle. It returns 0 when the rectangles do not overlap or
// either rectangle is degenerate.
func (r Rect) OverlapRatio(other Rect) float64 {
	inter, ok := r.Intersect(other)
	if !ok {
		return 0
	}
	smaller := math.Min(r.Area(), other.Area())
	if smaller <= 0 {
		return 0
	}
	return inter.Area() / smaller
}

// Overlaps reports whether the overlap ratio between r and other exceeds the
// given threshold.
func (r Rect) Overlaps(other Rect, threshold float64) bool {
	return r.OverlapRatio(other) > threshold
}

// Contains reports whether the point (x, y) lies inside or on the boundary
// of the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}

// CrossesVertical reports whether the vertical line at x passes through the
// rectangle's interior by more than margin on both sides.
func (r Rect) CrossesVertical(x, margin float64) bool {
	return r.X1 < x-margin && r.X2 > x+margin
}

// OverlapsVertically reports whether r and other share any vertical extent.
// Two boxes on the same horizontal band overlap vertically even when they
// are far apart horizontally.
func (r Rect) OverlapsVertically(other Rect) bool {
	return !(r.Y2 < other.Y1 || other.Y2 < r.Y1)
}

// Clamp restricts the rectangle to the given bounds.
func (r Rect) Clamp(bounds Rect) Rect {
	return Rect{
		X1: math.Max(r.X1, bounds.X1),
		Y1: math.Max(r.Y1, bounds.Y1),
		X2: math.Min(r.X2, bounds.X2),
		Y2: math.Min(r.Y2, bounds.Y2),
	}
}

// String returns a compact representation used in logs and error messages.
func (r Rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f,%.1f,%.1f)", r.X1, r.Y1, r.X2, r.Y2)
}
