package geometry

import "math"

// Axis-alignment tolerance in pixels. Native PDF rules are rarely perfectly
// axis-aligned after coordinate transforms, so endpoints within this delta
// still count as horizontal or vertical.
const axisTolerance = 2.0

// Line is a straight-line drawing primitive taken from a page's native
// content stream, in page pixel coordinates.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Horizontal reports whether the line is axis-aligned horizontally.
func (l Line) Horizontal() bool {
	return math.Abs(l.Y1-l.Y2) <= axisTolerance
}

// Vertical reports whether the line is axis-aligned vertically.
func (l Line) Vertical() bool {
	return math.Abs(l.X1-l.X2) <= axisTolerance
}

// XPos returns the representative x coordinate of a vertical line.
func (l Line) XPos() float64 {
	return (l.X1 + l.X2) / 2
}

// YPos returns the representative y coordinate of a horizontal line.
func (l Line) YPos() float64 {
	return (l.Y1 + l.Y2) / 2
}

// XRange returns the line's horizontal extent in ascending order.
func (l Line) XRange() (lo, hi float64) {
	return math.Min(l.X1, l.X2), math.Max(l.X1, l.X2)
}

// YRange returns the line's vertical extent in ascending order.
func (l Line) YRange() (lo, hi float64) {
	return math.Min(l.Y1, l.Y2), math.Max(l.Y1, l.Y2)
}

// Bounds returns the line's bounding rectangle.
func (l Line) Bounds() Rect {
	return NewRect(l.X1, l.Y1, l.X2, l.Y2)
}
