// Package layout implements the page layout analysis and slicing engine:
// element normalization, table border correction from native line
// primitives, vector-graphic clustering, column classification and the
// final partitioning of a page into ordered slices.
package layout

import (
	"fmt"

	"github.com/docslice/docslice/internal/geometry"
)

// Kind identifies the class of a page element.
type Kind string

const (
	KindText          Kind = "text"
	KindImage         Kind = "image"
	KindTable         Kind = "table"
	KindVectorGraphic Kind = "vector_graphic"
	KindRawLine       Kind = "raw_line"
)

// Source records where an element came from.
type Source string

const (
	// SourceModel marks elements reported by the vision model.
	SourceModel Source = "model"
	// SourceDerived marks elements synthesized by the engine, such as
	// native line primitives and merged vector graphics.
	SourceDerived Source = "derived"
)

// Element is a classified rectangular region on a page.
type Element struct {
	ID         string        `json:"id"`
	Kind       Kind          `json:"kind"`
	BBox       geometry.Rect `json:"bbox"`
	Label      string        `json:"label,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Source     Source        `json:"source"`
}

// contentKinds are the element kinds that participate in column
// classification. Raw lines are geometry, not content.
func (e Element) isContent() bool {
	switch e.Kind {
	case KindText, KindImage, KindTable, KindVectorGraphic:
		return true
	default:
		return false
	}
}

// KindFromModelType maps the vision model's type taxonomy onto element
// kinds. Unknown types default to text so unexpected labels still produce a
// usable region rather than being dropped.
func KindFromModelType(modelType string) Kind {
	switch modelType {
	case "text":
		return KindText
	case "image":
		return KindImage
	case "table":
		return KindTable
	case "vector":
		return KindVectorGraphic
	case "line":
		return KindRawLine
	default:
		return KindText
	}
}

// NewElement builds a clamped, normalized element. It returns an error when
// the clamped box has no area, which callers treat as a discardable record
// rather than a page failure.
func NewElement(id string, kind Kind, bbox geometry.Rect, source Source, pageWidth, pageHeight float64) (Element, error) {
	bounds := geometry.Rect{X1: 0, Y1: 0, X2: pageWidth, Y2: pageHeight}
	clamped := geometry.NewRect(bbox.X1, bbox.Y1, bbox.X2, bbox.Y2).Clamp(bounds)
	if !clamped.Valid() {
		return Element{}, fmt.Errorf("element %s has no area within page bounds: %s", id, bbox)
	}
	return Element{
		ID:     id,
		Kind:   kind,
		BBox:   clamped,
		Source: source,
	}, nil
}

// LinesToElements converts native line primitives into raw_line elements so
// they can participate in vector-graphic clustering. Lines are derived
// geometry, never model output.
func LinesToElements(lines []geometry.Line, pageWidth, pageHeight float64) []Element {
	elements := make([]Element, 0, len(lines))
	for i, line := range lines {
		bbox := line.Bounds()
		// A perfectly straight hairline has a zero-extent bounding box on
		// one axis; widen it to a single pixel so clustering can see it.
		if bbox.X2-bbox.X1 < 1 {
			bbox.X2 = bbox.X1 + 1
		}
		if bbox.Y2-bbox.Y1 < 1 {
			bbox.Y2 = bbox.Y1 + 1
		}
		elem, err := NewElement(fmt.Sprintf("line-%d", i), KindRawLine, bbox, SourceDerived, pageWidth, pageHeight)
		if err != nil {
			continue
		}
		elements = append(elements, elem)
	}
	return elements
}

// DeduplicateElements removes model records that substantially duplicate
// other records. Text blocks overlapping a table above blockOverlap are
// dropped in favor of the table; images overlapping another image above
// imageOverlap keep only the larger one. Ordering of survivors is preserved.
func DeduplicateElements(elements []Element, blockOverlap, imageOverlap float64) []Element {
	var tables []Element
	for _, e := range elements {
		if e.Kind == KindTable {
			tables = append(tables, e)
		}
	}

	kept := make([]Element, 0, len(elements))
	for i, e := range elements {
		switch e.Kind {
		case KindText:
			if overlapsAny(e.BBox, tables, blockOverlap) {
				continue
			}
		case KindImage:
			if duplicateImage(elements, i, imageOverlap) {
				continue
			}
		}
		kept = append(kept, e)
	}
	return kept
}

func overlapsAny(bbox geometry.Rect, others []Element, threshold float64) bool {
	for _, o := range others {
		if bbox.Overlaps(o.BBox, threshold) {
			return true
		}
	}
	return false
}

// duplicateImage reports whether the image at index i is dominated by
// another image it overlaps: a strictly larger one, or an equal-area one
// appearing earlier in the list.
func duplicateImage(elements []Element, i int, threshold float64) bool {
	e := elements[i]
	for j, o := range elements {
		if i == j || o.Kind != KindImage {
			continue
		}
		if !e.BBox.Overlaps(o.BBox, threshold) {
			continue
		}
		if o.BBox.Area() > e.BBox.Area() {
			return true
		}
		if o.BBox.Area() == e.BBox.Area() && j < i {
			return true
		}
	}
	return false
}
