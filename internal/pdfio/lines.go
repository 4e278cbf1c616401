package pdfio

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/docslice/docslice/internal/geometry"
)

// PageLines extracts the straight-line drawing primitives from a page's
// content streams, in top-down pixel coordinates at the given DPI. Table
// borders and column rules drawn natively show up here; curves and text do
// not.
func (d *Document) PageLines(pageNum int, dpi float64) ([]geometry.Line, error) {
	ps, err := d.PageSpace(pageNum, dpi)
	if err != nil {
		return nil, err
	}

	scanner, err := d.scanPage(pageNum)
	if err != nil {
		return nil, err
	}

	lines := make([]geometry.Line, 0, len(scanner.segments))
	for _, seg := range scanner.segments {
		x1, y1 := ps.ToPixels(seg.x1, seg.y1)
		x2, y2 := ps.ToPixels(seg.x2, seg.y2)
		lines = append(lines, geometry.Line{X1: x1, Y1: y1, X2: x2, Y2: y2})
	}
	return lines, nil
}

// scanPage runs the content scanner over every content stream of a page.
// Object access panics inside the reader on malformed PDFs; those pages
// yield whatever was scanned before the fault.
func (d *Document) scanPage(pageNum int) (scanner *contentScanner, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: content stream damaged: %v", pageNum, r)
		}
	}()

	page := d.reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d: no page object", pageNum)
	}

	scanner = newContentScanner(io.MultiReader(contentReaders(page.V.Key("Contents"))...))
	scanner.scan()
	return scanner, nil
}

// contentReaders flattens a Contents entry, which is either one stream or
// an array of streams forming a single logical stream.
func contentReaders(contents pdf.Value) []io.Reader {
	var readers []io.Reader
	switch contents.Kind() {
	case pdf.Stream:
		readers = append(readers, contents.Reader())
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			part := contents.Index(i)
			if part.Kind() == pdf.Stream {
				// Streams in an array are concatenated with an implied
				// separator so tokens never run together.
				readers = append(readers, part.Reader(), newlineReader())
			}
		}
	}
	return readers
}

func newlineReader() io.Reader {
	return &singleByteReader{b: '\n'}
}

type singleByteReader struct {
	b    byte
	done bool
}

func (r *singleByteReader) Read(p []byte) (int, error) {
	if r.done || len(p) == 0 {
		return 0, io.EOF
	}
	p[0] = r.b
	r.done = true
	return 1, nil
}
