package pdfio

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pointsPerInch is the PDF user-space unit density.
const pointsPerInch = 72.0

// Document is an open PDF ready for page-level inspection. pdfcpu handles
// validation and page geometry; the ledongthuc reader provides object-level
// access to content streams and resources.
type Document struct {
	path   string
	file   *os.File
	reader *pdf.Reader
	dims   []types.Dim
}

// Open validates and opens a PDF file. Validation is relaxed: real-world
// PDFs with minor structural damage still open, matching how the rest of
// the pipeline degrades per page rather than failing whole documents.
func Open(path string, maxFileSize int64) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, fmt.Errorf("file is not a PDF: %s", path)
	}
	if maxFileSize > 0 && fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), maxFileSize)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	return &Document{
		path:   path,
		file:   file,
		reader: reader,
		dims:   dims,
	}, nil
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Path returns the file path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return len(d.dims)
}

// PageSpace describes one page's coordinate mapping: PDF user space is
// bottom-up in points, pixel space is top-down at the working DPI.
type PageSpace struct {
	WidthPt  float64
	HeightPt float64
	DPI      float64
}

// PageSpace returns the coordinate mapping for a 1-based page number.
func (d *Document) PageSpace(pageNum int, dpi float64) (PageSpace, error) {
	if pageNum < 1 || pageNum > len(d.dims) {
		return PageSpace{}, fmt.Errorf("page %d out of range 1..%d", pageNum, len(d.dims))
	}
	dim := d.dims[pageNum-1]
	return PageSpace{WidthPt: dim.Width, HeightPt: dim.Height, DPI: dpi}, nil
}

// scale is the points-to-pixels factor.
func (ps PageSpace) scale() float64 {
	return ps.DPI / pointsPerInch
}

// WidthPx returns the page width in pixels at the working DPI.
func (ps PageSpace) WidthPx() int {
	return int(ps.WidthPt*ps.scale() + 0.5)
}

// HeightPx returns the page height in pixels at the working DPI.
func (ps PageSpace) HeightPx() int {
	return int(ps.HeightPt*ps.scale() + 0.5)
}

// ToPixels maps a user-space point into top-down pixel coordinates.
func (ps PageSpace) ToPixels(x, y float64) (float64, float64) {
	k := ps.scale()
	return x * k, (ps.HeightPt - y) * k
}
