package pipeline

import (
	"context"
	"fmt"

	"github.com/docslice/docslice/internal/layout"
	"github.com/docslice/docslice/internal/pdfio"
)

// FileSource feeds the orchestrator from an opened PDF plus pre-rendered
// page rasters on disk. Rendering itself is external; rasters are located
// by a printf-style pattern taking the 1-based page number, for example
// "out/page-%d.png".
type FileSource struct {
	doc           *pdfio.Document
	rasterPattern string
	dpi           float64
}

// NewFileSource creates a source over a document and its rendered pages.
func NewFileSource(doc *pdfio.Document, rasterPattern string, dpi float64) *FileSource {
	return &FileSource{doc: doc, rasterPattern: rasterPattern, dpi: dpi}
}

// PageCount returns the document's page count.
func (s *FileSource) PageCount() int {
	return s.doc.PageCount()
}

// Page assembles one page's input. A missing or unreadable raster is an
// error and fails the page; native primitives are best-effort, since a
// damaged content stream only costs border snapping and clustering hints.
func (s *FileSource) Page(ctx context.Context, pageNumber int) (PageInput, error) {
	if err := ctx.Err(); err != nil {
		return PageInput{}, err
	}

	img, err := pdfio.LoadPageImage(fmt.Sprintf(s.rasterPattern, pageNumber))
	if err != nil {
		return PageInput{}, err
	}
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	imagePNG, err := pdfio.EncodePNG(img)
	if err != nil {
		return PageInput{}, err
	}

	// Align the vector primitives with the raster: the effective DPI is
	// whatever the renderer actually used for this page.
	dpi := s.dpi
	if ps, psErr := s.doc.PageSpace(pageNumber, s.dpi); psErr == nil && ps.WidthPt > 0 {
		dpi = float64(width) / ps.WidthPt * 72
	}

	input := PageInput{
		PageNumber: pageNumber,
		ImagePNG:   imagePNG,
		Width:      width,
		Height:     height,
	}

	if lines, linesErr := s.doc.PageLines(pageNumber, dpi); linesErr == nil {
		input.Lines = lines
	}
	if placed, imgErr := s.doc.PageImages(pageNumber, dpi); imgErr == nil {
		for i, pi := range placed {
			elem, elemErr := layout.NewElement(
				fmt.Sprintf("p%d-img%d", pageNumber, i),
				layout.KindImage, pi.BBox, layout.SourceDerived,
				float64(width), float64(height),
			)
			if elemErr != nil {
				continue
			}
			input.Images = append(input.Images, elem)
		}
	}
	return input, nil
}
