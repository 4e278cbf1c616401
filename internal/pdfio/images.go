package pdfio

import (
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"

	"github.com/docslice/docslice/internal/geometry"
)

// PlacedImage is one embedded raster image drawn on a page: its XObject
// name, its placed bounding box in top-down pixel coordinates, and its
// intrinsic sample dimensions.
type PlacedImage struct {
	PageNumber int           `json:"page_number"`
	Name       string        `json:"name"`
	BBox       geometry.Rect `json:"bbox"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
}

// PageImages enumerates the image XObjects drawn on a page with their
// placed positions. An image XObject spans the unit square in form space;
// the CTM at its Do operator maps it onto the page.
func (d *Document) PageImages(pageNum int, dpi float64) ([]PlacedImage, error) {
	ps, err := d.PageSpace(pageNum, dpi)
	if err != nil {
		return nil, err
	}

	scanner, err := d.scanPage(pageNum)
	if err != nil {
		return nil, err
	}

	xObjects, err := d.pageImageXObjects(pageNum)
	if err != nil {
		return nil, err
	}
	if len(xObjects) == 0 {
		return nil, nil
	}

	var images []PlacedImage
	for _, pl := range scanner.placements {
		info, ok := xObjects[pl.name]
		if !ok {
			continue
		}
		images = append(images, PlacedImage{
			PageNumber: pageNum,
			Name:       pl.name,
			BBox:       placedBounds(pl.ctm, ps),
			Width:      info.width,
			Height:     info.height,
		})
	}
	return images, nil
}

type xObjectInfo struct {
	width, height int
}

// pageImageXObjects maps XObject resource names to image info, skipping
// forms and other non-image XObjects.
func (d *Document) pageImageXObjects(pageNum int) (m map[string]xObjectInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: resources damaged: %v", pageNum, r)
		}
	}()

	page := d.reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, nil
	}
	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return nil, nil
	}
	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return nil, nil
	}

	m = make(map[string]xObjectInfo)
	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		subtype := obj.Key("Subtype")
		if subtype.IsNull() || subtype.Name() != "Image" {
			continue
		}
		info := xObjectInfo{}
		if width := obj.Key("Width"); !width.IsNull() {
			info.width = int(width.Int64())
		}
		if height := obj.Key("Height"); !height.IsNull() {
			info.height = int(height.Int64())
		}
		m[key] = info
	}
	return m, nil
}

// placedBounds maps the unit square through the placement CTM and returns
// the pixel-space bounding box of the result.
func placedBounds(m matrix, ps PageSpace) geometry.Rect {
	corners := [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		ux, uy := m.apply(c[0], c[1])
		px, py := ps.ToPixels(ux, uy)
		minX = math.Min(minX, px)
		maxX = math.Max(maxX, px)
		minY = math.Min(minY, py)
		maxY = math.Max(maxY, py)
	}
	return geometry.Rect{X1: minX, Y1: minY, X2: maxX, Y2: maxY}
}
