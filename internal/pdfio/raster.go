package pdfio

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	// Registered decoders for page rasters produced by external renderers.
	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"

	"github.com/docslice/docslice/internal/geometry"
)

// LoadPageImage decodes a rendered page raster from disk. Page rendering
// itself is external; the pipeline consumes one raster per page.
func LoadPageImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open page image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode page image %s: %w", path, err)
	}
	return img, nil
}

// CropSlice copies the bbox region out of a page raster. The bbox is
// clamped to the raster bounds; an empty result after clamping is an
// error since every retained slice has positive extent.
func CropSlice(page image.Image, bbox geometry.Rect) (image.Image, error) {
	bounds := page.Bounds()
	crop := image.Rect(int(bbox.X1), int(bbox.Y1), int(bbox.X2+0.5), int(bbox.Y2+0.5)).
		Intersect(bounds)
	if crop.Empty() {
		return nil, fmt.Errorf("slice %s lies outside the page raster %v", bbox, bounds)
	}

	dst := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	xdraw.Draw(dst, dst.Bounds(), page, crop.Min, xdraw.Src)
	return dst, nil
}

// ScaleImage resamples an image to the given dimensions. Used to bring
// page rasters down to the model input size before upload.
func ScaleImage(img image.Image, width, height int) image.Image {
	if width <= 0 || height <= 0 {
		return img
	}
	src := img.Bounds()
	if src.Dx() == width && src.Dy() == height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)
	return dst
}

// EncodePNG serializes an image for the vision-model payload.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
