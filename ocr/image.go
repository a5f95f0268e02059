package ocr

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/vector"
	_ "golang.org/x/image/webp"

	"overlay-gpt/layout"
)

// DetectImageType sniffs the content and rejects anything that is not a
// supported raster image.
func DetectImageType(content []byte) (string, error) {
	mtype := mimetype.Detect(content)
	if !isImageMIMEType(mtype.String()) {
		return "", fmt.Errorf("unsupported file type: %s", mtype.String())
	}
	return mtype.String(), nil
}

func isImageMIMEType(mimeType string) bool {
	supportedTypes := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/tiff": true,
		"image/bmp":  true,
		"image/webp": true,
	}
	return supportedTypes[mimeType]
}

// CropRegion cuts the axis-aligned bounding rectangle of the polygon out of
// the image and returns it PNG encoded. The rectangle is clipped to the
// image.
func CropRegion(content []byte, polygon []layout.Vertex) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	b := layout.Bounds(polygon)
	rect := image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.Width)), int(math.Ceil(b.Y+b.Height)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("selected region %v lies outside the %dx%d image", b, img.Bounds().Dx(), img.Bounds().Dy())
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Crop(img, rect), imaging.PNG); err != nil {
		return nil, fmt.Errorf("error encoding cropped region: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageSize returns the pixel dimensions of an encoded image.
func ImageSize(content []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return 0, 0, fmt.Errorf("error decoding image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// TextMask renders a single channel PNG of the given size with every polygon
// filled white on black. Polygons with fewer than three complete vertices
// are skipped.
func TextMask(width, height int, polygons [][]layout.Vertex) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask size %dx%d", width, height)
	}

	coverage := image.NewAlpha(image.Rect(0, 0, width, height))
	for _, polygon := range polygons {
		var points []layout.Point
		for _, v := range polygon {
			if p, ok := v.Point(); ok {
				points = append(points, p)
			}
		}
		if len(points) < 3 {
			continue
		}
		fillPolygon(coverage, points)
	}

	// hard edges, like a filled polygon rather than an anti-aliased one
	mask := image.NewGray(coverage.Bounds())
	for i, a := range coverage.Pix {
		if a >= 128 {
			mask.Pix[i] = 255
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, mask, imaging.PNG); err != nil {
		return nil, fmt.Errorf("error encoding mask: %w", err)
	}
	return buf.Bytes(), nil
}

// fillPolygon rasterizes the polygon over its own bounding rectangle only
// and merges the coverage into dst with max.
func fillPolygon(dst *image.Alpha, points []layout.Point) {
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	r := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	z.MoveTo(float32(points[0].X)-ox, float32(points[0].Y)-oy)
	for _, p := range points[1:] {
		z.LineTo(float32(p.X)-ox, float32(p.Y)-oy)
	}
	z.ClosePath()

	local := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	z.Draw(local, local.Bounds(), image.Opaque, image.Point{})
	for y := 0; y < r.Dy(); y++ {
		src := local.Pix[y*local.Stride : y*local.Stride+r.Dx()]
		off := dst.PixOffset(r.Min.X, r.Min.Y+y)
		row := dst.Pix[off : off+r.Dx()]
		for x, a := range src {
			if a > row[x] {
				row[x] = a
			}
		}
	}
}
