package ocr

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay-gpt/layout"
)

func rect(x0, y0, x1, y1 float64) []layout.Vertex {
	return []layout.Vertex{layout.V(x0, y0), layout.V(x1, y0), layout.V(x1, y1), layout.V(x0, y1)}
}

func decodeGray(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func grayAt(img image.Image, x, y int) uint8 {
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func TestDetectImageType(t *testing.T) {
	mimeType, err := DetectImageType(pngImage(t, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	_, err = DetectImageType([]byte("%PDF-1.7"))
	assert.Error(t, err)
}

func TestImageSize(t *testing.T) {
	w, h, err := ImageSize(pngImage(t, 30, 12))
	require.NoError(t, err)
	assert.Equal(t, 30, w)
	assert.Equal(t, 12, h)

	_, _, err = ImageSize([]byte("nope"))
	assert.Error(t, err)
}

// 1x1 lossless WebP
const webpPixel = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestWebPImages(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(webpPixel)
	require.NoError(t, err)

	mimeType, err := DetectImageType(data)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mimeType)

	w, h, err := ImageSize(data)
	require.NoError(t, err)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestTextMask(t *testing.T) {
	data, err := TextMask(20, 10, [][]layout.Vertex{
		rect(2, 2, 6, 6),
		rect(10, 0, 20, 10),
		{layout.V(0, 0), layout.V(1, 1)},
	})
	require.NoError(t, err)

	mask := decodeGray(t, data)
	assert.Equal(t, image.Rect(0, 0, 20, 10), mask.Bounds())
	assert.Equal(t, uint8(255), grayAt(mask, 3, 3))
	assert.Equal(t, uint8(255), grayAt(mask, 15, 5))
	assert.Equal(t, uint8(0), grayAt(mask, 0, 9))
	assert.Equal(t, uint8(0), grayAt(mask, 8, 5))

	_, err = TextMask(0, 10, nil)
	assert.Error(t, err)
}

func TestTextMaskManyWordsOnLargePage(t *testing.T) {
	var polygons [][]layout.Vertex
	for row := 0; row < 20; row++ {
		for col := 0; col < 20; col++ {
			x, y := float64(col*100+10), float64(row*150+10)
			polygons = append(polygons, rect(x, y, x+40, y+30))
		}
	}
	// partly outside the page
	polygons = append(polygons, rect(1990, 2990, 2100, 3100))

	data, err := TextMask(2000, 3000, polygons)
	require.NoError(t, err)

	mask := decodeGray(t, data)
	assert.Equal(t, uint8(255), grayAt(mask, 30, 25))
	assert.Equal(t, uint8(255), grayAt(mask, 1930, 2885))
	assert.Equal(t, uint8(0), grayAt(mask, 80, 25))
	assert.Equal(t, uint8(0), grayAt(mask, 30, 100))
	assert.Equal(t, uint8(255), grayAt(mask, 1995, 2995))
}

func TestCropRegion(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 40, 20))
	for y := 5; y < 10; y++ {
		for x := 10; x < 30; x++ {
			src.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	t.Run("inside", func(t *testing.T) {
		data, err := CropRegion(buf.Bytes(), rect(10, 5, 30, 10))
		require.NoError(t, err)
		cropped := decodeGray(t, data)
		assert.Equal(t, 20, cropped.Bounds().Dx())
		assert.Equal(t, 5, cropped.Bounds().Dy())
		assert.Equal(t, uint8(200), grayAt(cropped, cropped.Bounds().Min.X, cropped.Bounds().Min.Y))
	})

	t.Run("clipped to image", func(t *testing.T) {
		data, err := CropRegion(buf.Bytes(), rect(30, 10, 100, 100))
		require.NoError(t, err)
		cropped := decodeGray(t, data)
		assert.Equal(t, 10, cropped.Bounds().Dx())
		assert.Equal(t, 10, cropped.Bounds().Dy())
	})

	t.Run("outside", func(t *testing.T) {
		_, err := CropRegion(buf.Bytes(), rect(100, 100, 120, 120))
		assert.Error(t, err)
	})
}
