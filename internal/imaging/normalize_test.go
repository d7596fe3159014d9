package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func assertModelShape(t *testing.T, tensor *Tensor) {
	t.Helper()
	assert.Equal(t, []int64{1, InputHeight, InputWidth, Channels}, tensor.Shape)
	assert.Len(t, tensor.Data, InputHeight*InputWidth*Channels)
}

func TestNormalizeRGBImage(t *testing.T) {
	n := NewNormalizer()

	tensor, err := n.Normalize(encodePNG(t, gradientRGBA(640, 480)))
	require.NoError(t, err)

	assertModelShape(t, tensor)
	for i, v := range tensor.Data {
		require.GreaterOrEqualf(t, v, float32(0), "value %d below range", i)
		require.LessOrEqualf(t, v, float32(1), "value %d above range", i)
	}
}

func TestNormalizeGrayscaleImage(t *testing.T) {
	n := NewNormalizer()

	gray := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			gray.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}

	tensor, err := n.Normalize(encodePNG(t, gray))
	require.NoError(t, err)
	assertModelShape(t, tensor)
}

func TestNormalizeJPEG(t *testing.T) {
	n := NewNormalizer()

	tensor, err := n.Normalize(encodeJPEG(t, gradientRGBA(200, 100)))
	require.NoError(t, err)
	assertModelShape(t, tensor)
}

func TestNormalizeTinyImageUpscales(t *testing.T) {
	n := NewNormalizer()

	tensor, err := n.Normalize(encodePNG(t, gradientRGBA(8, 8)))
	require.NoError(t, err)
	assertModelShape(t, tensor)
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer()
	data := encodePNG(t, gradientRGBA(320, 240))

	a, err := n.Normalize(data)
	require.NoError(t, err)
	b, err := n.Normalize(data)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
}

func TestNormalizeCorruptBytes(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestNormalizeTruncatedPNG(t *testing.T) {
	n := NewNormalizer()
	data := encodePNG(t, gradientRGBA(64, 64))

	_, err := n.Normalize(data[:16])
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
