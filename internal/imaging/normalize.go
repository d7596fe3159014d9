// Package imaging converts uploaded image bytes into the tensor form the
// classifier expects. Normalization is a pure function of the input bytes:
// decode, force RGB, bilinear-resize to the model geometry, scale into [0,1]
// and add a leading batch axis.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// Model input geometry. The classifier takes a single 120x120 RGB image.
const (
	InputHeight = 120
	InputWidth  = 120
	Channels    = 3
)

// ErrUnsupportedImage marks bytes that cannot be decoded as a supported
// image format.
var ErrUnsupportedImage = errors.New("unsupported image")

// Tensor is a normalized image in model input form: NHWC float32 values in
// [0,1] with a batch axis of one.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// Normalizer produces model-ready tensors from raw upload bytes.
type Normalizer struct {
	height uint
	width  uint
}

func NewNormalizer() *Normalizer {
	return &Normalizer{height: InputHeight, width: InputWidth}
}

// Normalize decodes, resizes and rescales an image. Deterministic for
// identical input; no state is retained between calls.
func (n *Normalizer) Normalize(data []byte) (*Tensor, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	// Any color model (grayscale, paletted, CMYK) goes through RGBA below,
	// so no explicit conversion step is needed before resampling.
	resized := resize.Resize(n.width, n.height, img, resize.Bilinear)

	bounds := resized.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := make([]float32, h*w*Channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			base := (y*w + x) * Channels
			out[base] = float32(r) / 65535.0
			out[base+1] = float32(g) / 65535.0
			out[base+2] = float32(b) / 65535.0
		}
	}

	return &Tensor{
		Data:  out,
		Shape: []int64{1, int64(h), int64(w), Channels},
	}, nil
}
