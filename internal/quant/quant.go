// Package quant reduces an image to a bounded palette while keeping a
// true-color pixel layout.
package quant

import (
	"errors"
	"fmt"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

// ErrInvalidColors is returned when zero palette entries are requested.
var ErrInvalidColors = errors.New("palette size must be at least 1")

// MaxPalette is the deepest palette an icon directory entry can declare.
const MaxPalette = 256

// Builder derives a palette of at most k colors from interleaved RGBA pixels.
type Builder interface {
	Build(rgba []byte, k int) Matcher
}

// Matcher is a built palette with its nearest-color search.
type Matcher interface {
	Palette() []ir.RGB
	Nearest(c ir.RGBA) int
}

// Method names a palette builder.
type Method string

const (
	MethodNeuQuant  Method = "neuquant"
	MethodMedianCut Method = "mediancut"
)

// ParseMethod converts a method name to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodNeuQuant, MethodMedianCut:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown quantization method: %q", s)
	}
}

// Builder returns the palette builder for m.
func (m Method) Builder() Builder {
	if m == MethodMedianCut {
		return MedianCut{}
	}
	return NeuQuant{SampleFactor: 1}
}

// Quantize maps every pixel of src to its nearest palette entry. The output
// has the same dimensions as src and 3 channels; alpha is dropped. The
// builder is asked for at most one entry per pixel.
func Quantize(src *ir.PixelBuffer, maxColors int, b Builder) (*ir.PixelBuffer, error) {
	if maxColors <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidColors, maxColors)
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	out, err := ir.New(src.Width, src.Height, 3)
	if err != nil {
		return nil, err
	}
	if src.Empty() {
		return out, nil
	}

	n := src.Width * src.Height
	rgba := src.ToRGBA()
	m := b.Build(rgba.Pixels, min(maxColors, n))
	palette := m.Palette()

	// Identical inputs map to identical entries.
	cache := make(map[ir.RGBA]ir.RGB)
	for i := 0; i < n; i++ {
		p := rgba.Pixels[i*4 : i*4+4]
		c := ir.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
		rgb, ok := cache[c]
		if !ok {
			rgb = palette[m.Nearest(c)]
			cache[c] = rgb
		}
		out.Pixels[i*3] = rgb.R
		out.Pixels[i*3+1] = rgb.G
		out.Pixels[i*3+2] = rgb.B
	}
	return out, nil
}
