package quant

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

// MedianCut builds palettes by recursive median splits of the color cube.
type MedianCut struct{}

type paletteMatcher struct {
	palette color.Palette
	rgb     []ir.RGB
}

// Build returns at most k colors; the capacity of the seed palette bounds the result.
func (MedianCut) Build(rgba []byte, k int) Matcher {
	n := len(rgba) / 4
	var p color.Palette
	if n > 0 {
		img := &image.NRGBA{Pix: rgba, Stride: n * 4, Rect: image.Rect(0, 0, n, 1)}
		q := quantize.MedianCutQuantizer{AddTransparent: false}
		p = q.Quantize(make(color.Palette, 0, k), img)
	}
	if len(p) == 0 {
		p = color.Palette{color.NRGBA{A: 0xff}}
	}
	if len(p) > k {
		p = p[:k]
	}

	m := &paletteMatcher{palette: p, rgb: make([]ir.RGB, len(p))}
	for i, c := range p {
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		m.rgb[i] = ir.RGB{R: nc.R, G: nc.G, B: nc.B}
	}
	return m
}

func (m *paletteMatcher) Palette() []ir.RGB {
	return m.rgb
}

func (m *paletteMatcher) Nearest(c ir.RGBA) int {
	return m.palette.Index(color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
}
