// Package fit letterboxes an arbitrary image into a square canvas.
package fit

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

var (
	// ErrEmptySource is returned when the source has zero width or height.
	ErrEmptySource = errors.New("source image has zero width or height")
	// ErrInvalidSize is returned for a negative canvas size.
	ErrInvalidSize = errors.New("canvas size must not be negative")
)

// CalculateSize returns the largest dimensions with the source aspect ratio
// that fit inside a size x size square. Results are truncated, not rounded.
func CalculateSize(width, height, size int) (int, int) {
	if size <= 0 || (width <= 0 && height <= 0) {
		return 0, 0
	}
	scale := math.Min(float64(size)/float64(width), float64(size)/float64(height))
	return int(float64(width) * scale), int(float64(height) * scale)
}

// TopLeft returns the color of the pixel at (0,0) without alpha.
func TopLeft(src *ir.PixelBuffer) ir.RGB {
	return src.RGBAt(0, 0).RGB()
}

// Offset returns the floor-centered paste position for content of the given
// dimensions.
func Offset(newW, newH, size int) (int, int) {
	return (size - newW) / 2, (size - newH) / 2
}

// Fit scales src with a Lanczos3 filter to fit inside a size x size canvas,
// centers it, and fills the rest of the canvas with the source's top-left
// color. The returned canvas is always 3-channel. Source pixels are
// resampled as if fully opaque and pasted without blending.
func Fit(src *ir.PixelBuffer, size int) (*ir.PixelBuffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrEmptySource)
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Empty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptySource, src.Width, src.Height)
	}
	if size == 0 {
		return ir.NewCanvas(0, ir.RGB{}), nil
	}

	newW, newH := CalculateSize(src.Width, src.Height, size)
	canvas := ir.NewCanvas(size, TopLeft(src))

	// Content thinner than one pixel after scaling leaves only background.
	if newW == 0 || newH == 0 {
		return canvas, nil
	}

	resized := imaging.Resize(opaque(src), newW, newH, imaging.Lanczos)
	px, py := Offset(newW, newH, size)
	for y := 0; y < newH; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+newW*4]
		for x := 0; x < newW; x++ {
			canvas.SetRGB(px+x, py+y, ir.RGB{R: row[x*4], G: row[x*4+1], B: row[x*4+2]})
		}
	}
	return canvas, nil
}

// opaque returns src as an image with every alpha set to 0xff, so the
// resampler weighs color channels without premultiplying them.
func opaque(src *ir.PixelBuffer) *image.NRGBA {
	img := src.Image()
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}
