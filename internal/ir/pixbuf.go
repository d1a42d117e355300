package ir

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// PixelBuffer is the intermediate representation handed from one stage of
// the icon pipeline to the next. Pixels are interleaved R,G,B (3 channels)
// or R,G,B,A (4 channels, non-premultiplied), row-major, top-left origin.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Pixels   []byte // len = Width * Height * Channels
}

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// RGBA is an 8-bit color with straight alpha.
type RGBA struct {
	R, G, B, A uint8
}

// RGB drops the alpha channel.
func (c RGBA) RGB() RGB {
	return RGB{c.R, c.G, c.B}
}

var (
	// ErrChannels is returned for channel counts other than 3 or 4.
	ErrChannels = errors.New("pixel buffer must have 3 or 4 channels")
	// ErrNil is returned by Validate on a nil buffer.
	ErrNil = errors.New("nil pixel buffer")
)

// New allocates a zeroed buffer.
func New(width, height, channels int) (*PixelBuffer, error) {
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: got %d", ErrChannels, channels)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("negative dimensions %dx%d", width, height)
	}
	return &PixelBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pixels:   make([]byte, width*height*channels),
	}, nil
}

// NewCanvas allocates an opaque size x size RGB buffer filled with bg.
func NewCanvas(size int, bg RGB) *PixelBuffer {
	if size < 0 {
		size = 0
	}
	pix := make([]byte, size*size*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i] = bg.R
		pix[i+1] = bg.G
		pix[i+2] = bg.B
	}
	return &PixelBuffer{Width: size, Height: size, Channels: 3, Pixels: pix}
}

// FromImage copies any image into a 4-channel buffer.
func FromImage(img image.Image) *PixelBuffer {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		copy(pix[y*w*4:(y+1)*w*4], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+w*4])
	}
	return &PixelBuffer{Width: w, Height: h, Channels: 4, Pixels: pix}
}

// Validate checks the length invariant.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return ErrNil
	}
	if b.Channels != 3 && b.Channels != 4 {
		return fmt.Errorf("%w: got %d", ErrChannels, b.Channels)
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("negative dimensions %dx%d", b.Width, b.Height)
	}
	if expected := b.Width * b.Height * b.Channels; len(b.Pixels) != expected {
		return fmt.Errorf("expected %d pixel bytes for %dx%dx%d, got %d",
			expected, b.Width, b.Height, b.Channels, len(b.Pixels))
	}
	return nil
}

// Empty reports whether the buffer has zero area.
func (b *PixelBuffer) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// RGBAt returns the pixel at (x, y). Three-channel pixels report A=255.
func (b *PixelBuffer) RGBAt(x, y int) RGBA {
	off := (y*b.Width + x) * b.Channels
	p := b.Pixels[off : off+b.Channels]
	if b.Channels == 3 {
		return RGBA{p[0], p[1], p[2], 0xff}
	}
	return RGBA{p[0], p[1], p[2], p[3]}
}

// SetRGB overwrites the color channels at (x, y). Alpha, if present, is set opaque.
func (b *PixelBuffer) SetRGB(x, y int, c RGB) {
	off := (y*b.Width + x) * b.Channels
	b.Pixels[off] = c.R
	b.Pixels[off+1] = c.G
	b.Pixels[off+2] = c.B
	if b.Channels == 4 {
		b.Pixels[off+3] = 0xff
	}
}

// ToRGBA returns a 4-channel copy. Three-channel input gets A=255.
func (b *PixelBuffer) ToRGBA() *PixelBuffer {
	if b.Channels == 4 {
		pix := make([]byte, len(b.Pixels))
		copy(pix, b.Pixels)
		return &PixelBuffer{Width: b.Width, Height: b.Height, Channels: 4, Pixels: pix}
	}
	n := b.Width * b.Height
	pix := make([]byte, n*4)
	for i := 0; i < n; i++ {
		pix[i*4] = b.Pixels[i*3]
		pix[i*4+1] = b.Pixels[i*3+1]
		pix[i*4+2] = b.Pixels[i*3+2]
		pix[i*4+3] = 0xff
	}
	return &PixelBuffer{Width: b.Width, Height: b.Height, Channels: 4, Pixels: pix}
}

// Image wraps the buffer as an *image.NRGBA for codecs and resamplers.
func (b *PixelBuffer) Image() *image.NRGBA {
	rgba := b.ToRGBA()
	return &image.NRGBA{
		Pix:    rgba.Pixels,
		Stride: rgba.Width * 4,
		Rect:   image.Rect(0, 0, rgba.Width, rgba.Height),
	}
}

// CountColors returns the number of distinct RGB triples.
func (b *PixelBuffer) CountColors() int {
	if b.Channels < 3 {
		return 0
	}
	seen := make(map[RGB]struct{})
	for i := 0; i+2 < len(b.Pixels); i += b.Channels {
		seen[RGB{b.Pixels[i], b.Pixels[i+1], b.Pixels[i+2]}] = struct{}{}
	}
	return len(seen)
}

// NRGBA converts c for use with image/color APIs.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}
