package fit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

func solid(t *testing.T, w, h int, c ir.RGBA) *ir.PixelBuffer {
	t.Helper()
	b, err := ir.New(w, h, 4)
	require.NoError(t, err)
	for i := 0; i < len(b.Pixels); i += 4 {
		b.Pixels[i] = c.R
		b.Pixels[i+1] = c.G
		b.Pixels[i+2] = c.B
		b.Pixels[i+3] = c.A
	}
	return b
}

func TestCalculateSize(t *testing.T) {
	tests := []struct {
		w, h, size   int
		wantW, wantH int
	}{
		{100, 150, 200, 133, 200},
		{400, 600, 200, 133, 200},
		{300, 300, 200, 200, 200},
		{100, 100, 200, 200, 200},
		{50, 100, 200, 100, 200},
		{100, 50, 200, 200, 100},
		{0, 100, 200, 0, 200},
		{100, 0, 200, 200, 0},
		{0, 0, 200, 0, 0},
		{100, 150, 0, 0, 0},
		{1000, 1, 32, 32, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d@%d", tt.w, tt.h, tt.size), func(t *testing.T) {
			w, h := CalculateSize(tt.w, tt.h, tt.size)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestCalculateSizePreservesAspect(t *testing.T) {
	for w := 1; w <= 64; w += 7 {
		for h := 1; h <= 64; h += 5 {
			for _, size := range []int{16, 32, 48} {
				nw, nh := CalculateSize(w, h, size)
				if nw > size || nh > size {
					t.Fatalf("%dx%d@%d: %dx%d exceeds canvas", w, h, size, nw, nh)
				}
				if max(nw, nh) < size-1 {
					t.Errorf("%dx%d@%d: %dx%d does not reach the canvas edge", w, h, size, nw, nh)
				}
				// truncation keeps the ratio within one pixel on the short side
				if w >= h {
					assert.InDelta(t, float64(h)*float64(nw)/float64(w), float64(nh), 1.0)
				} else {
					assert.InDelta(t, float64(w)*float64(nh)/float64(h), float64(nw), 1.0)
				}
			}
		}
	}
}

func TestTopLeft(t *testing.T) {
	src := solid(t, 1, 1, ir.RGBA{R: 128, G: 64, B: 32, A: 255})
	assert.Equal(t, ir.RGB{R: 128, G: 64, B: 32}, TopLeft(src))

	rgb := ir.NewCanvas(1, ir.RGB{R: 255, G: 0, B: 0})
	assert.Equal(t, ir.RGB{R: 255, G: 0, B: 0}, TopLeft(rgb))
}

func TestFitSinglePixel(t *testing.T) {
	src := solid(t, 1, 1, ir.RGBA{R: 255, G: 0, B: 0, A: 255})
	out, err := Fit(src, 200)
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Equal(t, 200, out.Width)
	assert.Equal(t, 200, out.Height)
	assert.Equal(t, 3, out.Channels)
	assert.Equal(t, ir.RGBA{R: 255, G: 0, B: 0, A: 255}, out.RGBAt(0, 0))
	assert.Equal(t, ir.RGBA{R: 255, G: 0, B: 0, A: 255}, out.RGBAt(50, 50))
	assert.Equal(t, ir.RGBA{R: 255, G: 0, B: 0, A: 255}, out.RGBAt(199, 199))
}

func TestFitCentersAndFillsBackground(t *testing.T) {
	// Green marker in the top-left, blue everywhere else.
	src := solid(t, 100, 150, ir.RGBA{R: 0, G: 0, B: 255, A: 255})
	src.SetRGB(0, 0, ir.RGB{R: 0, G: 255, B: 0})

	out, err := Fit(src, 200)
	require.NoError(t, err)

	newW, newH := CalculateSize(100, 150, 200)
	px, py := Offset(newW, newH, 200)
	assert.Equal(t, 33, px)
	assert.Equal(t, 0, py)

	green := ir.RGBA{R: 0, G: 255, B: 0, A: 255}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			inside := x >= px && x < px+newW && y >= py && y < py+newH
			if !inside && out.RGBAt(x, y) != green {
				t.Fatalf("background pixel (%d,%d) = %v, want %v", x, y, out.RGBAt(x, y), green)
			}
		}
	}

	// Center of the pasted content is the dominant source color.
	c := out.RGBAt(px+newW/2, py+newH/2)
	assert.Equal(t, ir.RGBA{R: 0, G: 0, B: 255, A: 255}, c)
}

func TestFitWideSource(t *testing.T) {
	src := solid(t, 64, 16, ir.RGBA{R: 10, G: 10, B: 10, A: 255})
	src.SetRGB(0, 0, ir.RGB{R: 200, G: 200, B: 200})

	out, err := Fit(src, 32)
	require.NoError(t, err)

	// 32x8 content pasted at y=12
	assert.Equal(t, ir.RGBA{R: 200, G: 200, B: 200, A: 255}, out.RGBAt(16, 11))
	assert.Equal(t, ir.RGBA{R: 200, G: 200, B: 200, A: 255}, out.RGBAt(16, 20))
	assert.Equal(t, ir.RGBA{R: 10, G: 10, B: 10, A: 255}, out.RGBAt(16, 16))
}

func TestFitDropsAlpha(t *testing.T) {
	src := solid(t, 4, 2, ir.RGBA{R: 0, G: 0, B: 255, A: 0})
	out, err := Fit(src, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Channels)
	assert.Len(t, out.Pixels, 8*8*3)
	// 8x4 content sits at y=2; the top rows are background
	for x := 0; x < 8; x++ {
		assert.Equal(t, ir.RGBA{R: 0, G: 0, B: 255, A: 255}, out.RGBAt(x, 0))
		assert.Equal(t, ir.RGBA{R: 0, G: 0, B: 255, A: 255}, out.RGBAt(x, 7))
	}
	// content keeps its color instead of turning black
	for y := 2; y < 6; y++ {
		for x := 0; x < 8; x++ {
			assert.Equal(t, ir.RGBA{R: 0, G: 0, B: 255, A: 255}, out.RGBAt(x, y), "(%d,%d)", x, y)
		}
	}
	assert.Equal(t, 1, out.CountColors())
}

func TestFitTransparentBackgroundHasNoSeam(t *testing.T) {
	src := solid(t, 4, 2, ir.RGBA{R: 255, G: 255, B: 255, A: 0})
	out, err := Fit(src, 8)
	require.NoError(t, err)
	assert.Equal(t, ir.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAt(0, 0))
	assert.Equal(t, ir.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAt(4, 4))
	assert.Equal(t, 1, out.CountColors())
}

func TestFitZeroOutputSize(t *testing.T) {
	src := solid(t, 100, 100, ir.RGBA{R: 255, G: 0, B: 0, A: 255})
	out, err := Fit(src, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Width)
	assert.Equal(t, 0, out.Height)
	assert.Empty(t, out.Pixels)
}

func TestFitLargeOutputSize(t *testing.T) {
	src := solid(t, 10, 10, ir.RGBA{R: 255, G: 0, B: 0, A: 255})
	out, err := Fit(src, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, out.Width)
	assert.Equal(t, 1000, out.Height)
}

func TestFitRejectsEmptySource(t *testing.T) {
	for _, dims := range [][2]int{{0, 10}, {10, 0}, {0, 0}} {
		src, err := ir.New(dims[0], dims[1], 4)
		require.NoError(t, err)
		_, err = Fit(src, 32)
		assert.ErrorIs(t, err, ErrEmptySource)
	}
	_, err := Fit(nil, 32)
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestFitRejectsNegativeSize(t *testing.T) {
	src := solid(t, 1, 1, ir.RGBA{})
	_, err := Fit(src, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestFitSliverKeepsBackground(t *testing.T) {
	src := solid(t, 1000, 1, ir.RGBA{R: 1, G: 2, B: 3, A: 255})
	out, err := Fit(src, 32)
	require.NoError(t, err)
	assert.Equal(t, 1, out.CountColors())
}
