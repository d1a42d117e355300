// Package decode turns raster image bytes into pixel buffers.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	goico "github.com/sergeymakinen/go-ico"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/paazmaya/chinenshichanaka/internal/ico"
	"github.com/paazmaya/chinenshichanaka/internal/ir"
	"github.com/paazmaya/chinenshichanaka/internal/raster"
)

var (
	ErrDecode   = errors.New("could not decode image")
	ErrTooLarge = errors.New("image exceeds the pixel limit")
)

// Format is a sniffed input format. Raster formats use the names
// registered with the image package ("png", "jpeg", "gif", "bmp", ...).
type Format string

const (
	FormatSVG     Format = "svg"
	FormatICO     Format = "ico"
	FormatUnknown Format = "unknown"
)

// ImageInfo describes an input without decoding its pixels.
type ImageInfo struct {
	Format     Format
	Width      int
	Height     int
	ColorModel string
	Entries    []ico.Entry // icon directory, only for FormatICO
}

// Sniff identifies data by content.
func Sniff(data []byte) Format {
	switch {
	case ico.Sniff(data):
		return FormatICO
	case raster.IsSVG(data):
		return FormatSVG
	}
	if _, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return Format(name)
	}
	return FormatUnknown
}

// Info reads dimensions and color model. SVG documents report zero
// dimensions since they are resolution independent.
func Info(data []byte) (*ImageInfo, error) {
	switch f := Sniff(data); f {
	case FormatSVG:
		return &ImageInfo{Format: f, ColorModel: "RGBA"}, nil
	case FormatICO:
		dir, err := ico.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		e := dir.Largest()
		return &ImageInfo{
			Format:     f,
			Width:      e.Width,
			Height:     e.Height,
			ColorModel: fmt.Sprintf("%d-bit %s", e.BitCount, e.Payload),
			Entries:    dir.Entries,
		}, nil
	case FormatUnknown:
		return nil, fmt.Errorf("%w: unrecognized format", ErrDecode)
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &ImageInfo{
		Format:     Format(name),
		Width:      cfg.Width,
		Height:     cfg.Height,
		ColorModel: modelName(cfg.ColorModel),
	}, nil
}

func modelName(m color.Model) string {
	if p, ok := m.(color.Palette); ok {
		return fmt.Sprintf("Paletted(%d)", len(p))
	}
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBAModel:
		return "NRGBA"
	case color.NRGBA64Model:
		return "NRGBA64"
	case color.AlphaModel, color.Alpha16Model:
		return "Alpha"
	case color.GrayModel:
		return "Gray"
	case color.Gray16Model:
		return "Gray16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.NYCbCrAModel:
		return "NYCbCrA"
	case color.CMYKModel:
		return "CMYK"
	}
	return "unknown"
}

// Decode decodes a raster image. EXIF orientation is applied. Images with
// more than maxPixels pixels are rejected before their pixels are read;
// maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int) (*ir.PixelBuffer, error) {
	switch Sniff(data) {
	case FormatICO:
		return decodeICO(data, maxPixels)
	case FormatSVG:
		return nil, fmt.Errorf("%w: svg input must be rasterized", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d > %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return ir.FromImage(img), nil
}

// decodeICO reads 24/32-bit and PNG entries locally and hands other bit
// depths to the general icon decoder. Every entry is checked against the
// icon size limit and maxPixels before any pixels are read.
func decodeICO(data []byte, maxPixels int) (*ir.PixelBuffer, error) {
	dir, err := ico.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	for i, e := range dir.Entries {
		w, h, err := ico.PayloadDimensions(data, e)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrDecode, i, err)
		}
		if w > ico.MaxSize || h > ico.MaxSize || (maxPixels > 0 && w*h > maxPixels) {
			return nil, fmt.Errorf("%w: entry %d is %dx%d", ErrTooLarge, i, w, h)
		}
	}

	pb, err := ico.Decode(data)
	if err == nil {
		return pb, nil
	}
	img, gerr := goico.Decode(bytes.NewReader(data))
	if gerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, errors.Join(err, gerr))
	}
	return ir.FromImage(img), nil
}
