// Package raster renders SVG documents into pixel buffers.
package raster

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

// ErrParse is returned for empty, malformed or non-SVG markup.
var ErrParse = errors.New("could not parse SVG document")

var bom = []byte("\xef\xbb\xbf")

type root struct {
	name          string
	width, height float64
}

// scan returns the root element. With full set the whole document is read
// so that any later syntax error is reported too.
func scan(data []byte, full bool) (*root, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Entity = xml.HTMLEntity
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var r *root
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || r != nil {
			continue
		}
		r = &root{name: se.Name.Local}
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "width":
				r.width = length(a.Value)
			case "height":
				r.height = length(a.Value)
			}
		}
		if !full {
			break
		}
	}
	if r == nil {
		return nil, errors.New("no root element")
	}
	return r, nil
}

// length parses "32", "32px" or "32.5"; other units give 0.
func length(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// IsSVG reports whether data looks like an SVG document.
func IsSVG(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, bom), " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return false
	}
	r, err := scan(trimmed, false)
	return err == nil && r.name == "svg"
}

// Rasterize paints the document onto a transparent size x size canvas,
// scaling its view box to fill the canvas. The result has 4 channels.
func Rasterize(data []byte, size int) (pb *ir.PixelBuffer, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}
	data = bytes.TrimPrefix(data, bom)
	r, err := scan(data, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if r.name != "svg" {
		return nil, fmt.Errorf("%w: root element is <%s>", ErrParse, r.name)
	}

	defer func() {
		if p := recover(); p != nil {
			pb, err = nil, fmt.Errorf("%w: renderer: %v", ErrParse, p)
		}
	}()

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		w, h := r.width, r.height
		if w <= 0 || h <= 0 {
			w, h = float64(size), float64(size)
		}
		icon.ViewBox.X, icon.ViewBox.Y = 0, 0
		icon.ViewBox.W, icon.ViewBox.H = w, h
	}

	icon.SetTarget(0, 0, float64(size), float64(size))
	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	gv := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(size, size, gv)
	icon.Draw(dasher, 1.0)

	return ir.FromImage(rgba), nil
}
