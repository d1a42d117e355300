package ico

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

// Decode returns the pixels of the largest image in the container.
// BMP payloads of 24 or 32 bits per pixel and PNG payloads are supported;
// 24-bit images come back with 3 channels, everything else with 4.
func Decode(data []byte) (*ir.PixelBuffer, error) {
	dir, err := Parse(data)
	if err != nil {
		return nil, err
	}
	e := dir.Largest()
	payload := data[e.Offset : e.Offset+e.Size]

	if e.Payload == PayloadPNG {
		w, h, err := PayloadDimensions(data, e)
		if err != nil {
			return nil, err
		}
		if w > MaxSize || h > MaxSize {
			return nil, fmt.Errorf("%w: png payload is %dx%d", ErrTooLarge, w, h)
		}
		img, err := imaging.Decode(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: png payload: %v", ErrFormat, err)
		}
		return ir.FromImage(img), nil
	}
	return decodeBMP(payload)
}

func decodeBMP(payload []byte) (*ir.PixelBuffer, error) {
	var hdr bitmapInfoHeader
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: bitmap header: %v", ErrFormat, err)
	}
	if hdr.Size < infoHeaderSize || uint64(hdr.Size) > uint64(len(payload)) || hdr.Compression != 0 {
		return nil, fmt.Errorf("%w: unsupported bitmap header (size %d, compression %d)",
			ErrFormat, hdr.Size, hdr.Compression)
	}

	width := int(hdr.Width)
	height := int(hdr.Height) / 2
	bottomUp := true
	if height < 0 {
		height, bottomUp = -height, false
	}
	if width <= 0 || height == 0 || width > MaxSize || height > MaxSize {
		return nil, fmt.Errorf("%w: bitmap dimensions %dx%d", ErrFormat, width, height)
	}

	var bpp int
	switch hdr.BitCount {
	case 24:
		bpp = 3
	case 32:
		bpp = 4
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel not supported", ErrFormat, hdr.BitCount)
	}

	stride := (width*bpp + 3) &^ 3
	pix := payload[hdr.Size:]
	if len(pix) < stride*height {
		return nil, fmt.Errorf("%w: bitmap truncated", ErrFormat)
	}

	out, err := ir.New(width, height, bpp)
	if err != nil {
		return nil, err
	}
	for row := 0; row < height; row++ {
		y := row
		if bottomUp {
			y = height - 1 - row
		}
		src := pix[row*stride:]
		dst := out.Pixels[y*width*bpp:]
		for x := 0; x < width; x++ {
			dst[x*bpp] = src[x*bpp+2]
			dst[x*bpp+1] = src[x*bpp+1]
			dst[x*bpp+2] = src[x*bpp]
			if bpp == 4 {
				dst[x*bpp+3] = src[x*bpp+3]
			}
		}
	}
	return out, nil
}
