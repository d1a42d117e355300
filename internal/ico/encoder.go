// Package ico reads and writes single-image Windows icon containers.
package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/paazmaya/chinenshichanaka/internal/ir"
)

var (
	// ErrChannelMismatch is returned by Encode for buffers that are not RGB.
	ErrChannelMismatch = errors.New("icon bitmap must have exactly 3 channels")
	// ErrEmptyImage is returned by Encode for nil or zero-area buffers.
	ErrEmptyImage = errors.New("icon bitmap has zero area")
	// ErrTooLarge is returned for images wider or taller than MaxSize.
	ErrTooLarge = errors.New("icon dimensions must not exceed 256x256 pixels")
	// ErrFormat is returned when data is not a readable icon container.
	ErrFormat = errors.New("not a valid icon container")
)

const (
	// MaxSize is the largest edge a directory entry can describe.
	MaxSize = 256

	dirSize        = 6
	entrySize      = 16
	infoHeaderSize = 40
	payloadOffset  = dirSize + entrySize
	bitCount       = 24
)

// Payload selects how the bitmap is stored inside the container.
type Payload string

const (
	// PayloadBMP stores a 24-bit bottom-up bitmap with an AND mask.
	PayloadBMP Payload = "bmp"
	// PayloadPNG stores a PNG stream, as Windows Vista and later accept.
	PayloadPNG Payload = "png"
)

// ParsePayload converts a payload name to a Payload.
func ParsePayload(s string) (Payload, error) {
	switch Payload(s) {
	case PayloadBMP, PayloadPNG:
		return Payload(s), nil
	default:
		return "", fmt.Errorf("unknown icon payload: %q", s)
	}
}

type iconDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

type dirEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	Size       uint32
	Offset     uint32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// Encode serializes bitmap as a one-entry icon. The bitmap must be a
// 3-channel buffer between 1x1 and 256x256.
func Encode(bitmap *ir.PixelBuffer, payload Payload) ([]byte, error) {
	if bitmap == nil {
		return nil, fmt.Errorf("%w: nil bitmap", ErrEmptyImage)
	}
	if bitmap.Channels != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrChannelMismatch, bitmap.Channels)
	}
	if err := bitmap.Validate(); err != nil {
		return nil, err
	}
	if bitmap.Empty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, bitmap.Width, bitmap.Height)
	}
	if bitmap.Width > MaxSize || bitmap.Height > MaxSize {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, bitmap.Width, bitmap.Height)
	}

	var body []byte
	var err error
	switch payload {
	case PayloadPNG:
		body, err = encodePNG(bitmap)
	case PayloadBMP, "":
		body, err = encodeBMP(bitmap)
	default:
		return nil, fmt.Errorf("unknown icon payload: %q", payload)
	}
	if err != nil {
		return nil, err
	}

	entry := dirEntry{
		Width:    dimByte(bitmap.Width),
		Height:   dimByte(bitmap.Height),
		Planes:   1,
		BitCount: bitCount,
		Size:     uint32(len(body)),
		Offset:   payloadOffset,
	}

	var buf bytes.Buffer
	buf.Grow(payloadOffset + len(body))
	if err := binary.Write(&buf, binary.LittleEndian, iconDir{Type: 1, Count: 1}); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, entry); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// dimByte stores 256 as 0 in the one-byte directory fields.
func dimByte(n int) uint8 {
	if n == MaxSize {
		return 0
	}
	return uint8(n)
}

func rowStride(width int) int {
	return (width*3 + 3) &^ 3
}

func maskStride(width int) int {
	return ((width + 31) / 32) * 4
}

// encodeBMP writes a headerless DIB: BITMAPINFOHEADER with doubled height,
// bottom-up BGR rows, then an all-zero AND mask.
func encodeBMP(b *ir.PixelBuffer) ([]byte, error) {
	stride := rowStride(b.Width)
	xorSize := stride * b.Height
	andSize := maskStride(b.Width) * b.Height

	hdr := bitmapInfoHeader{
		Size:      infoHeaderSize,
		Width:     int32(b.Width),
		Height:    int32(b.Height * 2),
		Planes:    1,
		BitCount:  bitCount,
		SizeImage: uint32(xorSize + andSize),
	}

	var buf bytes.Buffer
	buf.Grow(infoHeaderSize + xorSize + andSize)
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}

	row := make([]byte, stride)
	for y := b.Height - 1; y >= 0; y-- {
		src := b.Pixels[y*b.Width*3 : (y+1)*b.Width*3]
		for x := 0; x < b.Width; x++ {
			row[x*3] = src[x*3+2]
			row[x*3+1] = src[x*3+1]
			row[x*3+2] = src[x*3]
		}
		buf.Write(row)
	}
	buf.Write(make([]byte, andSize))
	return buf.Bytes(), nil
}

func encodePNG(b *ir.PixelBuffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, b.Image(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding png payload: %w", err)
	}
	return buf.Bytes(), nil
}
