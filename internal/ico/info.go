package ico

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/png"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Entry describes one image of an icon directory.
type Entry struct {
	Width      int // 1..256
	Height     int
	ColorCount int
	Planes     int
	BitCount   int
	Size       uint32
	Offset     uint32
	Payload    Payload
}

// Directory holds the parsed icon header.
type Directory struct {
	Entries []Entry
}

// Sniff reports whether data starts with an icon directory header.
func Sniff(data []byte) bool {
	if len(data) < dirSize {
		return false
	}
	return binary.LittleEndian.Uint16(data[0:]) == 0 &&
		binary.LittleEndian.Uint16(data[2:]) == 1 &&
		binary.LittleEndian.Uint16(data[4:]) > 0
}

// Parse reads the icon directory without decoding any pixels.
func Parse(data []byte) (*Directory, error) {
	if !Sniff(data) {
		return nil, ErrFormat
	}
	r := bytes.NewReader(data)
	var dir iconDir
	if err := binary.Read(r, binary.LittleEndian, &dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	d := &Directory{Entries: make([]Entry, 0, dir.Count)}
	for i := 0; i < int(dir.Count); i++ {
		var de dirEntry
		if err := binary.Read(r, binary.LittleEndian, &de); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrFormat, i, err)
		}
		end := uint64(de.Offset) + uint64(de.Size)
		if de.Size == 0 || end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: entry %d payload %d+%d outside %d bytes",
				ErrFormat, i, de.Offset, de.Size, len(data))
		}

		e := Entry{
			Width:      fromDimByte(de.Width),
			Height:     fromDimByte(de.Height),
			ColorCount: int(de.ColorCount),
			Planes:     int(de.Planes),
			BitCount:   int(de.BitCount),
			Size:       de.Size,
			Offset:     de.Offset,
			Payload:    PayloadBMP,
		}
		if bytes.HasPrefix(data[de.Offset:end], pngMagic) {
			e.Payload = PayloadPNG
		}
		d.Entries = append(d.Entries, e)
	}
	return d, nil
}

func fromDimByte(b uint8) int {
	if b == 0 {
		return MaxSize
	}
	return int(b)
}

// Largest returns the entry with the biggest area.
func (d *Directory) Largest() Entry {
	best := d.Entries[0]
	for _, e := range d.Entries[1:] {
		if e.Width*e.Height > best.Width*best.Height {
			best = e
		}
	}
	return best
}

// PayloadDimensions reads the width and height stored inside the payload of
// e, which may differ from the directory bytes.
func PayloadDimensions(data []byte, e Entry) (int, int, error) {
	payload := data[e.Offset : e.Offset+e.Size]
	if e.Payload == PayloadPNG {
		cfg, err := png.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: png payload: %v", ErrFormat, err)
		}
		return cfg.Width, cfg.Height, nil
	}

	var hdr bitmapInfoHeader
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &hdr); err != nil {
		return 0, 0, fmt.Errorf("%w: bitmap header: %v", ErrFormat, err)
	}
	w, h := int(hdr.Width), int(hdr.Height)/2
	if h < 0 {
		h = -h
	}
	if w <= 0 || h == 0 {
		return 0, 0, fmt.Errorf("%w: bitmap dimensions %dx%d", ErrFormat, w, h)
	}
	return w, h, nil
}
