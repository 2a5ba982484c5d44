// Package fixture builds small JPEG files carrying hand-assembled EXIF segments. It is
// used by tests to exercise the extractors against real container bytes.
package fixture

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"

	"github.com/sfomuseum/go-image-locator/gps"
)

const (
	typeASCII    uint16 = 2
	typeShort    uint16 = 3
	typeLong     uint16 = 4
	typeRational uint16 = 5
)

const (
	tagExifPointer uint16 = 0x8769
	tagGPSPointer  uint16 = 0x8825
)

// Options describes the EXIF contents of a fixture image.
type Options struct {
	Width  int
	Height int
	// Key/value pairs for ASCII tags in IFD0 (Make, Model, ...) keyed by tag id.
	IFD0 map[uint16]string
	// ASCII tags in the Exif sub-IFD keyed by tag id.
	ExifStrings map[uint16]string
	// Rational tags in the Exif sub-IFD keyed by tag id.
	ExifRationals map[uint16]gps.Rational
	// Short tags in the Exif sub-IFD keyed by tag id.
	ExifShorts map[uint16]uint16
	// GPS tags. Nil means no GPS sub-IFD is written.
	GPS *GPS
	// Omit the EXIF segment entirely.
	NoExif bool
}

// GPS describes the contents of a GPS sub-IFD. Empty references are not written.
type GPS struct {
	Latitude     [3]gps.Rational
	LatitudeRef  string
	Longitude    [3]gps.Rational
	LongitudeRef string
	// Only write the reference tags, not the angular values.
	RefsOnly bool
}

// DMS returns a whole-number degrees/minutes plus centi-second rational triple.
func DMS(deg int64, min int64, centisec int64) [3]gps.Rational {
	return [3]gps.Rational{
		{Numerator: deg, Denominator: 1},
		{Numerator: min, Denominator: 1},
		{Numerator: centisec, Denominator: 100},
	}
}

// DefaultOptions returns options for a 64x48 image with common camera tags and the
// supplied GPS block.
func DefaultOptions(g *GPS) *Options {

	return &Options{
		Width:  64,
		Height: 48,
		IFD0: map[uint16]string{
			271: "Canon",
			272: "Canon EOS 5D Mark IV",
		},
		ExifStrings: map[uint16]string{
			36867: "2021:06:15 14:30:00",
			42036: "EF24-70mm f/2.8L II USM",
		},
		ExifRationals: map[uint16]gps.Rational{
			33434: {Numerator: 1, Denominator: 250},
			33437: {Numerator: 28, Denominator: 10},
			37386: {Numerator: 50, Denominator: 1},
		},
		ExifShorts: map[uint16]uint16{
			34855: 200,
			37385: 16,
		},
		GPS: g,
	}
}

// WriteJPEG writes a fixture image to dir/name and returns its path.
func WriteJPEG(dir string, name string, opts *Options) (string, error) {

	body, err := JPEG(opts)

	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)

	err = os.WriteFile(path, body, 0644)

	if err != nil {
		return "", err
	}

	return path, nil
}

// JPEG returns the bytes of a fixture image.
func JPEG(opts *Options) ([]byte, error) {

	im := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))

	for x := 0; x < opts.Width; x++ {
		for y := 0; y < opts.Height; y++ {
			im.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 128, 255})
		}
	}

	var buf bytes.Buffer

	err := jpeg.Encode(&buf, im, &jpeg.Options{Quality: 90})

	if err != nil {
		return nil, err
	}

	enc := buf.Bytes()

	if opts.NoExif {
		return enc, nil
	}

	payload := append([]byte("Exif\x00\x00"), TIFF(opts)...)

	var out bytes.Buffer

	out.Write(enc[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(enc[2:])

	return out.Bytes(), nil
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, v string) entry {
	data := append([]byte(v), 0x00)
	return entry{tag, typeASCII, uint32(len(data)), data}
}

func shortEntry(tag uint16, v uint16) entry {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, v)
	return entry{tag, typeShort, 1, data}
}

func longEntry(tag uint16, v uint32) entry {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, v)
	return entry{tag, typeLong, 1, data}
}

func rationalEntry(tag uint16, values ...gps.Rational) entry {

	data := make([]byte, 8*len(values))

	for i, r := range values {
		binary.BigEndian.PutUint32(data[i*8:], uint32(r.Numerator))
		binary.BigEndian.PutUint32(data[i*8+4:], uint32(r.Denominator))
	}

	return entry{tag, typeRational, uint32(len(values)), data}
}

func ifdSize(entries []entry) uint32 {

	size := uint32(2 + 12*len(entries) + 4)

	for _, e := range entries {
		if len(e.data) > 4 {
			size += uint32(len(e.data) + len(e.data)%2)
		}
	}

	return size
}

// encodeIFD encodes entries as an IFD located at offset, followed by its value area.
func encodeIFD(entries []entry, offset uint32) []byte {

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].tag < entries[j].tag
	})

	var head bytes.Buffer
	var values bytes.Buffer

	value_offset := offset + uint32(2+12*len(entries)+4)

	binary.Write(&head, binary.BigEndian, uint16(len(entries)))

	for _, e := range entries {

		binary.Write(&head, binary.BigEndian, e.tag)
		binary.Write(&head, binary.BigEndian, e.typ)
		binary.Write(&head, binary.BigEndian, e.count)

		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			head.Write(inline)
			continue
		}

		binary.Write(&head, binary.BigEndian, value_offset+uint32(values.Len()))
		values.Write(e.data)

		if len(e.data)%2 != 0 {
			values.WriteByte(0x00)
		}
	}

	binary.Write(&head, binary.BigEndian, uint32(0)) // no next IFD

	return append(head.Bytes(), values.Bytes()...)
}

// TIFF returns a big-endian TIFF structure containing IFD0, an Exif sub-IFD and an
// optional GPS sub-IFD.
func TIFF(opts *Options) []byte {

	ifd0 := make([]entry, 0)

	for tag, v := range opts.IFD0 {
		ifd0 = append(ifd0, asciiEntry(tag, v))
	}

	exif_ifd := make([]entry, 0)

	for tag, v := range opts.ExifStrings {
		exif_ifd = append(exif_ifd, asciiEntry(tag, v))
	}

	for tag, v := range opts.ExifRationals {
		exif_ifd = append(exif_ifd, rationalEntry(tag, v))
	}

	for tag, v := range opts.ExifShorts {
		exif_ifd = append(exif_ifd, shortEntry(tag, v))
	}

	var gps_ifd []entry

	if opts.GPS != nil {

		g := opts.GPS
		gps_ifd = make([]entry, 0)

		if g.LatitudeRef != "" {
			gps_ifd = append(gps_ifd, asciiEntry(1, g.LatitudeRef))
		}

		if g.LongitudeRef != "" {
			gps_ifd = append(gps_ifd, asciiEntry(3, g.LongitudeRef))
		}

		if !g.RefsOnly {
			gps_ifd = append(gps_ifd, rationalEntry(2, g.Latitude[:]...))
			gps_ifd = append(gps_ifd, rationalEntry(4, g.Longitude[:]...))
		}
	}

	// Pointer entries are fixed size so offsets can be computed before encoding.

	ifd0 = append(ifd0, longEntry(tagExifPointer, 0))

	if gps_ifd != nil {
		ifd0 = append(ifd0, longEntry(tagGPSPointer, 0))
	}

	ifd0_offset := uint32(8)
	exif_offset := ifd0_offset + ifdSize(ifd0)
	gps_offset := exif_offset + ifdSize(exif_ifd)

	for i, e := range ifd0 {
		switch e.tag {
		case tagExifPointer:
			ifd0[i] = longEntry(tagExifPointer, exif_offset)
		case tagGPSPointer:
			ifd0[i] = longEntry(tagGPSPointer, gps_offset)
		}
	}

	var buf bytes.Buffer

	buf.Write([]byte("MM"))
	binary.Write(&buf, binary.BigEndian, uint16(42))
	binary.Write(&buf, binary.BigEndian, ifd0_offset)

	buf.Write(encodeIFD(ifd0, ifd0_offset))
	buf.Write(encodeIFD(exif_ifd, exif_offset))

	if gps_ifd != nil {
		buf.Write(encodeIFD(gps_ifd, gps_offset))
	}

	return buf.Bytes()
}
