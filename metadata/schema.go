package metadata

import (
	"strconv"
	"strings"

	"github.com/sfomuseum/go-image-locator/extract"
)

const (
	TagMake               uint16 = 271
	TagModel              uint16 = 272
	TagXResolution        uint16 = 282
	TagYResolution        uint16 = 283
	TagExposureTime       uint16 = 33434
	TagFNumber            uint16 = 33437
	TagISOSpeedRatings    uint16 = 34855
	TagDateTimeOriginal   uint16 = 36867
	TagOffsetTimeOriginal uint16 = 36881
	TagFlash              uint16 = 37385
	TagFocalLength        uint16 = 37386
	TagLensModel          uint16 = 42036
)

// FormatFunc derives a display value for tag from a tag index. It returns false if the
// value is absent or can not be derived.
type FormatFunc func(idx extract.TagIndex, tag uint16) (string, bool)

// FieldSpec describes a single camera field: where it comes from and what to write when
// it is missing.
type FieldSpec struct {
	Label   string
	Tag     uint16
	Default string
	// Optional. If nil the raw tag value is used.
	Format FormatFunc
}

// Value returns the display value for the field, or its default.
func (s FieldSpec) Value(idx extract.TagIndex) string {

	format := s.Format

	if format == nil {
		format = formatTag
	}

	v, ok := format(idx, s.Tag)

	if !ok {
		return s.Default
	}

	return v
}

// DefaultSchema is the ordered list of camera fields written after the file name and
// image size of every record.
var DefaultSchema = []FieldSpec{
	{Label: LabelResolution, Tag: TagXResolution, Default: NotAvailable, Format: formatResolution},
	{Label: LabelDate, Tag: TagDateTimeOriginal, Default: NotAvailable, Format: formatDate},
	{Label: LabelTime, Tag: TagDateTimeOriginal, Default: NotAvailable, Format: formatTime},
	{Label: LabelTimeZone, Tag: TagOffsetTimeOriginal, Default: NotAvailable},
	{Label: LabelBrand, Tag: TagMake, Default: NotAvailable},
	{Label: LabelModel, Tag: TagModel, Default: NotAvailable},
	{Label: LabelLensInfo, Tag: TagLensModel, Default: NotAvailable},
	{Label: LabelShutter, Tag: TagExposureTime, Default: NotAvailable},
	{Label: LabelFNumber, Tag: TagFNumber, Default: NotAvailable},
	{Label: LabelISOSpeed, Tag: TagISOSpeedRatings, Default: NotAvailable},
	{Label: LabelFlash, Tag: TagFlash, Default: NotAvailable, Format: formatFlash},
	{Label: LabelFocalLength, Tag: TagFocalLength, Default: NotAvailable},
}

func formatTag(idx extract.TagIndex, tag uint16) (string, bool) {
	return idx.Get(tag)
}

func formatResolution(idx extract.TagIndex, tag uint16) (string, bool) {

	x, ok := idx.Get(tag)

	if !ok {
		return "", false
	}

	y, ok := idx.Get(TagYResolution)

	if !ok || y == x {
		return x, true
	}

	return x + " x " + y, true
}

// EXIF datetimes look like "2006:01:02 15:04:05"

func splitDateTime(idx extract.TagIndex, tag uint16) (string, string, bool) {

	v, ok := idx.Get(tag)

	if !ok {
		return "", "", false
	}

	parts := strings.SplitN(strings.TrimSpace(v), " ", 2)

	if len(parts) != 2 {
		return parts[0], "", true
	}

	return parts[0], parts[1], true
}

func formatDate(idx extract.TagIndex, tag uint16) (string, bool) {

	d, _, ok := splitDateTime(idx, tag)

	if !ok || d == "" {
		return "", false
	}

	return d, true
}

func formatTime(idx extract.TagIndex, tag uint16) (string, bool) {

	_, t, ok := splitDateTime(idx, tag)

	if !ok || t == "" {
		return "", false
	}

	return t, true
}

func formatFlash(idx extract.TagIndex, tag uint16) (string, bool) {

	v, ok := idx.Get(tag)

	if !ok {
		return "", false
	}

	i, err := strconv.Atoi(v)

	if err != nil {
		return v, true
	}

	// Bit 0 is "flash fired"; the remaining bits describe return light and mode.

	if i&1 == 1 {
		return "Fired", true
	}

	return "Did not fire", true
}
