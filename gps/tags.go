package gps

import (
	"errors"
	"fmt"
	"strings"
)

const (
	TagLatitude     = "GPSLatitude"
	TagLongitude    = "GPSLongitude"
	TagLatitudeRef  = "GPSLatitudeRef"
	TagLongitudeRef = "GPSLongitudeRef"
)

// ErrNoGPSData signals that the required latitude and longitude tags are absent. This is
// an expected outcome rather than a fault.
var ErrNoGPSData = errors.New("No GPS data")

// ErrMalformedTag signals that GPS tags are present but can not be decoded as rational
// or reference values.
var ErrMalformedTag = errors.New("Malformed GPS tag")

// Rational is an unsigned EXIF rational value.
type Rational struct {
	Numerator   int64
	Denominator int64
}

func (r Rational) Float() (float64, error) {

	if r.Denominator == 0 {
		return 0.0, fmt.Errorf("%w, zero denominator", ErrMalformedTag)
	}

	return float64(r.Numerator) / float64(r.Denominator), nil
}

// TagValue is a single raw GPS tag value. Angular tags populate Rationals, reference
// tags populate Ref.
type TagValue struct {
	Rationals []Rational
	Ref       string
}

func (v TagValue) String() string {

	if v.Rationals == nil {
		return v.Ref
	}

	parts := make([]string, len(v.Rationals))

	for i, r := range v.Rationals {
		parts[i] = fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
	}

	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// TagSet maps canonical EXIF GPS tag names to their raw values.
type TagSet map[string]TagValue

// DMS returns the degrees, minutes, seconds triple stored for tag.
func (t TagSet) DMS(tag string) ([3]float64, error) {

	var dms [3]float64

	v, ok := t[tag]

	if !ok {
		return dms, fmt.Errorf("%w, missing %s", ErrNoGPSData, tag)
	}

	if len(v.Rationals) != 3 {
		return dms, fmt.Errorf("%w, %s has %d values", ErrMalformedTag, tag, len(v.Rationals))
	}

	for i, r := range v.Rationals {

		f, err := r.Float()

		if err != nil {
			return dms, fmt.Errorf("Failed to derive %s, %w", tag, err)
		}

		dms[i] = f
	}

	return dms, nil
}

// Ref returns the hemisphere reference stored for tag, or fallback if the tag is absent.
func (t TagSet) Ref(tag string, fallback string) string {

	v, ok := t[tag]

	if !ok {
		return fallback
	}

	ref := strings.ToUpper(strings.Trim(v.Ref, "\x00 "))

	if ref == "" {
		return fallback
	}

	return ref
}

// HasCoordinate reports whether both the latitude and longitude tags are present.
func (t TagSet) HasCoordinate() bool {

	_, lat_ok := t[TagLatitude]
	_, lon_ok := t[TagLongitude]

	return lat_ok && lon_ok
}

// Coordinate derives a decimal Coordinate from the tag set. References default to "N"
// and "E". Absent tags yield ErrNoGPSData; everything else that fails to decode, including
// a bogus reference, yields ErrMalformedTag.
func (t TagSet) Coordinate() (Coordinate, error) {

	if !t.HasCoordinate() {
		return Coordinate{}, ErrNoGPSData
	}

	lat_dms, err := t.DMS(TagLatitude)

	if err != nil {
		return Coordinate{}, err
	}

	lon_dms, err := t.DMS(TagLongitude)

	if err != nil {
		return Coordinate{}, err
	}

	lat, err := ToDecimal(lat_dms, t.Ref(TagLatitudeRef, "N"))

	if err != nil {
		return Coordinate{}, fmt.Errorf("%w, %w", ErrMalformedTag, err)
	}

	lon, err := ToDecimal(lon_dms, t.Ref(TagLongitudeRef, "E"))

	if err != nil {
		return Coordinate{}, fmt.Errorf("%w, %w", ErrMalformedTag, err)
	}

	c, err := NewCoordinate(lat, lon)

	if err != nil {
		return Coordinate{}, fmt.Errorf("%w, %w", ErrMalformedTag, err)
	}

	return c, nil
}
