// Package metadata assembles ordered, schema-stable metadata records for images and
// collects them in to sessions.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NotAvailable is the value assigned to any field that is absent or could not be derived.
const NotAvailable = "N/A"

const (
	LabelFileName    = "File Name"
	LabelImageSize   = "Image Size"
	LabelResolution  = "Resolution"
	LabelDate        = "Date"
	LabelTime        = "Time"
	LabelTimeZone    = "Time Zone"
	LabelBrand       = "Brand"
	LabelModel       = "Model"
	LabelLensInfo    = "Lens Info"
	LabelShutter     = "Shutter"
	LabelFNumber     = "F Number"
	LabelISOSpeed    = "Iso Speed"
	LabelFlash       = "Flash"
	LabelFocalLength = "Focal Length"
	LabelLatitude    = "Latitude"
	LabelLongitude   = "Longitude"
	LabelCoordinate  = "Coordinate"
	LabelGPSData     = "GPS Data"
	LabelCity        = "City"
	LabelCountry     = "Country"
	LabelFileHash    = "File Hash (SHA-256)"
)

// NoGPSData is the value of the single LabelGPSData field written in place of the
// latitude, longitude and coordinate fields for images without GPS data.
const NoGPSData = "No GPS data found."

// Field is a single label, value pair in a Record.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Record is an append-only, ordered list of fields describing a single image.
type Record struct {
	fields []Field
}

func NewRecord() *Record {

	r := &Record{
		fields: make([]Field, 0),
	}

	return r
}

// Append adds a field to the end of the record. Empty values are replaced with NotAvailable.
func (r *Record) Append(label string, value string) {

	if value == "" {
		value = NotAvailable
	}

	r.fields = append(r.fields, Field{
		Label: label,
		Value: value,
	})
}

// Fields returns a copy of the record's fields, in order.
func (r *Record) Fields() []Field {
	fields := make([]Field, len(r.fields))
	copy(fields, r.fields)
	return fields
}

// Labels returns the record's labels, in order.
func (r *Record) Labels() []string {

	labels := make([]string, len(r.fields))

	for i, f := range r.fields {
		labels[i] = f.Label
	}

	return labels
}

func (r *Record) Len() int {
	return len(r.fields)
}

// Get returns the value of the first field with label.
func (r *Record) Get(label string) (string, bool) {

	for _, f := range r.fields {
		if f.Label == label {
			return f.Value, true
		}
	}

	return "", false
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

func (r *Record) String() string {

	var sb strings.Builder

	for _, f := range r.fields {
		sb.WriteString(fmt.Sprintf("%s: %s\n", f.Label, f.Value))
	}

	return sb.String()
}
