package gps

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// ErrOutOfRange is returned when a latitude or longitude falls outside its valid range.
var ErrOutOfRange = errors.New("Coordinate out of range")

// Coordinate is a latitude, longitude pair in signed decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate returns a validated Coordinate.
func NewCoordinate(lat float64, lon float64) (Coordinate, error) {

	c := Coordinate{
		Latitude:  lat,
		Longitude: lon,
	}

	err := c.Validate()

	if err != nil {
		return Coordinate{}, err
	}

	return c, nil
}

func (c Coordinate) Validate() error {

	if c.Latitude < -90.0 || c.Latitude > 90.0 {
		return fmt.Errorf("%w, latitude %f", ErrOutOfRange, c.Latitude)
	}

	if c.Longitude < -180.0 || c.Longitude > 180.0 {
		return fmt.Errorf("%w, longitude %f", ErrOutOfRange, c.Longitude)
	}

	return nil
}

// Point returns c as an orb.Point. Note the [x, y] (longitude, latitude) ordering.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// String returns c formatted as "(lat, lon)".
func (c Coordinate) String() string {
	return fmt.Sprintf("(%s, %s)", FormatDegrees(c.Latitude), FormatDegrees(c.Longitude))
}

// FormatDegrees renders a decimal degree value with the shortest representation
// that round-trips.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
