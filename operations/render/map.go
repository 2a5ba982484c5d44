// Package render builds browser-viewable map documents with one marker per image location.
package render

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sfomuseum/go-image-locator/gps"
)

// ErrNoCoordinates is returned by NewMap when there is nothing to map.
var ErrNoCoordinates = errors.New("No coordinates to map")

// DefaultZoom is the initial zoom level of a map, and the only zoom level of a map whose
// bounds collapse to a single point.
const DefaultZoom = 10

const (
	DefaultSingleMapFilename   = "map.html"
	DefaultCombinedMapFilename = "combined_map.html"
)

// Marker is a labelled map location.
type Marker struct {
	Label      string
	Coordinate gps.Coordinate
}

// Map describes the view and markers of a map document.
type Map struct {
	Bounds  orb.Bound
	Center  gps.Coordinate
	Zoom    int
	Markers []Marker
}

// NewMap returns a Map centered on the midpoint of the bounding box of coords with one
// marker per coordinate, labelled "Image N" in input order.
func NewMap(coords []gps.Coordinate) (*Map, error) {

	if len(coords) == 0 {
		return nil, ErrNoCoordinates
	}

	mp := make(orb.MultiPoint, len(coords))
	markers := make([]Marker, len(coords))

	for i, c := range coords {

		err := c.Validate()

		if err != nil {
			return nil, fmt.Errorf("Invalid coordinate at position %d, %w", i, err)
		}

		mp[i] = c.Point()

		markers[i] = Marker{
			Label:      fmt.Sprintf("Image %d", i+1),
			Coordinate: c,
		}
	}

	bounds := mp.Bound()

	// For a single coordinate this is the coordinate itself.

	center := gps.Coordinate{
		Latitude:  (bounds.Min.Lat() + bounds.Max.Lat()) / 2,
		Longitude: (bounds.Min.Lon() + bounds.Max.Lon()) / 2,
	}

	m := &Map{
		Bounds:  bounds,
		Center:  center,
		Zoom:    DefaultZoom,
		Markers: markers,
	}

	return m, nil
}

// IsDegenerate reports whether the map's bounds collapse to a single point, in which case
// the view is not fitted to them.
func (m *Map) IsDegenerate() bool {
	return m.Bounds.Min.Equal(m.Bounds.Max)
}

// FeatureCollection returns the map's markers as a GeoJSON FeatureCollection, with a bbox.
func (m *Map) FeatureCollection() *geojson.FeatureCollection {

	fc := geojson.NewFeatureCollection()

	for i, mk := range m.Markers {

		f := geojson.NewFeature(mk.Coordinate.Point())
		f.Properties["label"] = mk.Label
		f.Properties["position"] = i + 1

		fc.Append(f)
	}

	fc.BBox = geojson.NewBBox(m.Bounds)
	return fc
}
