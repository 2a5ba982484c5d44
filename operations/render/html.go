package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/sfomuseum/go-image-locator/common"
	"github.com/sfomuseum/go-image-locator/gps"
)

const LeafletVersion = "1.9.4"

const mapTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8" />
<title>{{ .Title }}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<link rel="stylesheet" href="https://unpkg.com/leaflet@{{ .LeafletVersion }}/dist/leaflet.css" />
<script src="https://unpkg.com/leaflet@{{ .LeafletVersion }}/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var features = {{ .Features }};
var map = L.map("map").setView([{{ .Latitude }}, {{ .Longitude }}], {{ .Zoom }});

L.tileLayer("https://tile.openstreetmap.org/{z}/{x}/{y}.png", {
    maxZoom: 19,
    attribution: "&copy; OpenStreetMap contributors"
}).addTo(map);

L.geoJSON(features, {
    onEachFeature: function(feature, layer){
        layer.bindPopup(feature.properties.label);
    }
}).addTo(map);
{{ if .FitBounds }}
map.fitBounds([[{{ .MinLatitude }}, {{ .MinLongitude }}], [{{ .MaxLatitude }}, {{ .MaxLongitude }}]]);
{{ end }}
</script>
</body>
</html>
`

var map_t = template.Must(template.New("map").Parse(mapTemplate))

type mapVars struct {
	Title          string
	LeafletVersion string
	Features       template.JS
	Latitude       float64
	Longitude      float64
	MinLatitude    float64
	MinLongitude   float64
	MaxLatitude    float64
	MaxLongitude   float64
	Zoom           int
	FitBounds      bool
}

// HTML returns a self-contained Leaflet document for the map.
func (m *Map) HTML() ([]byte, error) {

	enc_fc, err := m.FeatureCollection().MarshalJSON()

	if err != nil {
		return nil, fmt.Errorf("Failed to marshal features, %w", err)
	}

	vars := mapVars{
		Title:          fmt.Sprintf("%d image location(s)", len(m.Markers)),
		LeafletVersion: LeafletVersion,
		Features:       template.JS(enc_fc),
		Latitude:       m.Center.Latitude,
		Longitude:      m.Center.Longitude,
		MinLatitude:    m.Bounds.Min.Lat(),
		MinLongitude:   m.Bounds.Min.Lon(),
		MaxLatitude:    m.Bounds.Max.Lat(),
		MaxLongitude:   m.Bounds.Max.Lon(),
		Zoom:           m.Zoom,
		FitBounds:      !m.IsDegenerate(),
	}

	var buf bytes.Buffer

	err = map_t.Execute(&buf, vars)

	if err != nil {
		return nil, fmt.Errorf("Failed to render map template, %w", err)
	}

	return buf.Bytes(), nil
}

// BuildMap writes a map document for coords to output_path and returns the absolute path
// of the document. If coords is empty nothing is written and an empty string is returned.
func BuildMap(ctx context.Context, coords []gps.Coordinate, output_path string) (string, error) {

	logger := slog.Default()
	logger = logger.With("path", output_path)

	if len(coords) == 0 {
		logger.Debug("No coordinates, skipping map")
		return "", nil
	}

	m, err := NewMap(coords)

	if err != nil {
		return "", err
	}

	body, err := m.HTML()

	if err != nil {
		return "", err
	}

	abs_path, err := common.WriteFile(ctx, output_path, body)

	if err != nil {
		return "", fmt.Errorf("Failed to write map, %w", err)
	}

	logger.Debug("Wrote map", "markers", len(m.Markers), "fit", !m.IsDegenerate())
	return abs_path, nil
}
