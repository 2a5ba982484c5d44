package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sfomuseum/go-image-locator/extract"
	"github.com/sfomuseum/go-image-locator/geocode"
	"github.com/sfomuseum/go-image-locator/gps"
	"github.com/sfomuseum/go-image-locator/internal/fixture"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

var cameraLabels = []string{
	LabelFileName,
	LabelImageSize,
	LabelResolution,
	LabelDate,
	LabelTime,
	LabelTimeZone,
	LabelBrand,
	LabelModel,
	LabelLensInfo,
	LabelShutter,
	LabelFNumber,
	LabelISOSpeed,
	LabelFlash,
	LabelFocalLength,
}

func expectedLabels(has_gps bool) []string {

	labels := append([]string{}, cameraLabels...)

	if has_gps {
		labels = append(labels, LabelLatitude, LabelLongitude, LabelCoordinate)
	} else {
		labels = append(labels, LabelGPSData)
	}

	return append(labels, LabelCity, LabelCountry, LabelFileHash)
}

func testBucket(t *testing.T) (*blob.Bucket, string) {

	t.Helper()

	dir := t.TempDir()

	bucket, err := fileblob.OpenBucket(dir, nil)

	if err != nil {
		t.Fatalf("Failed to open bucket, %v", err)
	}

	t.Cleanup(func() {
		bucket.Close()
	})

	return bucket, dir
}

func writeFixture(t *testing.T, dir string, name string, opts *fixture.Options) string {

	t.Helper()

	path, err := fixture.WriteJPEG(dir, name, opts)

	if err != nil {
		t.Fatalf("Failed to write fixture %s, %v", name, err)
	}

	return path
}

func staticGeocoder(city string, country string) geocode.ReverseGeocodeFunc {

	return func(ctx context.Context, lat float64, lon float64) (*geocode.Place, error) {
		return &geocode.Place{City: city, Country: country}, nil
	}
}

func TestAggregateWithGPS(t *testing.T) {

	ctx := context.Background()
	bucket, dir := testBucket(t)

	g := &fixture.GPS{
		Latitude:     fixture.DMS(40, 30, 0),
		LatitudeRef:  "N",
		Longitude:    fixture.DMS(74, 30, 0),
		LongitudeRef: "W",
	}

	path := writeFixture(t, dir, "nyc.jpg", fixture.DefaultOptions(g))

	opts := &AggregatorOptions{
		Geocoder: staticGeocoder("New York", "United States"),
	}

	agg, err := NewAggregatorWithOptions(opts).Aggregate(ctx, bucket, "nyc.jpg")

	if err != nil {
		t.Fatalf("Failed to aggregate, %v", err)
	}

	rec := agg.Record

	if !reflect.DeepEqual(rec.Labels(), expectedLabels(true)) {
		t.Fatalf("Unexpected labels %v", rec.Labels())
	}

	if agg.Status != gps.StatusPresent || agg.Coordinate == nil {
		t.Fatalf("Expected GPS data, got status %s", agg.Status)
	}

	expected := map[string]string{
		LabelFileName:    "nyc.jpg",
		LabelImageSize:   "64 x 48",
		LabelDate:        "2021:06:15",
		LabelTime:        "14:30:00",
		LabelBrand:       "Canon",
		LabelModel:       "Canon EOS 5D Mark IV",
		LabelShutter:     "1/250",
		LabelFNumber:     "2.8",
		LabelISOSpeed:    "200",
		LabelFlash:       "Did not fire",
		LabelFocalLength: "50",
		LabelResolution:  NotAvailable,
		LabelLatitude:    "40.5",
		LabelLongitude:   "-74.5",
		LabelCoordinate:  "(40.5, -74.5)",
		LabelCity:        "New York",
		LabelCountry:     "United States",
	}

	for label, value := range expected {

		v, ok := rec.Get(label)

		if !ok || v != value {
			t.Fatalf("Unexpected value for %s: '%s' (expected '%s')", label, v, value)
		}
	}

	body, err := os.ReadFile(path)

	if err != nil {
		t.Fatalf("Failed to read fixture, %v", err)
	}

	sum := sha256.Sum256(body)

	h, _ := rec.Get(LabelFileHash)

	if h != hex.EncodeToString(sum[:]) {
		t.Fatalf("Unexpected hash %s", h)
	}
}

func TestAggregateWithoutGPS(t *testing.T) {

	ctx := context.Background()
	bucket, dir := testBucket(t)

	writeFixture(t, dir, "plain.jpg", fixture.DefaultOptions(nil))

	refs_only := fixture.DefaultOptions(&fixture.GPS{
		LatitudeRef:  "N",
		LongitudeRef: "E",
		RefsOnly:     true,
	})

	writeFixture(t, dir, "refs.jpg", refs_only)

	called := false

	opts := &AggregatorOptions{
		Geocoder: func(ctx context.Context, lat float64, lon float64) (*geocode.Place, error) {
			called = true
			return &geocode.Place{}, nil
		},
	}

	a := NewAggregatorWithOptions(opts)

	for _, key := range []string{"plain.jpg", "refs.jpg"} {

		agg, err := a.Aggregate(ctx, bucket, key)

		if err != nil {
			t.Fatalf("Failed to aggregate %s, %v", key, err)
		}

		rec := agg.Record

		if !reflect.DeepEqual(rec.Labels(), expectedLabels(false)) {
			t.Fatalf("Unexpected labels for %s: %v", key, rec.Labels())
		}

		count := 0

		for _, f := range rec.Fields() {

			switch f.Label {
			case LabelGPSData:
				count += 1
			case LabelLatitude, LabelLongitude, LabelCoordinate:
				t.Fatalf("Unexpected %s field for %s", f.Label, key)
			}
		}

		if count != 1 {
			t.Fatalf("Expected exactly one GPS sentinel for %s, got %d", key, count)
		}

		v, _ := rec.Get(LabelGPSData)

		if v != NoGPSData {
			t.Fatalf("Unexpected GPS sentinel '%s'", v)
		}

		city, _ := rec.Get(LabelCity)

		if city != NotAvailable {
			t.Fatalf("Expected sentinel city for %s, got '%s'", key, city)
		}

		if agg.Coordinate != nil {
			t.Fatalf("Unexpected coordinate for %s", key)
		}
	}

	if called {
		t.Fatalf("Geocoder should not be called for images without GPS data")
	}
}

func TestAggregateNullIsland(t *testing.T) {

	ctx := context.Background()
	bucket, dir := testBucket(t)

	g := &fixture.GPS{
		Latitude:     fixture.DMS(0, 0, 0),
		LatitudeRef:  "N",
		Longitude:    fixture.DMS(0, 0, 0),
		LongitudeRef: "E",
	}

	writeFixture(t, dir, "null.jpg", fixture.DefaultOptions(g))

	agg, err := NewAggregator().Aggregate(ctx, bucket, "null.jpg")

	if err != nil {
		t.Fatalf("Failed to aggregate, %v", err)
	}

	if agg.Coordinate == nil {
		t.Fatalf("Expected (0, 0) to be treated as present, status %s", agg.Status)
	}

	if agg.Coordinate.Latitude != 0.0 || agg.Coordinate.Longitude != 0.0 {
		t.Fatalf("Unexpected coordinate %v", agg.Coordinate)
	}

	v, _ := agg.Record.Get(LabelCoordinate)

	if v != "(0, 0)" {
		t.Fatalf("Unexpected coordinate field '%s'", v)
	}
}

func TestAggregateGeocodeFailure(t *testing.T) {

	ctx := context.Background()
	bucket, dir := testBucket(t)

	g := &fixture.GPS{
		Latitude:  fixture.DMS(10, 0, 0),
		Longitude: fixture.DMS(20, 0, 0),
	}

	writeFixture(t, dir, "remote.jpg", fixture.DefaultOptions(g))

	opts := &AggregatorOptions{
		Geocoder: func(ctx context.Context, lat float64, lon float64) (*geocode.Place, error) {
			return nil, errors.New("Service unavailable")
		},
	}

	agg, err := NewAggregatorWithOptions(opts).Aggregate(ctx, bucket, "remote.jpg")

	if err != nil {
		t.Fatalf("Failed to aggregate, %v", err)
	}

	if !reflect.DeepEqual(agg.Record.Labels(), expectedLabels(true)) {
		t.Fatalf("Unexpected labels %v", agg.Record.Labels())
	}

	for _, label := range []string{LabelCity, LabelCountry} {

		v, _ := agg.Record.Get(label)

		if v != NotAvailable {
			t.Fatalf("Expected sentinel for %s, got '%s'", label, v)
		}
	}

	// References default to N and E.

	if agg.Coordinate.Latitude != 10.0 || agg.Coordinate.Longitude != 20.0 {
		t.Fatalf("Unexpected coordinate %v", agg.Coordinate)
	}

	if len(agg.Errors) == 0 {
		t.Fatalf("Expected geocoding error to be reported")
	}
}

func TestAggregateHashFailure(t *testing.T) {

	ctx := context.Background()
	bucket, dir := testBucket(t)

	g := &fixture.GPS{
		Latitude:     fixture.DMS(40, 30, 0),
		LatitudeRef:  "N",
		Longitude:    fixture.DMS(74, 30, 0),
		LongitudeRef: "W",
	}

	writeFixture(t, dir, "nyc.jpg", fixture.DefaultOptions(g))

	opts := &AggregatorOptions{
		Hasher: func(ctx context.Context, bucket *blob.Bucket, key string) (string, error) {
			return "", errors.New("Read interrupted")
		},
	}

	agg, err := NewAggregatorWithOptions(opts).Aggregate(ctx, bucket, "nyc.jpg")

	if err != nil {
		t.Fatalf("Expected hash failure to degrade to a sentinel, %v", err)
	}

	labels := agg.Record.Labels()

	if !reflect.DeepEqual(labels, expectedLabels(true)) {
		t.Fatalf("Unexpected labels %v", labels)
	}

	if labels[len(labels)-1] != LabelFileHash {
		t.Fatalf("Expected file hash to be the last field")
	}

	h, _ := agg.Record.Get(LabelFileHash)

	if !strings.HasPrefix(h, "Error:") || !strings.Contains(h, "Read interrupted") {
		t.Fatalf("Unexpected hash value '%s'", h)
	}

	if len(agg.Errors) == 0 {
		t.Fatalf("Expected hash failure to be reported")
	}
}

func TestAggregateNotAnImage(t *testing.T) {

	ctx := context.Background()
	bucket, dir := testBucket(t)

	err := os.WriteFile(filepath.Join(dir, "notes.jpg"), []byte("not really a jpeg"), 0644)

	if err != nil {
		t.Fatalf("Failed to write file, %v", err)
	}

	agg, err := NewAggregator().Aggregate(ctx, bucket, "notes.jpg")

	if err != nil {
		t.Fatalf("Expected readable non-image to degrade to sentinels, %v", err)
	}

	if !reflect.DeepEqual(agg.Record.Labels(), expectedLabels(false)) {
		t.Fatalf("Unexpected labels %v", agg.Record.Labels())
	}

	size, _ := agg.Record.Get(LabelImageSize)

	if size != NotAvailable {
		t.Fatalf("Unexpected image size '%s'", size)
	}

	_, err = NewAggregator().Aggregate(ctx, bucket, "missing.jpg")

	if !errors.Is(err, extract.ErrUnreadable) {
		t.Fatalf("Expected ErrUnreadable for missing file, got %v", err)
	}
}

func TestAggregateIsStable(t *testing.T) {

	ctx := context.Background()
	bucket, dir := testBucket(t)

	writeFixture(t, dir, "plain.jpg", fixture.DefaultOptions(nil))

	g := &fixture.GPS{
		Latitude:     fixture.DMS(51, 30, 0),
		LatitudeRef:  "N",
		Longitude:    fixture.DMS(0, 7, 0),
		LongitudeRef: "W",
	}

	writeFixture(t, dir, "london.jpg", fixture.DefaultOptions(g))

	a := NewAggregator()

	for _, key := range []string{"plain.jpg", "london.jpg"} {

		first, err := a.Aggregate(ctx, bucket, key)

		if err != nil {
			t.Fatalf("Failed to aggregate %s, %v", key, err)
		}

		second, err := a.Aggregate(ctx, bucket, key)

		if err != nil {
			t.Fatalf("Failed to aggregate %s, %v", key, err)
		}

		if !reflect.DeepEqual(first.Record.Fields(), second.Record.Fields()) {
			t.Fatalf("Records for %s differ between runs", key)
		}
	}
}
