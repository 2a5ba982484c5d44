package locate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sfomuseum/go-image-locator/common"
	"github.com/sfomuseum/go-image-locator/gps"
	"github.com/sfomuseum/go-image-locator/internal/fixture"
	"github.com/sfomuseum/go-image-locator/metadata"
)

func TestProcess(t *testing.T) {

	ctx := context.Background()
	dir := t.TempDir()

	g := &fixture.GPS{
		Latitude:     fixture.DMS(48, 51, 2400),
		LatitudeRef:  "N",
		Longitude:    fixture.DMS(2, 21, 0),
		LongitudeRef: "E",
	}

	paris, err := fixture.WriteJPEG(dir, "paris.jpg", fixture.DefaultOptions(g))

	if err != nil {
		t.Fatalf("Failed to write fixture, %v", err)
	}

	opts := &LocatorOptions{
		HashImages: true,
	}

	l := NewLocatorWithOptions(opts)

	rsp, err := l.Process(ctx, paris)

	if err != nil {
		t.Fatalf("Failed to process %s, %v", paris, err)
	}

	if rsp.Filename != "paris.jpg" {
		t.Fatalf("Unexpected filename %s", rsp.Filename)
	}

	if !rsp.HasCoordinate() || rsp.Status != gps.StatusPresent {
		t.Fatalf("Expected coordinate, got status %s", rsp.Status)
	}

	// 48 + 51/60 + 24/3600 = 48.8566...

	if rsp.Coordinate.Latitude < 48.856 || rsp.Coordinate.Latitude > 48.857 {
		t.Fatalf("Unexpected latitude %f", rsp.Coordinate.Latitude)
	}

	if rsp.Coordinate.Longitude < 2.349 || rsp.Coordinate.Longitude > 2.351 {
		t.Fatalf("Unexpected longitude %f", rsp.Coordinate.Longitude)
	}

	if len(rsp.ImageHashes) != len(common.ImageHashApproaches) {
		t.Fatalf("Unexpected image hash count %d", len(rsp.ImageHashes))
	}

	city, _ := rsp.Record.Get(metadata.LabelCity)

	if city != metadata.NotAvailable {
		t.Fatalf("Expected sentinel city without a geocoder, got %s", city)
	}
}

func TestProcessWithoutGPS(t *testing.T) {

	ctx := context.Background()
	dir := t.TempDir()

	plain, err := fixture.WriteJPEG(dir, "plain.jpg", fixture.DefaultOptions(nil))

	if err != nil {
		t.Fatalf("Failed to write fixture, %v", err)
	}

	rsp, err := NewLocator().Process(ctx, plain)

	if err != nil {
		t.Fatalf("Failed to process %s, %v", plain, err)
	}

	if rsp.HasCoordinate() {
		t.Fatalf("Unexpected coordinate %v", rsp.Coordinate)
	}

	v, _ := rsp.Record.Get(metadata.LabelGPSData)

	if v != metadata.NoGPSData {
		t.Fatalf("Unexpected GPS sentinel %s", v)
	}

	if rsp.ImageHashes != nil {
		t.Fatalf("Image hashes should not be derived unless enabled")
	}
}

func TestProcessUnreadable(t *testing.T) {

	ctx := context.Background()
	dir := t.TempDir()

	_, err := NewLocator().Process(ctx, filepath.Join(dir, "missing.jpg"))

	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("Expected ErrUnreadable, got %v", err)
	}
}

func TestProcessCancelled(t *testing.T) {

	dir := t.TempDir()

	plain, err := fixture.WriteJPEG(dir, "plain.jpg", fixture.DefaultOptions(nil))

	if err != nil {
		t.Fatalf("Failed to write fixture, %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewLocator().Process(ctx, plain)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
