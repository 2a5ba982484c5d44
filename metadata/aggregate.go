package metadata

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path"

	"github.com/sfomuseum/go-image-locator/common"
	"github.com/sfomuseum/go-image-locator/extract"
	"github.com/sfomuseum/go-image-locator/geocode"
	"github.com/sfomuseum/go-image-locator/gps"
	"gocloud.dev/blob"
)

// AggregatorOptions is a struct containing configuration options for an Aggregator.
type AggregatorOptions struct {
	// The extractors used to read GPS and camera tags. Defaults to extract.NewDefaultChain().
	Extractors extract.Chain
	// An optional reverse geocoder. If nil City and Country are always NotAvailable.
	Geocoder geocode.ReverseGeocodeFunc
	// The camera field schema. Defaults to DefaultSchema.
	Schema []FieldSpec
	// The function used to derive the file hash. Defaults to common.FingerprintFile.
	Hasher HashFunc
}

// HashFunc returns the content hash of key in bucket.
type HashFunc func(context.Context, *blob.Bucket, string) (string, error)

// Aggregator builds a Record for an image.
type Aggregator struct {
	extractors extract.Chain
	geocoder   geocode.ReverseGeocodeFunc
	schema     []FieldSpec
	hasher     HashFunc
}

// Aggregation is the result of aggregating metadata for a single image.
type Aggregation struct {
	Record *Record
	// The image's location, or nil if it has none.
	Coordinate *gps.Coordinate
	Status     gps.Status
	// Failures that were absorbed in to sentinel values, for diagnostics.
	Errors []error
}

func NewAggregator() *Aggregator {
	return NewAggregatorWithOptions(&AggregatorOptions{})
}

func NewAggregatorWithOptions(opts *AggregatorOptions) *Aggregator {

	extractors := opts.Extractors

	if len(extractors) == 0 {
		extractors = extract.NewDefaultChain()
	}

	schema := opts.Schema

	if len(schema) == 0 {
		schema = DefaultSchema
	}

	hasher := opts.Hasher

	if hasher == nil {
		hasher = common.FingerprintFile
	}

	a := &Aggregator{
		extractors: extractors,
		geocoder:   opts.Geocoder,
		schema:     schema,
		hasher:     hasher,
	}

	return a
}

// Aggregate builds the Record for key. The only error it returns is extract.ErrUnreadable,
// when key can not be opened at all; every other failure is written to the record as a
// sentinel value and reported in Aggregation.Errors.
func (a *Aggregator) Aggregate(ctx context.Context, bucket *blob.Bucket, key string) (*Aggregation, error) {

	logger := slog.Default()
	logger = logger.With("key", key)

	logger.Debug("Processing image")

	_, err := bucket.Attributes(ctx, key)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to stat %s, %w", extract.ErrUnreadable, key, err)
	}

	agg := &Aggregation{
		Record: NewRecord(),
		Status: gps.StatusMissing,
		Errors: make([]error, 0),
	}

	rec := agg.Record

	rec.Append(LabelFileName, path.Base(key))

	cfg, err := imageConfig(ctx, bucket, key)

	if err != nil {
		logger.Warn("Failed to derive image dimensions", "error", err)
		agg.Errors = append(agg.Errors, err)
		rec.Append(LabelImageSize, NotAvailable)
	} else {
		rec.Append(LabelImageSize, fmt.Sprintf("%d x %d", cfg.Width, cfg.Height))
	}

	idx := a.extractors.Index(ctx, bucket, key)

	for _, spec := range a.schema {
		rec.Append(spec.Label, spec.Value(idx))
	}

	ex := a.extractors.Extract(ctx, bucket, key)
	agg.Errors = append(agg.Errors, ex.Errors...)
	agg.Status = ex.Status

	if ex.Status == gps.StatusPresent {

		coord, err := ex.Tags.Coordinate()

		if err != nil {
			logger.Debug("GPS tags present but unusable", "extractor", ex.Source, "error", err)
			agg.Errors = append(agg.Errors, err)
			agg.Status = gps.StatusForError(err)
		} else {
			logger.Debug("Derived coordinates", "extractor", ex.Source, "latitude", coord.Latitude, "longitude", coord.Longitude)
			agg.Coordinate = &coord
		}
	}

	city := NotAvailable
	country := NotAvailable

	if agg.Coordinate != nil {

		lat := gps.FormatDegrees(agg.Coordinate.Latitude)
		lon := gps.FormatDegrees(agg.Coordinate.Longitude)

		rec.Append(LabelLatitude, lat)
		rec.Append(LabelLongitude, lon)
		rec.Append(LabelCoordinate, agg.Coordinate.String())

		if a.geocoder != nil {

			place, err := a.geocoder(ctx, agg.Coordinate.Latitude, agg.Coordinate.Longitude)

			if err != nil {
				logger.Warn("Failed to reverse geocode coordinates", "error", err)
				agg.Errors = append(agg.Errors, err)
			} else if place != nil {
				city = place.City
				country = place.Country
			}
		}

	} else {
		logger.Debug("No GPS data found", "status", agg.Status.String())
		rec.Append(LabelGPSData, NoGPSData)
	}

	rec.Append(LabelCity, city)
	rec.Append(LabelCountry, country)

	fp, err := a.hasher(ctx, bucket, key)

	if err != nil {
		logger.Warn("Failed to hash file", "error", err)
		agg.Errors = append(agg.Errors, err)
		rec.Append(LabelFileHash, fmt.Sprintf("Error: %v", err))
	} else {
		rec.Append(LabelFileHash, fp)
	}

	return agg, nil
}

func imageConfig(ctx context.Context, bucket *blob.Bucket, key string) (image.Config, error) {

	r, err := bucket.NewReader(ctx, key, nil)

	if err != nil {
		return image.Config{}, fmt.Errorf("Failed to create reader for %s, %w", key, err)
	}

	defer r.Close()

	cfg, _, err := image.DecodeConfig(r)

	if err != nil {
		return image.Config{}, fmt.Errorf("Failed to decode image config for %s, %w", key, err)
	}

	return cfg, nil
}
