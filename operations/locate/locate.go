// Package locate derives the metadata record and location of a single image.
package locate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/sfomuseum/go-image-locator/common"
	"github.com/sfomuseum/go-image-locator/extract"
	"github.com/sfomuseum/go-image-locator/geocode"
	"github.com/sfomuseum/go-image-locator/gps"
	"github.com/sfomuseum/go-image-locator/metadata"
	"gocloud.dev/blob"
)

// ErrUnreadable signals that an image could not be opened or read at all.
var ErrUnreadable = extract.ErrUnreadable

// Result is the outcome of processing a single image.
type Result struct {
	// The image's file name.
	Filename string `json:"filename"`
	Record   *metadata.Record `json:"record"`
	// The image's location, or nil if it has none.
	Coordinate *gps.Coordinate `json:"coordinate,omitempty"`
	Status     gps.Status      `json:"-"`
	// Perceptual hashes, if enabled.
	ImageHashes []*common.ImageHashRsp `json:"image_hashes,omitempty"`
	// Failures that were absorbed in to sentinel values.
	Errors []error `json:"-"`
}

// HasCoordinate reports whether the image has a usable location.
func (r *Result) HasCoordinate() bool {
	return r.Coordinate != nil
}

// LocatorOptions is a struct containing configuration options for a Locator.
type LocatorOptions struct {
	// The extractors used to read tags. Defaults to extract.NewDefaultChain().
	Extractors extract.Chain
	// An optional reverse geocoder.
	Geocoder geocode.ReverseGeocodeFunc
	// A boolean flag to derive perceptual hashes for each image.
	HashImages bool
}

// Locator processes individual images.
type Locator struct {
	aggregator  *metadata.Aggregator
	hash_images bool
}

func NewLocator() *Locator {
	return NewLocatorWithOptions(&LocatorOptions{})
}

func NewLocatorWithOptions(opts *LocatorOptions) *Locator {

	agg_opts := &metadata.AggregatorOptions{
		Extractors: opts.Extractors,
		Geocoder:   opts.Geocoder,
	}

	l := &Locator{
		aggregator:  metadata.NewAggregatorWithOptions(agg_opts),
		hash_images: opts.HashImages,
	}

	return l
}

// Process derives the Result for the image at path on the local filesystem.
func (l *Locator) Process(ctx context.Context, im_path string) (*Result, error) {

	bucket, key, err := common.OpenBucketForPath(ctx, im_path)

	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrUnreadable, err)
	}

	defer bucket.Close()

	return l.ProcessWithBucket(ctx, bucket, key)
}

// ProcessWithBucket derives the Result for key in bucket. The only failure returned
// (other than context cancellation) is ErrUnreadable.
func (l *Locator) ProcessWithBucket(ctx context.Context, bucket *blob.Bucket, key string) (*Result, error) {

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// pass
	}

	logger := slog.Default()
	logger = logger.With("key", key)

	agg, err := l.aggregator.Aggregate(ctx, bucket, key)

	if err != nil {
		return nil, err
	}

	rsp := &Result{
		Filename:   path.Base(key),
		Record:     agg.Record,
		Coordinate: agg.Coordinate,
		Status:     agg.Status,
		Errors:     agg.Errors,
	}

	if l.hash_images && agg.Status != gps.StatusUnreadable {

		hashes, err := common.ImageHashes(ctx, bucket, key)

		if err != nil {

			if errors.Is(err, context.Canceled) {
				return nil, err
			}

			logger.Warn("Failed to derive image hashes", "error", err)
			rsp.Errors = append(rsp.Errors, err)
		} else {
			rsp.ImageHashes = hashes
		}
	}

	logger.Info("Processed image", "status", agg.Status.String(), "fields", agg.Record.Len())
	return rsp, nil
}
