// Package extract provides strategies for reading raw EXIF GPS tags and camera tags out of
// image files stored in a gocloud.dev/blob.Bucket.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sfomuseum/go-image-locator/gps"
	"gocloud.dev/blob"
)

// ErrUnreadable signals that an image could not be opened or read.
var ErrUnreadable = errors.New("Unreadable image")

// Extractor is the interface for reading raw GPS tags from an image. Implementations
// return an empty gps.TagSet and a nil error when an image simply has no GPS tags.
type Extractor interface {
	// A short label for the extractor, used in logging.
	Name() string
	Extract(context.Context, *blob.Bucket, string) (gps.TagSet, error)
	// Index returns the non-GPS tags of an image keyed by numeric tag id.
	Index(context.Context, *blob.Bucket, string) (TagIndex, error)
}

// Extraction is the outcome of running a Chain against a single image.
type Extraction struct {
	// The tags yielded by the first extractor to find any. Never nil.
	Tags gps.TagSet
	// The name of the extractor that produced Tags, or "" if none did.
	Source string
	// The most severe failure encountered, if no extractor produced tags.
	Status gps.Status
	// Every failure encountered along the way, for diagnostics.
	Errors []error
}

// Chain is an ordered list of extractors tried in turn until one yields data.
type Chain []Extractor

// NewDefaultChain returns a Chain with the byte-level RawExtractor followed by the
// DecodeExtractor fallback.
func NewDefaultChain() Chain {
	return Chain{
		NewRawExtractor(),
		NewDecodeExtractor(),
	}
}

// Extract runs each extractor against key. Failures are logged and never returned; an
// image nothing can read is reported through Extraction.Status.
func (c Chain) Extract(ctx context.Context, bucket *blob.Bucket, key string) *Extraction {

	logger := slog.Default()
	logger = logger.With("key", key)

	ex := &Extraction{
		Tags:   gps.TagSet{},
		Status: gps.StatusMissing,
		Errors: make([]error, 0),
	}

	for _, e := range c {

		tags, err := e.Extract(ctx, bucket, key)

		if err != nil {

			logger.Debug("Extractor failed", "extractor", e.Name(), "error", err)
			ex.Errors = append(ex.Errors, fmt.Errorf("%s: %w", e.Name(), err))

			status := statusForError(err)

			if status > ex.Status {
				ex.Status = status
			}

			continue
		}

		if len(tags) == 0 {
			logger.Debug("No GPS data found", "extractor", e.Name())
			continue
		}

		ex.Tags = tags
		ex.Source = e.Name()
		ex.Status = gps.StatusPresent
		ex.Errors = ex.Errors[:0]
		return ex
	}

	return ex
}

// Index returns the tag index from the first extractor yielding a non-empty one. An image
// none of them can index yields an empty TagIndex.
func (c Chain) Index(ctx context.Context, bucket *blob.Bucket, key string) TagIndex {

	logger := slog.Default()
	logger = logger.With("key", key)

	for _, e := range c {

		idx, err := e.Index(ctx, bucket, key)

		if err != nil {
			logger.Debug("Failed to index tags", "extractor", e.Name(), "error", err)
			continue
		}

		if len(idx) > 0 {
			return idx
		}
	}

	return TagIndex{}
}

func statusForError(err error) gps.Status {

	if errors.Is(err, ErrUnreadable) {
		return gps.StatusUnreadable
	}

	return gps.StatusMalformed
}

func readAll(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {

	r, err := bucket.NewReader(ctx, key, nil)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to open %s, %w", ErrUnreadable, key, err)
	}

	defer r.Close()

	body, err := io.ReadAll(r)

	if err != nil {
		return nil, fmt.Errorf("%w, failed to read %s, %w", ErrUnreadable, key, err)
	}

	return body, nil
}
