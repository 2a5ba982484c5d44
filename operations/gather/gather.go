// Package gather processes batches of images, in order, collecting their metadata records
// in to a session and their locations in to a coordinate collection.
package gather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sfomuseum/go-image-locator/gps"
	"github.com/sfomuseum/go-image-locator/metadata"
	"github.com/sfomuseum/go-image-locator/operations/locate"
	"gocloud.dev/blob"
)

// GatherCallbackFunc is an optional function invoked with each successfully processed image.
// Returning an error stops the batch.
type GatherCallbackFunc func(context.Context, *locate.Result) error

// BatchResult is the outcome of processing a batch of images.
type BatchResult struct {
	// Records keyed by file name, in processing order.
	Session *metadata.Session
	// One entry per geotagged image, in processing order.
	Coordinates []gps.Coordinate
	// The paths (or keys) that could not be read and were skipped.
	Skipped []string
}

func NewBatchResult() *BatchResult {

	return &BatchResult{
		Session:     metadata.NewSession(),
		Coordinates: make([]gps.Coordinate, 0),
		Skipped:     make([]string, 0),
	}
}

// Merge appends the records, coordinates and skipped paths of other to b, in order.
func (b *BatchResult) Merge(other *BatchResult) {

	for _, name := range other.Session.Names() {
		rec, _ := other.Session.Get(name)
		b.Session.Set(name, rec)
	}

	b.Coordinates = append(b.Coordinates, other.Coordinates...)
	b.Skipped = append(b.Skipped, other.Skipped...)
}

// GatherOptions is a struct containing configuration options for a Gatherer.
type GatherOptions struct {
	// The Locator used to process each image. Defaults to locate.NewLocator().
	Locator *locate.Locator
	// An optional callback invoked after each image is processed.
	Callback GatherCallbackFunc
	// Optional metrics. If nil a new instance with its own registry is created.
	Metrics *Metrics
}

// Gatherer processes batches of images sequentially.
type Gatherer struct {
	locator  *locate.Locator
	callback GatherCallbackFunc
	metrics  *Metrics
}

func NewGatherer() (*Gatherer, error) {
	return NewGathererWithOptions(&GatherOptions{})
}

func NewGathererWithOptions(opts *GatherOptions) (*Gatherer, error) {

	locator := opts.Locator

	if locator == nil {
		locator = locate.NewLocator()
	}

	m := opts.Metrics

	if m == nil {

		new_m, err := NewMetrics(nil)

		if err != nil {
			return nil, fmt.Errorf("Failed to create metrics, %w", err)
		}

		m = new_m
	}

	g := &Gatherer{
		locator:  locator,
		callback: opts.Callback,
		metrics:  m,
	}

	return g, nil
}

// Metrics returns the batch counters for g.
func (g *Gatherer) Metrics() *Metrics {
	return g.metrics
}

// GatherPaths processes the images at paths on the local filesystem, in order. Cancellation
// is checked between images; on cancellation the partial BatchResult is returned along with
// the context's error.
func (g *Gatherer) GatherPaths(ctx context.Context, paths []string) (*BatchResult, error) {

	batch := NewBatchResult()

	for _, path := range paths {

		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		default:
			// pass
		}

		rsp, err := g.locator.Process(ctx, path)

		err = g.collect(ctx, batch, path, rsp, err)

		if err != nil {
			return batch, err
		}
	}

	return batch, nil
}

// GatherBucket processes every image in bucket, in lexical key order.
func (g *Gatherer) GatherBucket(ctx context.Context, bucket *blob.Bucket) (*BatchResult, error) {

	keys, err := CrawlImages(ctx, bucket)

	if err != nil {
		return nil, fmt.Errorf("Failed to crawl images, %w", err)
	}

	batch := NewBatchResult()

	for _, key := range keys {

		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		default:
			// pass
		}

		rsp, err := g.locator.ProcessWithBucket(ctx, bucket, key)

		err = g.collect(ctx, batch, key, rsp, err)

		if err != nil {
			return batch, err
		}
	}

	return batch, nil
}

func (g *Gatherer) collect(ctx context.Context, batch *BatchResult, path string, rsp *locate.Result, err error) error {

	logger := slog.Default()
	logger = logger.With("path", path)

	if err != nil {

		if !errors.Is(err, locate.ErrUnreadable) {
			return fmt.Errorf("Failed to process %s, %w", path, err)
		}

		logger.Warn("Skipping unreadable image", "error", err)

		batch.Skipped = append(batch.Skipped, path)
		g.metrics.skipped.Inc()
		return nil
	}

	batch.Session.Set(rsp.Filename, rsp.Record)
	g.metrics.processed.WithLabelValues(rsp.Status.String()).Inc()

	if rsp.Coordinate != nil {
		batch.Coordinates = append(batch.Coordinates, *rsp.Coordinate)
	}

	if g.callback != nil {

		err := g.callback(ctx, rsp)

		if err != nil {
			return fmt.Errorf("Callback failed for %s, %w", path, err)
		}
	}

	return nil
}

// CrawlImages returns the keys of every image stored in bucket, sorted lexically. Images are
// identified by the mimetype of their file extension.
func CrawlImages(ctx context.Context, bucket *blob.Bucket) ([]string, error) {

	keys := make([]string, 0)

	var list func(context.Context, *blob.Bucket, string) error

	list = func(ctx context.Context, b *blob.Bucket, prefix string) error {

		iter := b.List(&blob.ListOptions{
			Delimiter: "/",
			Prefix:    prefix,
		})

		for {

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				// pass
			}

			obj, err := iter.Next(ctx)

			if err == io.EOF {
				break
			}

			if err != nil {
				return err
			}

			if obj.IsDir {

				err := list(ctx, b, obj.Key)

				if err != nil {
					return err
				}

				continue
			}

			if !IsImage(obj.Key) {
				continue
			}

			keys = append(keys, obj.Key)
		}

		return nil
	}

	err := list(ctx, bucket, "")

	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// IsImage reports whether path has an image mimetype according to its extension.
func IsImage(path string) bool {

	ext := strings.ToLower(filepath.Ext(path))

	t := mime.TypeByExtension(ext)

	if t == "" {
		return false
	}

	return strings.HasPrefix(t, "image/")
}
