// gather processes one or more images, directories or bucket URIs in order and writes a
// combined map of every geotagged image.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sfomuseum/go-image-locator/common"
	"github.com/sfomuseum/go-image-locator/geocode"
	"github.com/sfomuseum/go-image-locator/operations/gather"
	"github.com/sfomuseum/go-image-locator/operations/locate"
	"github.com/sfomuseum/go-image-locator/operations/render"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

func main() {

	var output_dir string
	var session_path string
	var metrics_textfile string
	var report_duplicates bool
	var print_records bool
	var hash_images bool

	var enable_geocode bool
	var nominatim_endpoint string
	var user_agent string
	var geocode_timeout time.Duration
	var geocode_retries uint64

	var verbose bool

	flag.StringVar(&output_dir, "output-dir", ".", "The directory to write the combined map document to.")
	flag.StringVar(&session_path, "session", "", "Optional path to a JSON file to merge the session's records in to.")
	flag.StringVar(&metrics_textfile, "metrics-textfile", "", "Optional path to write batch counters to, in the Prometheus text format.")
	flag.BoolVar(&report_duplicates, "duplicates", false, "Report images with identical file hashes.")
	flag.BoolVar(&print_records, "print", true, "Print each record as it is processed.")
	flag.BoolVar(&hash_images, "hash-images", false, "Derive perceptual hashes for each image.")

	flag.BoolVar(&enable_geocode, "geocode", false, "Reverse geocode coordinates using a Nominatim server.")
	flag.StringVar(&nominatim_endpoint, "nominatim-endpoint", geocode.DefaultNominatimEndpoint, "The Nominatim reverse geocoding endpoint.")
	flag.StringVar(&user_agent, "user-agent", geocode.DefaultUserAgent, "The User-Agent header to send to the Nominatim server.")
	flag.DurationVar(&geocode_timeout, "geocode-timeout", 10*time.Second, "The maximum time to wait for a single reverse geocoding request.")
	flag.Uint64Var(&geocode_retries, "geocode-retries", 2, "The number of times to retry a failed reverse geocoding request.")

	flag.BoolVar(&verbose, "verbose", false, "Enable verbose (debug) logging.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Process a batch of images and write a combined map of their locations.\n")
		fmt.Fprintf(os.Stderr, "Usage:\n\t %s [options] (image|directory|bucket-uri)(N)\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	locator_opts := &locate.LocatorOptions{
		HashImages: hash_images,
	}

	if enable_geocode {

		nominatim_opts := geocode.DefaultNominatimOptions()
		nominatim_opts.Endpoint = nominatim_endpoint
		nominatim_opts.UserAgent = user_agent

		fn, err := geocode.NewNominatimReverseGeocodeFunc(nominatim_opts, geocode_timeout, geocode_retries)

		if err != nil {
			slog.Error("Failed to create geocoder", "error", err)
			os.Exit(1)
		}

		locator_opts.Geocoder = fn
	}

	cb := func(ctx context.Context, rsp *locate.Result) error {

		if !print_records {
			return nil
		}

		fmt.Printf("%s\n", rsp.Record.String())
		return nil
	}

	gather_opts := &gather.GatherOptions{
		Locator:  locate.NewLocatorWithOptions(locator_opts),
		Callback: cb,
	}

	g, err := gather.NewGathererWithOptions(gather_opts)

	if err != nil {
		slog.Error("Failed to create gatherer", "error", err)
		os.Exit(1)
	}

	batch, err := gatherAll(ctx, g, flag.Args())

	if err != nil {

		if !errors.Is(err, context.Canceled) {
			slog.Error("Failed to gather images", "error", err)
			os.Exit(1)
		}

		slog.Warn("Batch cancelled, writing partial results")
	}

	slog.Info("Processed images", "records", batch.Session.Len(), "geotagged", len(batch.Coordinates), "skipped", len(batch.Skipped))

	// Writes below use a fresh context so that partial results survive an interrupt.

	write_ctx := context.Background()

	map_path, err := render.BuildMap(write_ctx, batch.Coordinates, filepath.Join(output_dir, render.DefaultCombinedMapFilename))

	if err != nil {
		slog.Error("Failed to build map", "error", err)
		os.Exit(1)
	}

	if map_path != "" {
		slog.Info("Wrote combined map", "map", map_path)
	} else {
		slog.Info("No geotagged images, skipping map")
	}

	if session_path != "" {

		err := exportSession(write_ctx, batch, session_path)

		if err != nil {
			slog.Error("Failed to export session", "error", err)
			os.Exit(1)
		}
	}

	if report_duplicates {

		enc, err := json.Marshal(batch.Session.Duplicates())

		if err != nil {
			slog.Error("Failed to marshal duplicates", "error", err)
			os.Exit(1)
		}

		fmt.Println(string(enc))
	}

	if metrics_textfile != "" {

		err := g.Metrics().WriteTextfile(metrics_textfile)

		if err != nil {
			slog.Error("Failed to write metrics", "error", err)
			os.Exit(1)
		}
	}
}

// gatherAll processes each source in order. Sources containing "://" are treated as bucket
// URIs, directories are opened as file:// buckets and anything else as an image path.
func gatherAll(ctx context.Context, g *gather.Gatherer, sources []string) (*gather.BatchResult, error) {

	batch := gather.NewBatchResult()
	paths := make([]string, 0)

	flush := func() error {

		if len(paths) == 0 {
			return nil
		}

		rsp, err := g.GatherPaths(ctx, paths)
		batch.Merge(rsp)

		paths = make([]string, 0)
		return err
	}

	for _, src := range sources {

		bucket_uri := src

		if !strings.Contains(src, "://") {

			info, err := os.Stat(src)

			if err != nil || !info.IsDir() {
				paths = append(paths, src)
				continue
			}

			abs_path, err := filepath.Abs(src)

			if err != nil {
				return batch, fmt.Errorf("Failed to derive absolute path for %s, %w", src, err)
			}

			bucket_uri = fmt.Sprintf("file://%s", abs_path)
		}

		err := flush()

		if err != nil {
			return batch, err
		}

		err = gatherBucket(ctx, g, batch, bucket_uri)

		if err != nil {
			return batch, err
		}
	}

	err := flush()
	return batch, err
}

func gatherBucket(ctx context.Context, g *gather.Gatherer, batch *gather.BatchResult, uri string) error {

	logger := slog.Default()
	logger = logger.With("bucket", uri)

	logger.Debug("Gathering images")

	bucket, err := blob.OpenBucket(ctx, uri)

	if err != nil {
		return fmt.Errorf("Failed to open bucket %s, %w", uri, err)
	}

	defer bucket.Close()

	rsp, err := g.GatherBucket(ctx, bucket)

	if rsp != nil {
		batch.Merge(rsp)
	}

	return err
}

func exportSession(ctx context.Context, batch *gather.BatchResult, path string) error {

	body, err := os.ReadFile(path)

	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("Failed to read %s, %w", path, err)
	}

	body, err = batch.Session.Export(body)

	if err != nil {
		return err
	}

	abs_path, err := common.WriteFile(ctx, path, body)

	if err != nil {
		return err
	}

	slog.Info("Wrote session", "path", abs_path, "records", batch.Session.Len())
	return nil
}
