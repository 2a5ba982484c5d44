// locate prints the metadata record of one or more images and writes a map for each
// geotagged image.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sfomuseum/go-image-locator/geocode"
	"github.com/sfomuseum/go-image-locator/gps"
	"github.com/sfomuseum/go-image-locator/operations/locate"
	"github.com/sfomuseum/go-image-locator/operations/render"
)

func main() {

	var output_dir string
	var as_json bool
	var hash_images bool
	var write_map bool

	var enable_geocode bool
	var nominatim_endpoint string
	var user_agent string
	var geocode_timeout time.Duration
	var geocode_retries uint64

	var verbose bool

	flag.StringVar(&output_dir, "output-dir", ".", "The directory to write map documents to.")
	flag.BoolVar(&as_json, "json", false, "Emit records as JSON rather than plain text.")
	flag.BoolVar(&hash_images, "hash-images", false, "Derive perceptual hashes for each image.")
	flag.BoolVar(&write_map, "map", true, "Write a map document for each geotagged image.")

	flag.BoolVar(&enable_geocode, "geocode", false, "Reverse geocode coordinates using a Nominatim server.")
	flag.StringVar(&nominatim_endpoint, "nominatim-endpoint", geocode.DefaultNominatimEndpoint, "The Nominatim reverse geocoding endpoint.")
	flag.StringVar(&user_agent, "user-agent", geocode.DefaultUserAgent, "The User-Agent header to send to the Nominatim server.")
	flag.DurationVar(&geocode_timeout, "geocode-timeout", 10*time.Second, "The maximum time to wait for a single reverse geocoding request.")
	flag.Uint64Var(&geocode_retries, "geocode-retries", 2, "The number of times to retry a failed reverse geocoding request.")

	flag.BoolVar(&verbose, "verbose", false, "Enable verbose (debug) logging.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Print the metadata record for one or more images.\n")
		fmt.Fprintf(os.Stderr, "Usage:\n\t %s [options] image(N) image(N)\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}

	ctx := context.Background()

	opts := &locate.LocatorOptions{
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

		opts.Geocoder = fn
	}

	l := locate.NewLocatorWithOptions(opts)

	paths := flag.Args()

	for _, path := range paths {

		logger := slog.Default()
		logger = logger.With("path", path)

		rsp, err := l.Process(ctx, path)

		if err != nil {
			logger.Error("Failed to process image", "error", err)
			os.Exit(1)
		}

		if as_json {

			enc, err := json.Marshal(rsp)

			if err != nil {
				logger.Error("Failed to marshal record", "error", err)
				os.Exit(1)
			}

			fmt.Println(string(enc))

		} else {
			fmt.Println(rsp.Record.String())
		}

		if !write_map || rsp.Coordinate == nil {
			continue
		}

		fname := render.DefaultSingleMapFilename

		if len(paths) > 1 {
			stem := strings.TrimSuffix(rsp.Filename, filepath.Ext(rsp.Filename))
			fname = fmt.Sprintf("%s-%s", stem, render.DefaultSingleMapFilename)
		}

		map_path, err := render.BuildMap(ctx, []gps.Coordinate{*rsp.Coordinate}, filepath.Join(output_dir, fname))

		if err != nil {
			logger.Error("Failed to build map", "error", err)
			os.Exit(1)
		}

		logger.Info("Wrote map", "map", map_path)
	}
}
