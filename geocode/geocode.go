// Package geocode defines the reverse-geocoding collaborator used to resolve coordinates
// in to place names, along with a Nominatim client and wrappers for callers that need
// timeouts or retries.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNoPlace is returned when a lookup succeeds but resolves to nothing.
var ErrNoPlace = errors.New("No place found")

// Place is the result of a reverse geocoding lookup. Unknown fields are left empty.
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// ReverseGeocodeFunc resolves a latitude, longitude pair in to a Place. Lookups are
// blocking and implementations are not expected to retry or time out on their own.
type ReverseGeocodeFunc func(ctx context.Context, lat float64, lon float64) (*Place, error)

// WithTimeout wraps fn so that each lookup is abandoned after d.
func WithTimeout(fn ReverseGeocodeFunc, d time.Duration) ReverseGeocodeFunc {

	return func(ctx context.Context, lat float64, lon float64) (*Place, error) {

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return fn(ctx, lat, lon)
	}
}

// WithRetry wraps fn so that failed lookups are retried up to max_retries times with
// exponential backoff. ErrNoPlace is not retried.
func WithRetry(fn ReverseGeocodeFunc, max_retries uint64) ReverseGeocodeFunc {

	return func(ctx context.Context, lat float64, lon float64) (*Place, error) {

		var place *Place

		op := func() error {

			p, err := fn(ctx, lat, lon)

			if err != nil {

				if errors.Is(err, ErrNoPlace) {
					return backoff.Permanent(err)
				}

				return err
			}

			place = p
			return nil
		}

		var b backoff.BackOff

		b = backoff.NewExponentialBackOff()
		b = backoff.WithMaxRetries(b, max_retries)
		b = backoff.WithContext(b, ctx)

		err := backoff.Retry(op, b)

		if err != nil {
			return nil, fmt.Errorf("Failed to reverse geocode %f,%f, %w", lat, lon, err)
		}

		return place, nil
	}
}
