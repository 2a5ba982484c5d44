package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/ratelimit"
)

// DefaultNominatimEndpoint is the public OpenStreetMap Nominatim reverse geocoding endpoint.
const DefaultNominatimEndpoint = "https://nominatim.openstreetmap.org/reverse"

// DefaultUserAgent is sent with every request; the Nominatim usage policy requires one.
const DefaultUserAgent = "go-image-locator"

// NominatimOptions defines configuration options for NominatimGeocoder.
type NominatimOptions struct {
	// The URL of the Nominatim reverse endpoint.
	Endpoint string
	// The User-Agent header to send with each request.
	UserAgent string
	// The language to request place names in.
	Language string
	// The maximum number of requests per second. Zero means no limit.
	RequestsPerSecond int
	// An optional HTTP client. If nil http.DefaultClient is used.
	Client *http.Client
}

// DefaultNominatimOptions returns options that honour the public server's one request
// per second usage policy.
func DefaultNominatimOptions() *NominatimOptions {

	return &NominatimOptions{
		Endpoint:          DefaultNominatimEndpoint,
		UserAgent:         DefaultUserAgent,
		Language:          "en",
		RequestsPerSecond: 1,
	}
}

// NominatimGeocoder resolves coordinates using a Nominatim server.
type NominatimGeocoder struct {
	endpoint   string
	user_agent string
	language   string
	client     *http.Client
	limiter    ratelimit.Limiter
}

func NewNominatimGeocoder() (*NominatimGeocoder, error) {
	opts := DefaultNominatimOptions()
	return NewNominatimGeocoderWithOptions(opts)
}

func NewNominatimGeocoderWithOptions(opts *NominatimOptions) (*NominatimGeocoder, error) {

	_, err := url.Parse(opts.Endpoint)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse endpoint, %w", err)
	}

	client := opts.Client

	if client == nil {
		client = http.DefaultClient
	}

	limiter := ratelimit.NewUnlimited()

	if opts.RequestsPerSecond > 0 {
		limiter = ratelimit.New(opts.RequestsPerSecond)
	}

	g := &NominatimGeocoder{
		endpoint:   opts.Endpoint,
		user_agent: opts.UserAgent,
		language:   opts.Language,
		client:     client,
		limiter:    limiter,
	}

	return g, nil
}

// NewNominatimReverseGeocodeFunc returns the ReverseGeocode method of a new NominatimGeocoder,
// wrapped with WithTimeout (if timeout is greater than zero) and WithRetry (if max_retries
// is greater than zero).
func NewNominatimReverseGeocodeFunc(opts *NominatimOptions, timeout time.Duration, max_retries uint64) (ReverseGeocodeFunc, error) {

	g, err := NewNominatimGeocoderWithOptions(opts)

	if err != nil {
		return nil, err
	}

	fn := ReverseGeocodeFunc(g.ReverseGeocode)

	if timeout > 0 {
		fn = WithTimeout(fn, timeout)
	}

	if max_retries > 0 {
		fn = WithRetry(fn, max_retries)
	}

	return fn, nil
}

// ReverseGeocode satisfies ReverseGeocodeFunc.
func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat float64, lon float64) (*Place, error) {

	u, _ := url.Parse(g.endpoint) // validated in the constructor

	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	if g.language != "" {
		q.Set("accept-language", g.language)
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to create request, %w", err)
	}

	if g.user_agent != "" {
		req.Header.Set("User-Agent", g.user_agent)
	}

	g.limiter.Take()

	rsp, err := g.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("Failed to execute request, %w", err)
	}

	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Nominatim returned unexpected status %d", rsp.StatusCode)
	}

	body, err := io.ReadAll(rsp.Body)

	if err != nil {
		return nil, fmt.Errorf("Failed to read response, %w", err)
	}

	return parseNominatimResponse(body)
}

func parseNominatimResponse(body []byte) (*Place, error) {

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Nominatim returned invalid JSON")
	}

	err_rsp := gjson.GetBytes(body, "error")

	if err_rsp.Exists() {
		return nil, fmt.Errorf("%w, %s", ErrNoPlace, err_rsp.String())
	}

	addr_rsp := gjson.GetBytes(body, "address")

	if !addr_rsp.Exists() {
		return nil, ErrNoPlace
	}

	place := &Place{
		Country: addr_rsp.Get("country").String(),
	}

	// Smaller settlements don't have a "city" property.

	for _, k := range []string{"city", "town", "village", "municipality", "county"} {

		r := addr_rsp.Get(k)

		if r.Exists() && r.String() != "" {
			place.City = r.String()
			break
		}
	}

	return place, nil
}
