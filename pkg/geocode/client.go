// Package geocode resolves free-form address queries to coordinates through
// public geocoding services: OpenStreetMap Nominatim (default) and the Google
// Geocoding API.
package geocode

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/route-cli/internal/resilience"
)

var (
	// ErrTimeout marks a lookup that did not complete in time. It is the only
	// failure class worth retrying.
	ErrTimeout = eris.New("geocode: request timed out")

	// ErrNotFound marks a query the service answered with no results.
	ErrNotFound = eris.New("geocode: address not found")
)

// Lookuper resolves one address query to a coordinate.
type Lookuper interface {
	Lookup(ctx context.Context, query string) (*Result, error)
}

// Result holds the best match for a query.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Source      string // "nominatim" or "google"
	Quality     string
}

// Option configures a service client.
type Option func(*options)

type options struct {
	httpClient   *http.Client
	timeout      time.Duration
	baseURL      string
	userAgent    string
	email        string
	countryCodes string
}

// WithHTTPClient sets a custom HTTP client. It overrides WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithBaseURL points the client at a self-hosted or mirrored service.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the User-Agent header. Nominatim rejects requests
// without an identifying agent.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithEmail sets the contact address sent to Nominatim.
func WithEmail(email string) Option {
	return func(o *options) {
		o.email = email
	}
}

// WithCountryCodes restricts results to a comma-separated list of ISO
// 3166-1 alpha-2 codes, e.g. "br".
func WithCountryCodes(codes string) Option {
	return func(o *options) {
		o.countryCodes = strings.ToLower(strings.ReplaceAll(codes, " ", ""))
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	return o
}

// New builds the client for the named provider.
func New(provider, googleKey string, opts ...Option) (Lookuper, error) {
	switch strings.ToLower(provider) {
	case "", "nominatim":
		return NewNominatim(opts...), nil
	case "google":
		return NewGoogle(googleKey, opts...)
	default:
		return nil, eris.Errorf("geocode: unknown provider %q", provider)
	}
}

// classify maps a transport failure onto ErrTimeout when it is one.
// Cancellation by the caller stays a plain error.
func classify(service string, err error) error {
	if resilience.IsTimeout(err) && !errors.Is(err, context.Canceled) {
		return eris.Wrapf(ErrTimeout, "%s: %v", service, err)
	}
	return eris.Wrapf(err, "geocode: %s request", service)
}

// checkStatus turns a non-200 response into an error.
func checkStatus(service string, code int) error {
	if code == http.StatusOK {
		return nil
	}
	if resilience.IsTimeoutStatus(code) {
		return eris.Wrapf(ErrTimeout, "%s returned status %d", service, code)
	}
	return eris.Errorf("geocode: %s returned status %d", service, code)
}
