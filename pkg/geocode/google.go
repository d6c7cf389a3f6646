package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Google queries the Google Geocoding API.
type Google struct {
	key  string
	opts options
}

// NewGoogle creates a Google client. An API key is required.
func NewGoogle(key string, opts ...Option) (*Google, error) {
	if key == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	o := buildOptions(opts)
	if o.baseURL == "" {
		o.baseURL = googleGeocodeURL
	}
	return &Google{key: key, opts: o}, nil
}

// Lookup implements Lookuper.
func (g *Google) Lookup(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"address": {query},
		"key":     {g.key},
	}
	// Google biases by a single region code.
	if cc, _, _ := strings.Cut(g.opts.countryCodes, ","); cc != "" {
		params.Set("region", cc)
	}

	reqURL := g.opts.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := g.opts.httpClient.Do(req)
	if err != nil {
		return nil, classify("google", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus("google", resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("google", err)
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch googleResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, eris.Wrapf(ErrNotFound, "google: %q", query)
	default:
		return nil, eris.Errorf("geocode: google status %s: %s", googleResp.Status, googleResp.ErrorMessage)
	}
	if len(googleResp.Results) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "google: %q", query)
	}

	result := googleResp.Results[0]
	return &Result{
		Latitude:    result.Geometry.Location.Lat,
		Longitude:   result.Geometry.Location.Lng,
		DisplayName: result.FormattedAddress,
		Source:      "google",
		Quality:     googleLocationTypeToQuality(result.Geometry.LocationType),
	}, nil
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
