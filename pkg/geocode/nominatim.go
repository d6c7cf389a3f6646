package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

const nominatimURL = "https://nominatim.openstreetmap.org"

const defaultUserAgent = "route-cli/1.0"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	AddressType string `json:"addresstype"`
}

// Nominatim queries the OpenStreetMap search endpoint.
type Nominatim struct {
	opts options
}

// NewNominatim creates a Nominatim client.
func NewNominatim(opts ...Option) *Nominatim {
	o := buildOptions(opts)
	if o.baseURL == "" {
		o.baseURL = nominatimURL
	}
	if o.userAgent == "" {
		o.userAgent = defaultUserAgent
	}
	return &Nominatim{opts: o}
}

// Lookup implements Lookuper.
func (n *Nominatim) Lookup(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if n.opts.countryCodes != "" {
		params.Set("countrycodes", n.opts.countryCodes)
	}
	if n.opts.email != "" {
		params.Set("email", n.opts.email)
	}

	reqURL := n.opts.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", n.opts.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.opts.httpClient.Do(req)
	if err != nil {
		return nil, classify("nominatim", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatus("nominatim", resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("nominatim", err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(places) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "nominatim: %q", query)
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim latitude %q", p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: nominatim longitude %q", p.Lon)
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: p.DisplayName,
		Source:      "nominatim",
		Quality:     p.AddressType,
	}, nil
}
