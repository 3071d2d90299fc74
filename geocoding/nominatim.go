// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/radex-fr/radex/spatial"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder uses the OpenStreetMap Nominatim search API. The public
// instance allows one request per second and requires an identifying
// User-Agent; both are the caller's business (see Cache and
// httputils.NewClient).
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewNominatimGeocoder creates a geocoder for the given search endpoint.
// An empty baseURL means DefaultNominatimURL.
func NewNominatimGeocoder(baseURL string, httpClient *http.Client) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &NominatimGeocoder{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
	AddressType string  `json:"addresstype"`
}

// Geocode implements Geocoder. Only the first match is used.
func (g *NominatimGeocoder) Geocode(ctx context.Context, name, region string) (*Result, error) {
	query := Query{Name: name, Region: region}.String()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "fr")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return nil, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "decoding nominatim response", Err: err}
	}

	if len(places) == 0 {
		return nil, NotFound(query)
	}

	place := places[0]

	point, err := parseLatLon(place.Lat, place.Lon)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "parsing nominatim coordinates", Err: err}
	}

	if !point.InMetropolitanFrance() {
		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("%s resolved outside metropolitan France at %s", query, point),
		}
	}

	// Importance is OSM's own relevance score; administrative boundaries of
	// real communes sit comfortably above 0.3.
	confidence := "low"

	switch {
	case place.Importance >= 0.5:
		confidence = "high"
	case place.Importance >= 0.3:
		confidence = "medium"
	}

	return &Result{
		Point:       point,
		Confidence:  confidence,
		Provider:    ProviderNominatim,
		DisplayName: place.DisplayName,
	}, nil
}

func parseLatLon(lat, lon string) (spatial.Point, error) {
	var (
		p   spatial.Point
		err error
	)

	if p.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return p, fmt.Errorf("latitude %q: %w", lat, err)
	}

	if p.Lng, err = strconv.ParseFloat(lon, 64); err != nil {
		return p, fmt.Errorf("longitude %q: %w", lon, err)
	}

	return p, p.Validate()
}
