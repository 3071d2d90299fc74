// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// DefaultGoogleMapsURL is the Google Maps Geocoding API endpoint.
const DefaultGoogleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder. An empty baseURL
// means DefaultGoogleMapsURL.
func NewGoogleMapsGeocoder(apiKey, baseURL string, httpClient *http.Client) *GoogleMapsGeocoder {
	if baseURL == "" {
		baseURL = DefaultGoogleMapsURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GoogleMapsGeocoder{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// Geocode implements Geocoder.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, name, region string) (*Result, error) {
	query := Query{Name: name, Region: region}.String()

	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)
	params.Set("region", "fr")
	params.Set("components", "country:FR")

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

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "decoding google maps response", Err: err}
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, NotFound(query)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return nil, &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "google maps status: " + gmResp.Status + " " + gmResp.ErrorMessage}
	case "INVALID_REQUEST":
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps status: " + gmResp.Status}
	default:
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "google maps status: " + gmResp.Status}
	}

	if len(gmResp.Results) == 0 {
		return nil, NotFound(query)
	}

	result := gmResp.Results[0]

	confidence := "low"

	switch result.Geometry.LocationType {
	case "ROOFTOP", "RANGE_INTERPOLATED":
		confidence = "high"
	case "GEOMETRIC_CENTER":
		confidence = "medium"
	}

	res := &Result{
		Confidence:  confidence,
		Provider:    ProviderGoogleMaps,
		DisplayName: result.FormattedAddress,
	}
	res.Point.Lat = result.Geometry.Location.Lat
	res.Point.Lng = result.Geometry.Location.Lng

	if !res.Point.InMetropolitanFrance() {
		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("%s resolved outside metropolitan France at %s", query, res.Point),
		}
	}

	return res, nil
}

// APIKeyFromADC looks up the Maps API key named displayName in the Google
// Cloud project of the application default credentials, falling back to
// project when the credentials don't carry one.
func APIKeyFromADC(ctx context.Context, project, displayName string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		// Happens with user credentials without a quota project.
		if project == "" {
			return "", errors.New("no project in default credentials and none configured")
		}

		projectID = project
		log.Printf("⚠️ No Project ID found in credentials. Using configured project: %s", projectID)
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the secret.
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' has an empty key string", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", displayName, projectID)
}
