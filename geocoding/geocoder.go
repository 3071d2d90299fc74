// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding turns commune names into coordinates. Providers implement
// Geocoder; Cache sits in front of a provider to pace requests and remember
// answers, and Batch walks a list of queries sequentially.
package geocoding

import (
	"context"
	"strings"

	"github.com/radex-fr/radex/spatial"
)

// Provider names, as reported in Result.Provider and metrics labels.
const (
	ProviderNominatim  = "nominatim"
	ProviderGoogleMaps = "google_maps"
)

// Result represents a geocoding result from any provider.
type Result struct {
	Point       spatial.Point `json:"point"`
	Confidence  string        `json:"confidence"` // high, medium, low
	Provider    string        `json:"provider"`
	DisplayName string        `json:"display_name"`
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	Geocode(ctx context.Context, name, region string) (*Result, error)
}

// Query is one place to look up: a commune name and the region used to
// disambiguate it, here the department code.
type Query struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

// String returns the free-form query sent to providers,
// "name, region, France".
func (q Query) String() string {
	parts := make([]string, 0, 3)
	if name := strings.TrimSpace(q.Name); name != "" {
		parts = append(parts, name)
	}

	if region := strings.TrimSpace(q.Region); region != "" {
		parts = append(parts, region)
	}

	return strings.Join(append(parts, "France"), ", ")
}
