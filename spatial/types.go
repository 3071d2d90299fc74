// Copyright 2025 The Radex Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// CellResolution is the H3 resolution stored alongside geocoded communes.
// At resolution 7 a cell covers about 5 km², roughly a small commune.
const CellResolution = 7

// Metropolitan France (Corsica included), with a small margin.
const (
	franceMinLat = 41.0
	franceMaxLat = 51.5
	franceMinLng = -5.5
	franceMaxLng = 10.0
)

// FranceCenter is the default map center.
var FranceCenter = Point{Lat: 46.603354, Lng: 1.888334}

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Validate checks that the point is a valid WGS84 coordinate.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", p.Lat)
	}

	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", p.Lng)
	}

	return nil
}

// InMetropolitanFrance reports whether the point falls inside the bounding box
// of metropolitan France.
func (p Point) InMetropolitanFrance() bool {
	return p.Lat >= franceMinLat && p.Lat <= franceMaxLat &&
		p.Lng >= franceMinLng && p.Lng <= franceMaxLng
}

// Cell returns the H3 cell containing the point at CellResolution.
func (p Point) Cell() (int64, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), CellResolution)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", CellResolution, err)
	}

	return int64(cell), nil
}
