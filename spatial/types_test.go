// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointString(t *testing.T) {
	assert.Equal(t, "POINT(2.290300 48.776500)", Point{Lat: 48.7765, Lng: 2.2903}.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"sceaux", Point{Lat: 48.7765, Lng: 2.2903}, false},
		{"latitude too high", Point{Lat: 91, Lng: 0}, true},
		{"latitude too low", Point{Lat: -91, Lng: 0}, true},
		{"longitude out of range", Point{Lat: 0, Lng: 181}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInMetropolitanFrance(t *testing.T) {
	assert.True(t, FranceCenter.InMetropolitanFrance())
	assert.True(t, Point{Lat: 41.9192, Lng: 8.7386}.InMetropolitanFrance(), "Ajaccio")
	assert.True(t, Point{Lat: 48.3904, Lng: -4.4861}.InMetropolitanFrance(), "Brest")
	assert.False(t, Point{Lat: 16.2650, Lng: -61.5510}.InMetropolitanFrance(), "Guadeloupe")
	assert.False(t, Point{Lat: 45.5017, Lng: -73.5673}.InMetropolitanFrance(), "Montréal")
}

func TestCell(t *testing.T) {
	a, err := Point{Lat: 48.7765, Lng: 2.2903}.Cell()
	require.NoError(t, err)
	assert.NotZero(t, a)

	b, err := Point{Lat: 48.7765, Lng: 2.2903}.Cell()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Point{Lat: 43.2965, Lng: 5.3698}.Cell()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
