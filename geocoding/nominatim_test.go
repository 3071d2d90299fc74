// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryString(t *testing.T) {
	assert.Equal(t, "Sceaux, 92, France", Query{Name: "Sceaux", Region: "92"}.String())
	assert.Equal(t, "Sceaux, France", Query{Name: " Sceaux "}.String())
}

func nominatimServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()

	var last http.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, &last
}

func TestNominatimGeocode(t *testing.T) {
	srv, last := nominatimServer(t, http.StatusOK, `[
		{"lat":"48.7765","lon":"2.2903","display_name":"Sceaux, Hauts-de-Seine, France","importance":0.55,"addresstype":"town"}
	]`)

	g := NewNominatimGeocoder(srv.URL+"/search", srv.Client())

	res, err := g.Geocode(context.Background(), "Sceaux", "92")
	require.NoError(t, err)

	assert.InDelta(t, 48.7765, res.Point.Lat, 1e-9)
	assert.InDelta(t, 2.2903, res.Point.Lng, 1e-9)
	assert.Equal(t, ProviderNominatim, res.Provider)
	assert.Equal(t, "high", res.Confidence)
	assert.Equal(t, "Sceaux, Hauts-de-Seine, France", res.DisplayName)

	q := last.URL.Query()
	assert.Equal(t, "/search", last.URL.Path)
	assert.Equal(t, "Sceaux, 92, France", q.Get("q"))
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "1", q.Get("limit"))
}

func TestNominatimGeocodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorType
	}{
		{"no results", http.StatusOK, `[]`, ErrorTypeNotFound},
		{"outside france", http.StatusOK, `[{"lat":"16.265","lon":"-61.551"}]`, ErrorTypeNotFound},
		{"bad coordinates", http.StatusOK, `[{"lat":"north","lon":"2"}]`, ErrorTypeUnknown},
		{"bad json", http.StatusOK, `<html>`, ErrorTypeUnknown},
		{"throttled", http.StatusTooManyRequests, ``, ErrorTypeRateLimit},
		{"blocked", http.StatusForbidden, `Access blocked`, ErrorTypeQuotaExceeded},
		{"down", http.StatusServiceUnavailable, ``, ErrorTypeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := nominatimServer(t, tt.status, tt.body)

			res, err := NewNominatimGeocoder(srv.URL, srv.Client()).Geocode(context.Background(), "Nulle-Part", "99")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.want, TypeOf(err), err.Error())
		})
	}
}

func TestNominatimGeocodeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond

	_, err := NewNominatimGeocoder(srv.URL, client).Geocode(context.Background(), "Sceaux", "92")
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err), err.Error())
	assert.False(t, IsDefinitive(err))

	srv.Close()

	_, err = NewNominatimGeocoder(srv.URL, http.DefaultClient).Geocode(context.Background(), "Sceaux", "92")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeNetworkError, TypeOf(err))
}
