// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts upstream lookups by provider and outcome.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radex_geocode_requests_total",
		Help: "Total upstream geocoding requests",
	}, []string{"provider", "outcome"})

	// CacheTotal counts cache lookups by where the answer came from: hit,
	// store or miss.
	CacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radex_geocode_cache_total",
		Help: "Total geocoding cache lookups",
	}, []string{"result"})

	// UpstreamDurationMs tracks how long providers take to answer.
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radex_geocode_duration_ms",
		Help:    "Upstream geocoding duration in milliseconds",
		Buckets: []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000},
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(UpstreamDurationMs)
}

// outcome is the metrics label for a lookup result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "found"
	case IsNotFound(err):
		return "not_found"
	default:
		return TypeOf(err).String()
	}
}
