// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// dummyRoundTripper is useful to simulate a response.
type dummyRoundTripper struct {
	response *http.Response
}

func (d *dummyRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	if d.response != nil {
		return d.response, nil
	}

	return nil, nil
}

//////////////////////////////////
// Test LoggingRoundTripper

// TestLoggingRoundTripper verifies that the LoggingRoundTripper logs both the request and
// the response (including timing information).
func TestLoggingRoundTripper(t *testing.T) {
	var logBuffer bytes.Buffer

	drt := &dummyRoundTripper{
		response: &http.Response{
			Status:     "200 OK",
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(`[{"lat":"48.7765","lon":"2.2903"}]`)),
		},
	}

	lt := &LoggingRoundTripper{
		Transport: drt,
		Writer:    &logBuffer,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/search?q=Sceaux", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	_, err = lt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	logContent := logBuffer.String()
	if !strings.Contains(logContent, "> GET /search?q=Sceaux") {
		t.Errorf("log does not contain request info. Got: %s", logContent)
	}

	if !strings.Contains(logContent, "< RESPONSE: [") {
		t.Errorf("log does not contain response header with timing info. Got: %s", logContent)
	}

	if !strings.Contains(logContent, "48.7765") {
		t.Errorf("log does not contain response body. Got: %s", logContent)
	}
}

func TestLoggingRoundTripperWithoutWriter(t *testing.T) {
	drt := &dummyRoundTripper{
		response: &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody},
	}

	lt := &LoggingRoundTripper{Transport: drt}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)

	resp, err := lt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected passthrough response, got %d", resp.StatusCode)
	}
}

//////////////////////////////////
// Test AppendRequestHeadersRoundTripper

// dummyHeadersRoundTripper is used to verify that the headers are added.
type dummyHeadersRoundTripper struct {
	lastRequest *http.Request
}

func (d *dummyHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func TestAppendRequestHeadersRoundTripper(t *testing.T) {
	dummy := &dummyHeadersRoundTripper{}

	atr := &AppendRequestHeadersRoundTripper{
		Transport: dummy,
		Headers: map[string]string{
			"User-Agent": "radex/test",
			"Accept":     "application/json",
		},
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.org", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Accept", "text/html")

	_, err = atr.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip returned error: %v", err)
	}

	if dummy.lastRequest == nil {
		t.Fatalf("dummy transport did not receive any request")
	}

	if got := dummy.lastRequest.Header.Get("User-Agent"); got != "radex/test" {
		t.Errorf("expected User-Agent 'radex/test', but got '%s'", got)
	}

	if got := dummy.lastRequest.Header.Get("Accept"); got != "text/html" {
		t.Errorf("caller header was overwritten, got '%s'", got)
	}

	if req.Header.Get("User-Agent") != "" {
		t.Errorf("original request was modified")
	}
}

func TestNewClient(t *testing.T) {
	var gotUA string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var trace bytes.Buffer

	client := NewClient(ClientOptions{
		UserAgent: "radex/1.0 (+test)",
		Timeout:   time.Second,
		Trace:     &trace,
	})

	resp, err := client.Get(srv.URL + "/search")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != "radex/1.0 (+test)" {
		t.Errorf("server saw User-Agent %q", gotUA)
	}

	if !strings.Contains(trace.String(), "> GET /search") {
		t.Errorf("trace missing request line: %s", trace.String())
	}
}
