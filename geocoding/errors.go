// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// GeocodingError represents a geocoding-specific error.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies geocoding errors.
type ErrorType int

const (
	// ErrorTypeUnknown unknown error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the service throttled us.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota exhausted or access denied.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout connection or response timeout.
	ErrorTypeTimeout
	// ErrorTypeNotFound the place could not be located.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest the service rejected the request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError transport failure or service unavailable.
	ErrorTypeNetworkError
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeQuotaExceeded:
		return "quota_exceeded"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeInvalidRequest:
		return "invalid_request"
	case ErrorTypeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// NotFound returns the error reported when a query has no match.
func NotFound(query string) *GeocodingError {
	return &GeocodingError{
		Type:    ErrorTypeNotFound,
		Message: "could not geocode: " + query,
	}
}

// TypeOf returns the ErrorType of err, ErrorTypeUnknown for foreign errors.
func TypeOf(err error) ErrorType {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type
	}

	return ErrorTypeUnknown
}

// IsNotFound checks whether the error means the place doesn't exist for the
// service, as opposed to a failure to ask.
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsDefinitive reports whether a lookup outcome is worth remembering across
// restarts: a match or a clean "not found". Transport failures are not.
func IsDefinitive(err error) bool {
	return err == nil || IsNotFound(err)
}

// IsRateLimitError checks whether the error comes from throttling.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError checks whether the error comes from an exhausted quota.
func IsQuotaExceededError(err error) bool {
	if err == nil {
		return false
	}

	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeQuotaExceeded
	}

	// Google Maps status strings
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsThrottled reports whether the provider refused the request because of
// its usage limits. Such errors call for backing off, not for another try.
func IsThrottled(err error) bool {
	return IsRateLimitError(err) || IsQuotaExceededError(err)
}

// IsTimeoutError checks whether the error is a timeout.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeTimeout
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyHTTPError maps a non-200 HTTP status to a geocoding error.
func ClassifyHTTPError(statusCode int, body string) *GeocodingError {
	var geoErr *GeocodingError

	switch statusCode {
	case http.StatusTooManyRequests: // 429
		geoErr = &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden: // 403
		geoErr = &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest: // 400
		geoErr = &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound: // 404
		geoErr = &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: "location not found",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		geoErr = &GeocodingError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		geoErr = &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}

	if body = strings.TrimSpace(body); body != "" {
		const maxBody = 200
		if len(body) > maxBody {
			body = body[:maxBody] + "…"
		}

		geoErr.Message += " - " + body
	}

	return geoErr
}

// classifyTransportError wraps an error returned by http.Client.Do.
func classifyTransportError(err error) *GeocodingError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &GeocodingError{
			Type:    ErrorTypeTimeout,
			Message: "geocoding request timed out",
			Err:     err,
		}
	}

	return &GeocodingError{
		Type:    ErrorTypeNetworkError,
		Message: "geocoding request failed",
		Err:     err,
	}
}
