// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GeocodingError describes a failed exchange with the geocoding service.
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
	// ErrorTypeRateLimit the service is throttling us.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded the daily quota is exhausted.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout connection timeout.
	ErrorTypeTimeout
	// ErrorTypeNotFound the location wasn't found.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest the request was rejected.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError network failure.
	ErrorTypeNetworkError
)

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// StatusError is a well formed answer that reports no usable result.
type StatusError struct {
	Type    ErrorType
	Status  string // ZERO_RESULTS, OVER_QUERY_LIMIT, REQUEST_DENIED, ...
	Message string
}

func (e *StatusError) Error() string {
	return "google maps status: " + e.Reason()
}

// Reason is the service answer, verbatim.
func (e *StatusError) Reason() string {
	if e.Message != "" {
		return e.Status + ": " + e.Message
	}

	return e.Status
}

// ParseError is a result entry that lacks the expected structure.
type ParseError struct {
	Index  int // position of the result in the response, -1 for the whole document
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("result %d: %s", e.Index, e.Reason)
	if e.Index < 0 {
		msg = e.Reason
	}

	if e.Err != nil {
		return fmt.Sprintf("geocode parse: %s: %v", msg, e.Err)
	}

	return "geocode parse: " + msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func errorType(err error) (ErrorType, bool) {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type, true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Type, true
	}

	return ErrorTypeUnknown, false
}

// IsRateLimitError reports whether the service is throttling requests.
func IsRateLimitError(err error) bool {
	if t, ok := errorType(err); ok {
		return t == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError reports whether the request quota is exhausted.
func IsQuotaExceededError(err error) bool {
	if t, ok := errorType(err); ok {
		return t == ErrorTypeQuotaExceeded
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	if t, ok := errorType(err); ok {
		return t == ErrorTypeTimeout
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyHTTPError maps an HTTP status code to a geocoding error.
func ClassifyHTTPError(statusCode int) *GeocodingError {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden:
		return &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "quota exceeded or access denied",
		}
	case http.StatusBadRequest:
		return &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound:
		return &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: "endpoint not found",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &GeocodingError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}

// ClassifyStatus maps a geocoding API status to an error type.
func ClassifyStatus(status string) ErrorType {
	switch status {
	case "ZERO_RESULTS":
		return ErrorTypeNotFound
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return ErrorTypeQuotaExceeded
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return ErrorTypeInvalidRequest
	default:
		return ErrorTypeUnknown
	}
}
