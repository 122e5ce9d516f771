package alphavantage

import (
	"fmt"
)

// ErrorKind categorizes a failed fetch. The coordinator records the kind as
// the degraded-outcome reason, so rate limiting stays separable from outright
// API errors in the run summary even though both trigger the same fallback.
type ErrorKind string

const (
	// KindRateLimited indicates an explicit rate-limit signal from the API,
	// either HTTP 429 or a note-style body instead of a time series.
	KindRateLimited ErrorKind = "rate_limited"
	// KindUnreachable indicates a network error, timeout, or server error.
	KindUnreachable ErrorKind = "unreachable"
	// KindMalformedResponse indicates a response was received but its shape
	// does not match the expected time-series schema.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindUnauthorized indicates the API rejected the key.
	KindUnauthorized ErrorKind = "unauthorized"
)

// FetchError describes why a fetch produced no usable series.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap exposes the transport-level cause to errors.Is and errors.As.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewRateLimitError reports an explicit rate-limit signal. statusCode is 0
// when the limit arrived in a 200 body rather than as HTTP 429.
func NewRateLimitError(statusCode int, message string) *FetchError {
	return &FetchError{
		Kind:       KindRateLimited,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewUnreachableError wraps a transport failure (dial error, timeout,
// canceled context).
func NewUnreachableError(cause error) *FetchError {
	return &FetchError{
		Kind:    KindUnreachable,
		Message: "network request failed",
		Cause:   cause,
	}
}

// NewMalformedResponseError reports a response whose shape does not match
// the expected time-series schema.
func NewMalformedResponseError(message string, cause error) *FetchError {
	return &FetchError{
		Kind:    KindMalformedResponse,
		Message: message,
		Cause:   cause,
	}
}

// NewUnauthorizedError reports a rejected API key.
func NewUnauthorizedError(statusCode int, message string) *FetchError {
	return &FetchError{
		Kind:       KindUnauthorized,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ClassifyHTTPStatus maps a non-2xx HTTP status onto a FetchError kind.
// Anything that is not a rate-limit or auth rejection counts as the API
// being unreachable.
func ClassifyHTTPStatus(statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(statusCode, "rate limit exceeded")
	case statusCode == 401 || statusCode == 403:
		return NewUnauthorizedError(statusCode, "API key rejected")
	default:
		return &FetchError{
			Kind:       KindUnreachable,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}
