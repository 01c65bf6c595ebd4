package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors wrapped by NetworkError.
var (
	// ErrRequest indicates the request could not be built or sent, or timed out.
	ErrRequest = errors.New("upstream: request failed")

	// ErrStatus indicates the server answered with a non-2xx status.
	ErrStatus = errors.New("upstream: unexpected status")

	// ErrMalformedBody indicates the body was not a JSON array of records with ids.
	ErrMalformedBody = errors.New("upstream: malformed body")

	// ErrUnknownResource is returned by ParseResource for unknown names.
	ErrUnknownResource = errors.New("upstream: unknown resource")

	// ErrMissingBaseURL is returned by New when no base URL is configured.
	ErrMissingBaseURL = errors.New("upstream: base url is required")
)

// NetworkError reports a failed fetch of one resource.
type NetworkError struct {
	Resource   Resource
	StatusCode int // 0 when no response was received
	Err        error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream: fetch %s: status %d: %v", e.Resource, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream: fetch %s: %v", e.Resource, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request could succeed. Transport
// failures (client timeouts included), 5xx and 429 are transient. A request
// cancelled by its caller is not.
func (e *NetworkError) Retryable() bool {
	switch {
	case errors.Is(e.Err, context.Canceled):
		return false
	case errors.Is(e.Err, ErrRequest):
		return true
	case errors.Is(e.Err, ErrStatus):
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}
