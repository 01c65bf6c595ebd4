package catalog

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/filmjoin/upstream"
)

// ErrNilSource is returned by New when no source is given.
var ErrNilSource = errors.New("catalog: source is nil")

// AggregationError reports that one of the collections could not be obtained.
type AggregationError struct {
	Resource upstream.Resource
	Err      error
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("catalog: fetch %s: %v", e.Resource, e.Err)
}

// Unwrap returns the underlying error.
func (e *AggregationError) Unwrap() error {
	return e.Err
}
