package ident

import (
	"errors"
	"fmt"
)

// Sentinel errors for extraction.
var (
	// ErrMarkerMissing indicates the reference does not contain the marker.
	ErrMarkerMissing = errors.New("ident: marker not found in reference")

	// ErrEmptySegment indicates nothing usable follows the marker.
	ErrEmptySegment = errors.New("ident: empty identifier segment")

	// ErrNestedSegment indicates a normalized identifier spans more than one path segment.
	ErrNestedSegment = errors.New("ident: identifier spans multiple path segments")
)

// ExtractionError reports a reference that could not be reduced to an identifier.
type ExtractionError struct {
	Ref    string
	Marker string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("ident: extract %q (marker %q): %v", e.Ref, e.Marker, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
