package ident

import "strings"

// DefaultMarker is the path prefix that precedes film identifiers.
const DefaultMarker = "films/"

// Extractor pulls the identifier that follows Marker out of a reference.
//
// Contract:
// - Concurrency: an Extractor is immutable and safe for concurrent use.
// - Errors: failures are always *ExtractionError.
type Extractor struct {
	marker    string
	normalize bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithNormalize makes Extract drop a query string or fragment, trim one
// trailing slash, and reject identifiers that span several path segments.
// Off by default.
func WithNormalize() Option {
	return func(x *Extractor) {
		x.normalize = true
	}
}

// New creates an extractor for marker. An empty marker selects DefaultMarker.
func New(marker string, opts ...Option) *Extractor {
	if marker == "" {
		marker = DefaultMarker
	}
	x := &Extractor{marker: marker}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

var defaultExtractor = New(DefaultMarker)

// Extract is Extractor.Extract with DefaultMarker.
func Extract(ref string) (string, error) {
	return defaultExtractor.Extract(ref)
}

// Marker returns the configured marker.
func (x *Extractor) Marker() string {
	return x.marker
}

// Normalizes reports whether WithNormalize was applied.
func (x *Extractor) Normalizes() bool {
	return x.normalize
}

// Extract returns everything after the last occurrence of the marker,
// verbatim: "https://x/films/abc/def" yields "abc/def". It fails only when
// the marker is missing or nothing follows it.
//
// With WithNormalize, "https://x/films/abc/?lang=en" yields "abc" and
// "https://x/films/abc/def" fails with ErrNestedSegment.
func (x *Extractor) Extract(ref string) (string, error) {
	idx := strings.LastIndex(ref, x.marker)
	if idx < 0 {
		return "", x.fail(ref, ErrMarkerMissing)
	}

	seg := ref[idx+len(x.marker):]
	if x.normalize {
		if cut := strings.IndexAny(seg, "?#"); cut >= 0 {
			seg = seg[:cut]
		}
		seg = strings.TrimSuffix(seg, "/")
	}

	if strings.TrimSpace(seg) == "" {
		return "", x.fail(ref, ErrEmptySegment)
	}
	if x.normalize && strings.Contains(seg, "/") {
		return "", x.fail(ref, ErrNestedSegment)
	}
	return seg, nil
}

// ExtractAll extracts every reference in refs.
//
// Malformed references are dropped and reported through onError, which may be
// nil. Duplicate identifiers are collapsed, keeping first-seen order. The
// result is never nil.
func (x *Extractor) ExtractAll(refs []string, onError func(ref string, err error)) []string {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		id, err := x.Extract(ref)
		if err != nil {
			if onError != nil {
				onError(ref, err)
			}
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (x *Extractor) fail(ref string, err error) error {
	return &ExtractionError{Ref: ref, Marker: x.marker, Err: err}
}
