package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/filmjoin/upstream"
)

// Sentinel errors for cache construction.
var (
	ErrNilFetcher = errors.New("cache: fetcher is nil")
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
)

// Fetcher retrieves a collection from the remote API.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations must honor cancellation/deadlines.
// - Errors: a failed fetch returns a nil collection.
type Fetcher interface {
	Fetch(ctx context.Context, r upstream.Resource) (upstream.Collection, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, r upstream.Resource) (upstream.Collection, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, r upstream.Resource) (upstream.Collection, error) {
	return f(ctx, r)
}

// Entry is the last successful response for one resource.
type Entry struct {
	Resource  upstream.Resource
	Payload   upstream.Collection
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched, relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Valid reports whether the entry is still fresh under ttl.
func (e Entry) Valid(now time.Time, ttl time.Duration) bool {
	return e.Age(now) < ttl
}

// SlotState describes what a resource slot currently holds.
type SlotState int

const (
	// SlotEmpty means the resource has never been fetched successfully.
	SlotEmpty SlotState = iota
	// SlotFresh means the slot holds an entry younger than the TTL.
	SlotFresh
	// SlotExpired means the slot holds an entry that must be refreshed.
	SlotExpired
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotFresh:
		return "fresh"
	case SlotExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64 // lookups served from a fresh entry
	Misses  int64 // lookups that needed a fetch
	Stale   int64 // lookups served from an expired entry after a failed refresh
	Fetches int64 // upstream fetches actually issued
	Errors  int64 // upstream fetches that failed
}
