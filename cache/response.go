package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/filmjoin/observe"
	"github.com/jonwraymond/filmjoin/resilience"
	"github.com/jonwraymond/filmjoin/upstream"
)

// ResponseCache is a per-resource TTL cache in front of a Fetcher.
//
// Contract:
//   - Concurrency: safe for concurrent use; at most one fetch per resource is in flight.
//   - Context: a caller whose context ends stops waiting; the shared fetch
//     still completes and populates the slot.
//   - Errors: fetch errors are returned unchanged and never cached. A call
//     refused by the executor's circuit breaker or rate limiter surfaces as
//     an *upstream.NetworkError wrapping the resilience sentinel.
type ResponseCache struct {
	fetcher Fetcher
	policy  Policy
	clock   clockwork.Clock
	exec    *resilience.Executor
	logger  observe.Logger
	metrics observe.Metrics

	store *store
	group singleflight.Group

	hits, misses, stale, fetches, fetchErrs atomic.Int64
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithClock sets the time source used for freshness checks.
func WithClock(c clockwork.Clock) Option {
	return func(rc *ResponseCache) {
		if c != nil {
			rc.clock = c
		}
	}
}

// WithExecutor runs every upstream fetch through exec.
func WithExecutor(exec *resilience.Executor) Option {
	return func(rc *ResponseCache) {
		if exec != nil {
			rc.exec = exec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(rc *ResponseCache) {
		if l != nil {
			rc.logger = l
		}
	}
}

// WithMetrics records lookup outcomes on m.
func WithMetrics(m observe.Metrics) Option {
	return func(rc *ResponseCache) {
		if m != nil {
			rc.metrics = m
		}
	}
}

// New creates a ResponseCache in front of fetcher.
func New(fetcher Fetcher, policy Policy, opts ...Option) (*ResponseCache, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	rc := &ResponseCache{
		fetcher: fetcher,
		policy:  policy,
		clock:   clockwork.NewRealClock(),
		exec:    resilience.NewExecutor(),
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		store:   newStore(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc, nil
}

// Policy returns the cache policy.
func (c *ResponseCache) Policy() Policy {
	return c.policy
}

// Get returns the collection for r, fetching it when no fresh entry exists.
// The returned collection is a private copy.
func (c *ResponseCache) Get(ctx context.Context, r upstream.Resource) (upstream.Collection, error) {
	if e, ok := c.store.get(r); ok && e.Valid(c.clock.Now(), c.policy.TTL) {
		c.hits.Add(1)
		c.metrics.RecordCacheLookup(ctx, r.String(), observe.LookupHit)
		return e.Payload.Clone(), nil
	}

	c.misses.Add(1)
	c.metrics.RecordCacheLookup(ctx, r.String(), observe.LookupMiss)

	// The shared fetch must not be cut short by whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(r.String(), func() (any, error) {
		return c.refresh(fetchCtx, r)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return c.fallback(ctx, r, res.Err)
		}
		return res.Val.(Entry).Payload.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh runs inside the single-flight group.
func (c *ResponseCache) refresh(ctx context.Context, r upstream.Resource) (Entry, error) {
	// A flight that finished just before this one may already have stored a fresh entry.
	if e, ok := c.store.get(r); ok && e.Valid(c.clock.Now(), c.policy.TTL) {
		return e, nil
	}

	var payload upstream.Collection
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		c.fetches.Add(1)
		var err error
		payload, err = c.fetcher.Fetch(ctx, r)
		return err
	})
	if err != nil {
		c.fetchErrs.Add(1)
		return Entry{}, rejected(r, err)
	}

	e := Entry{Resource: r, Payload: payload.Clone(), FetchedAt: c.clock.Now()}
	c.store.set(e)
	c.logger.Debug(ctx, "cache refreshed",
		observe.F("resource", r.String()),
		observe.F("records", len(payload)),
	)
	return e, nil
}

// rejected wraps breaker and limiter refusals so every error leaving the cache
// names the resource it was for.
func rejected(r upstream.Resource, err error) error {
	var netErr *upstream.NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrRateLimitExceeded) {
		return &upstream.NetworkError{Resource: r, Err: err}
	}
	return err
}

func (c *ResponseCache) fallback(ctx context.Context, r upstream.Resource, err error) (upstream.Collection, error) {
	if !c.policy.ServeStale {
		return nil, err
	}
	e, ok := c.store.get(r)
	if !ok {
		return nil, err
	}

	c.stale.Add(1)
	c.metrics.RecordCacheLookup(ctx, r.String(), observe.LookupStale)
	c.logger.Warn(ctx, "serving stale entry after failed refresh",
		observe.F("resource", r.String()),
		observe.F("age", e.Age(c.clock.Now()).String()),
		observe.F("error", err),
	)
	return e.Payload.Clone(), nil
}

// Entry returns a snapshot of the slot for r, whether fresh or expired.
func (c *ResponseCache) Entry(r upstream.Resource) (Entry, bool) {
	e, ok := c.store.get(r)
	if !ok {
		return Entry{}, false
	}
	e.Payload = e.Payload.Clone()
	return e, true
}

// State reports whether the slot for r is empty, fresh or expired.
func (c *ResponseCache) State(r upstream.Resource) SlotState {
	e, ok := c.store.get(r)
	switch {
	case !ok:
		return SlotEmpty
	case e.Valid(c.clock.Now(), c.policy.TTL):
		return SlotFresh
	default:
		return SlotExpired
	}
}

// Invalidate drops the entry for r so the next Get fetches.
func (c *ResponseCache) Invalidate(r upstream.Resource) {
	c.store.delete(r)
}

// Stats returns a snapshot of the cache counters.
func (c *ResponseCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Stale:   c.stale.Load(),
		Fetches: c.fetches.Load(),
		Errors:  c.fetchErrs.Load(),
	}
}
