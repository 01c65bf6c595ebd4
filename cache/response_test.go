package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/filmjoin/resilience"
	"github.com/jonwraymond/filmjoin/upstream"
)

// countingFetcher serves canned collections and counts calls per resource.
type countingFetcher struct {
	mu      sync.Mutex
	calls   map[upstream.Resource]int
	payload map[upstream.Resource]upstream.Collection
	err     error
	gate    chan struct{} // when non-nil, Fetch blocks until it is closed
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{
		calls: make(map[upstream.Resource]int),
		payload: map[upstream.Resource]upstream.Collection{
			upstream.Works:  {{ID: "w1", Title: "Castle in the Sky"}},
			upstream.Agents: {{ID: "a1", Name: "Pazu", Films: []string{"https://x/films/w1"}}},
		},
	}
}

func (f *countingFetcher) Fetch(ctx context.Context, r upstream.Resource) (upstream.Collection, error) {
	f.mu.Lock()
	f.calls[r]++
	gate, err, payload := f.gate, f.err, f.payload[r]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (f *countingFetcher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *countingFetcher) count(r upstream.Resource) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[r]
}

func newTestCache(t *testing.T, f Fetcher, p Policy, opts ...Option) (*ResponseCache, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	rc, err := New(f, p, append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return rc, clock
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, DefaultPolicy())
	assert.ErrorIs(t, err, ErrNilFetcher)

	_, err = New(newCountingFetcher(), Policy{TTL: 0})
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 60*time.Second, p.TTL)
	assert.False(t, p.ServeStale)
	assert.NoError(t, p.Validate())
}

func TestGet_HitSuppressesFetch(t *testing.T) {
	f := newCountingFetcher()
	rc, clock := newTestCache(t, f, DefaultPolicy())
	ctx := context.Background()

	first, err := rc.Get(ctx, upstream.Works)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	second, err := rc.Get(ctx, upstream.Works)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.count(upstream.Works))
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Fetches: 1}, rc.Stats())
}

func TestGet_ExpiryForcesRefetch(t *testing.T) {
	f := newCountingFetcher()
	rc, clock := newTestCache(t, f, DefaultPolicy())
	ctx := context.Background()

	_, err := rc.Get(ctx, upstream.Works)
	require.NoError(t, err)
	fetchedAt, _ := rc.Entry(upstream.Works)

	clock.Advance(60 * time.Second)
	assert.Equal(t, SlotExpired, rc.State(upstream.Works))

	_, err = rc.Get(ctx, upstream.Works)
	require.NoError(t, err)

	assert.Equal(t, 2, f.count(upstream.Works))
	refreshed, ok := rc.Entry(upstream.Works)
	require.True(t, ok)
	assert.True(t, refreshed.FetchedAt.After(fetchedAt.FetchedAt))
	assert.Equal(t, SlotFresh, rc.State(upstream.Works))
}

func TestGet_SingleFlightCollapse(t *testing.T) {
	f := newCountingFetcher()
	f.gate = make(chan struct{})
	rc, _ := newTestCache(t, f, DefaultPolicy())

	const callers = 16
	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coll, err := rc.Get(context.Background(), upstream.Agents)
			if err == nil && len(coll) == 1 {
				ok.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return f.count(upstream.Agents) == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the flight before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, 1, f.count(upstream.Agents))
	assert.Equal(t, int32(callers), ok.Load())
}

func TestGet_SingleFlightSharesError(t *testing.T) {
	f := newCountingFetcher()
	f.gate = make(chan struct{})
	boom := &upstream.NetworkError{Resource: upstream.Works, StatusCode: 503, Err: upstream.ErrStatus}
	f.setErr(boom)
	rc, _ := newTestCache(t, f, DefaultPolicy())

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := rc.Get(context.Background(), upstream.Works)
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return f.count(upstream.Works) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.gate)

	for i := 0; i < 4; i++ {
		assert.Same(t, boom, <-errs)
	}
	assert.Equal(t, 1, f.count(upstream.Works))
}

func TestGet_FailedRefreshDoesNotOverwrite(t *testing.T) {
	f := newCountingFetcher()
	rc, clock := newTestCache(t, f, DefaultPolicy())
	ctx := context.Background()

	_, err := rc.Get(ctx, upstream.Works)
	require.NoError(t, err)
	before, _ := rc.Entry(upstream.Works)

	clock.Advance(2 * time.Minute)
	boom := errors.New("connection refused")
	f.setErr(boom)

	coll, err := rc.Get(ctx, upstream.Works)
	assert.Nil(t, coll)
	assert.ErrorIs(t, err, boom)

	after, ok := rc.Entry(upstream.Works)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(1), rc.Stats().Errors)
}

func TestGet_ErrorNotCached(t *testing.T) {
	f := newCountingFetcher()
	f.setErr(errors.New("down"))
	rc, _ := newTestCache(t, f, DefaultPolicy())
	ctx := context.Background()

	_, err := rc.Get(ctx, upstream.Works)
	require.Error(t, err)
	assert.Equal(t, SlotEmpty, rc.State(upstream.Works))

	f.setErr(nil)
	coll, err := rc.Get(ctx, upstream.Works)
	require.NoError(t, err)
	assert.Len(t, coll, 1)
	assert.Equal(t, 2, f.count(upstream.Works))
}

func TestGet_ServeStale(t *testing.T) {
	f := newCountingFetcher()
	rc, clock := newTestCache(t, f, Policy{TTL: time.Minute, ServeStale: true})
	ctx := context.Background()

	want, err := rc.Get(ctx, upstream.Agents)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	f.setErr(errors.New("down"))

	got, err := rc.Get(ctx, upstream.Agents)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(1), rc.Stats().Stale)
}

func TestGet_ServeStaleWithoutEntryFails(t *testing.T) {
	f := newCountingFetcher()
	f.setErr(errors.New("down"))
	rc, _ := newTestCache(t, f, Policy{TTL: time.Minute, ServeStale: true})

	_, err := rc.Get(context.Background(), upstream.Agents)
	assert.EqualError(t, err, "down")
}

func TestGet_ResourcesAreIndependent(t *testing.T) {
	f := newCountingFetcher()
	rc, clock := newTestCache(t, f, DefaultPolicy())
	ctx := context.Background()

	_, err := rc.Get(ctx, upstream.Works)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = rc.Get(ctx, upstream.Agents)
	require.NoError(t, err)

	clock.Advance(31 * time.Second)
	assert.Equal(t, SlotExpired, rc.State(upstream.Works))
	assert.Equal(t, SlotFresh, rc.State(upstream.Agents))

	_, err = rc.Get(ctx, upstream.Agents)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(upstream.Agents))
}

func TestGet_PayloadIsCopied(t *testing.T) {
	f := newCountingFetcher()
	rc, _ := newTestCache(t, f, DefaultPolicy())
	ctx := context.Background()

	coll, err := rc.Get(ctx, upstream.Agents)
	require.NoError(t, err)
	coll[0].Name = "mutated"
	coll[0].Films[0] = "mutated"

	again, err := rc.Get(ctx, upstream.Agents)
	require.NoError(t, err)
	assert.Equal(t, "Pazu", again[0].Name)
	assert.Equal(t, "https://x/films/w1", again[0].Films[0])
	assert.Equal(t, "Pazu", f.payload[upstream.Agents][0].Name)
}

func TestGet_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	f := newCountingFetcher()
	f.gate = make(chan struct{})
	rc, _ := newTestCache(t, f, DefaultPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := rc.Get(ctx, upstream.Works)
		done <- err
	}()
	require.Eventually(t, func() bool { return f.count(upstream.Works) == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(f.gate)
	require.Eventually(t, func() bool { return rc.State(upstream.Works) == SlotFresh }, time.Second, time.Millisecond)
}

func TestGet_ExecutorRetriesFetch(t *testing.T) {
	var calls atomic.Int32
	f := FetcherFunc(func(ctx context.Context, r upstream.Resource) (upstream.Collection, error) {
		if calls.Add(1) == 1 {
			return nil, &upstream.NetworkError{Resource: r, StatusCode: 503, Err: upstream.ErrStatus}
		}
		return upstream.Collection{{ID: "w1"}}, nil
	})
	exec := resilience.NewExecutor(resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	})))
	rc, err := New(f, DefaultPolicy(), WithExecutor(exec))
	require.NoError(t, err)

	coll, err := rc.Get(context.Background(), upstream.Works)
	require.NoError(t, err)
	assert.Len(t, coll, 1)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(2), rc.Stats().Fetches)
}

func TestGet_ExecutorRejectionIsNetworkError(t *testing.T) {
	down := &upstream.NetworkError{Resource: upstream.Works, StatusCode: 503, Err: upstream.ErrStatus}

	tests := []struct {
		name    string
		exec    *resilience.Executor
		wantErr error
	}{
		{
			name: "circuit open",
			exec: resilience.NewExecutor(resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
				MaxFailures:  1,
				ResetTimeout: time.Hour,
			}))),
			wantErr: resilience.ErrCircuitOpen,
		},
		{
			name: "rate limited",
			exec: resilience.NewExecutor(resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
				Rate:  0.001,
				Burst: 1,
			}))),
			wantErr: resilience.ErrRateLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FetcherFunc(func(ctx context.Context, r upstream.Resource) (upstream.Collection, error) {
				return nil, down
			})
			rc, err := New(f, DefaultPolicy(), WithExecutor(tt.exec))
			require.NoError(t, err)

			_, err = rc.Get(context.Background(), upstream.Works)
			assert.Same(t, down, err)

			_, err = rc.Get(context.Background(), upstream.Works)
			var netErr *upstream.NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, upstream.Works, netErr.Resource)
			assert.False(t, netErr.Retryable())
		})
	}
}

func TestInvalidate(t *testing.T) {
	f := newCountingFetcher()
	rc, _ := newTestCache(t, f, DefaultPolicy())
	ctx := context.Background()

	_, err := rc.Get(ctx, upstream.Works)
	require.NoError(t, err)
	rc.Invalidate(upstream.Works)
	rc.Invalidate(upstream.Works)

	_, ok := rc.Entry(upstream.Works)
	assert.False(t, ok)

	_, err = rc.Get(ctx, upstream.Works)
	require.NoError(t, err)
	assert.Equal(t, 2, f.count(upstream.Works))
}

func TestSlotState_String(t *testing.T) {
	assert.Equal(t, "empty", SlotEmpty.String())
	assert.Equal(t, "fresh", SlotFresh.String())
	assert.Equal(t, "expired", SlotExpired.String())
	assert.Equal(t, "unknown", SlotState(7).String())
}
