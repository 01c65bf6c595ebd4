package health

import (
	"context"
	"time"
)

// Pinger is a dependency that can report reachability. *upstream.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports a Pinger as unhealthy when Ping fails and as degraded
// when it answers slower than SlowThreshold.
type PingChecker struct {
	name          string
	pinger        Pinger
	slowThreshold time.Duration
}

// NewPingChecker creates a PingChecker. A zero slowThreshold disables the
// degraded state.
func NewPingChecker(name string, p Pinger, slowThreshold time.Duration) *PingChecker {
	return &PingChecker{name: name, pinger: p, slowThreshold: slowThreshold}
}

// Name returns the name of this checker.
func (c *PingChecker) Name() string {
	return c.name
}

// Check pings the dependency.
func (c *PingChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := c.pinger.Ping(ctx); err != nil {
		return Unhealthy("unreachable", err)
	}

	elapsed := time.Since(start)
	details := map[string]any{"latency": elapsed.String()}
	if c.slowThreshold > 0 && elapsed > c.slowThreshold {
		return Degraded("slow response").WithDetails(details)
	}
	return Healthy("reachable").WithDetails(details)
}
