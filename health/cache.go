package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/filmjoin/cache"
	"github.com/jonwraymond/filmjoin/upstream"
)

// SlotReporter exposes the state of cache slots. *cache.ResponseCache satisfies it.
type SlotReporter interface {
	State(r upstream.Resource) cache.SlotState
	Stats() cache.Stats
}

// CacheChecker reports the response cache as degraded while any resource has
// no fresh entry. An empty or expired slot only means the next request pays
// for a fetch, so the cache is never unhealthy on its own.
type CacheChecker struct {
	cache     SlotReporter
	resources []upstream.Resource
}

// NewCacheChecker creates a CacheChecker for resources, or every known
// resource when none are given.
func NewCacheChecker(c SlotReporter, resources ...upstream.Resource) *CacheChecker {
	if len(resources) == 0 {
		resources = upstream.Resources
	}
	return &CacheChecker{cache: c, resources: resources}
}

// Name returns the name of this checker.
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check inspects every slot.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	stats := c.cache.Stats()
	details := map[string]any{
		"hits":    stats.Hits,
		"misses":  stats.Misses,
		"stale":   stats.Stale,
		"fetches": stats.Fetches,
		"errors":  stats.Errors,
	}

	var notFresh []string
	for _, r := range c.resources {
		state := c.cache.State(r)
		details[r.String()] = state.String()
		if state != cache.SlotFresh {
			notFresh = append(notFresh, r.String())
		}
	}

	if len(notFresh) > 0 {
		return Degraded(fmt.Sprintf("no fresh entry for %v", notFresh)).WithDetails(details)
	}
	return Healthy("all slots fresh").WithDetails(details)
}
