package cache

import (
	"fmt"
	"time"
)

// DefaultTTL is how long a successful response stays fresh.
const DefaultTTL = 60 * time.Second

// Policy configures caching behavior.
type Policy struct {
	// TTL is how long an entry stays fresh. Must be positive.
	TTL time.Duration `yaml:"ttl"`

	// ServeStale returns an expired entry when its refresh fails.
	ServeStale bool `yaml:"serve_stale"`
}

// DefaultPolicy returns the default caching policy.
// TTL: 60 seconds, ServeStale: false
func DefaultPolicy() Policy {
	return Policy{
		TTL:        DefaultTTL,
		ServeStale: false,
	}
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	if p.TTL <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTTL, p.TTL)
	}
	return nil
}
