package cache

import (
	"sync"

	"github.com/jonwraymond/filmjoin/upstream"
)

// store holds one entry per resource.
type store struct {
	mu      sync.RWMutex
	entries map[upstream.Resource]Entry
}

func newStore() *store {
	return &store{entries: make(map[upstream.Resource]Entry)}
}

// get returns the entry for r. Expired entries are kept so they can still be
// served stale; freshness is decided by the caller.
func (s *store) get(r upstream.Resource) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[r]
	s.mu.RUnlock()
	return e, ok
}

// set replaces the entry for e.Resource.
func (s *store) set(e Entry) {
	s.mu.Lock()
	s.entries[e.Resource] = e
	s.mu.Unlock()
}

// delete removes the entry for r. Idempotent.
func (s *store) delete(r upstream.Resource) {
	s.mu.Lock()
	delete(s.entries, r)
	s.mu.Unlock()
}
