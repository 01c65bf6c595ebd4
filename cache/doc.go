// Package cache bounds calls to the upstream API with a per-resource TTL cache.
//
// Each resource owns one slot. A lookup that finds a fresh entry returns it
// without touching the network. A miss or an expired entry triggers a fetch;
// concurrent lookups of the same resource share that fetch through a
// single-flight group, so at most one request per resource is in flight.
// Successful fetches replace the slot; failed fetches leave it untouched and
// are returned to every waiter unchanged. Expiry is lazy: nothing runs in the
// background and entries are never evicted for capacity.
//
// Policy.ServeStale lets a lookup fall back to an expired entry when the
// refresh fails. It is off by default.
package cache
