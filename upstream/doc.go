// Package upstream is the HTTP client for the remote film catalogue.
//
// A Client issues exactly one GET per Fetch and never retries; callers that
// want retry, circuit breaking or rate limiting compose it outside (see the
// cache and resilience packages). Every failure is reported as a
// *NetworkError so callers can tell which resource was unavailable.
//
// Usage:
//
//	c, err := upstream.New(upstream.Config{BaseURL: "https://ghibliapi.vercel.app"})
//	films, err := c.Fetch(ctx, upstream.Works)
package upstream
