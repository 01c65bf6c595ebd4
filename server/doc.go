// Package server exposes enriched works over HTTP.
//
// Routes:
//
//	GET /                 302 to /movies
//	GET /movies           HTML table of titles and the people in them
//	GET /api/movies       the same data as JSON
//	GET /healthz, /readyz, /health, /health/{name}
//	GET /metrics          Prometheus scrape endpoint, when enabled
//
// When either upstream collection is unavailable the movie routes answer
// 502 with "No data found" and never render a partial list.
package server
