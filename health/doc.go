// Package health reports whether the service can answer requests.
//
// A Checker reports the state of one dependency as a Result. The Aggregator
// runs every registered checker concurrently under a shared deadline and
// folds the results into one Status. Two checkers ship with the package:
// PingChecker probes a dependency that exposes Ping (the upstream client),
// and CacheChecker inspects the response cache slots.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness), /readyz (plain-text readiness), /health
// (JSON detail for every checker) and /health/{name} (one checker).
package health
