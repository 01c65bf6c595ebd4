// Package observe provides the telemetry primitives shared by the fetch, cache
// and aggregation layers: a JSON structured logger, OpenTelemetry tracing and
// metrics, and a middleware that instruments a single operation.
//
// It does no I/O beyond exporter setup and the configured log sink.
package observe
