// Package catalog aggregates the two upstream collections into joined works.
//
// A Service fetches works and agents concurrently from a Source, waits for
// both, resolves each agent's film references to work identifiers and joins
// them. Aggregation is all-or-nothing: if either fetch fails the caller gets
// an *AggregationError naming the failed resource and no partial list.
package catalog
