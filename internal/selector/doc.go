// Package selector evaluates derived values against a store.
//
// A Selector is identified by a NodeID and computes a text output from
// values it reads through a Context. Every read registers an edge
// (read node -> selector id) in the dependency graph, so the graph always
// reflects which stored values each selector has consulted.
//
// Evaluation is read-only with respect to the store and never re-evaluates
// dependents. Invalidation and recomputation belong to the caller.
package selector
