// Package graph records which nodes depend on which.
//
// Dependents are kept per source in ascending NodeID order so two graphs
// built from the same edges in any insertion order answer DependentsOf
// identically. Downstream patch ordering relies on this.
package graph

import (
	"maps"
	"slices"

	"github.com/roach88/crust/internal/ir"
)

// Graph maps a source node to the sorted, duplicate-free set of nodes that
// depend on it. It has no internal locking.
type Graph struct {
	adjacency map[ir.NodeID][]ir.NodeID
	edges     int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{adjacency: make(map[ir.NodeID][]ir.NodeID)}
}

// AddNode ensures node has a (possibly empty) dependents entry.
func (g *Graph) AddNode(node ir.NodeID) {
	if g.adjacency == nil {
		g.adjacency = make(map[ir.NodeID][]ir.NodeID)
	}
	if _, ok := g.adjacency[node]; !ok {
		g.adjacency[node] = nil
	}
}

// AddEdge records that dependent reads source. Both endpoints are created
// if missing. Adding the same pair again has no effect.
func (g *Graph) AddEdge(source, dependent ir.NodeID) {
	g.AddNode(source)
	g.AddNode(dependent)

	deps := g.adjacency[source]
	i, found := slices.BinarySearchFunc(deps, dependent, ir.Compare)
	if found {
		return
	}
	g.adjacency[source] = slices.Insert(deps, i, dependent)
	g.edges++
}

// DependentsOf returns the dependents of node in ascending order.
// Unknown nodes yield an empty slice. The result is a copy.
func (g *Graph) DependentsOf(node ir.NodeID) []ir.NodeID {
	deps := g.adjacency[node]
	out := make([]ir.NodeID, len(deps))
	copy(out, deps)
	return out
}

// HasNode reports whether node has been referenced.
func (g *Graph) HasNode(node ir.NodeID) bool {
	_, ok := g.adjacency[node]
	return ok
}

// Nodes returns every referenced node in ascending order.
func (g *Graph) Nodes() []ir.NodeID {
	return slices.SortedFunc(maps.Keys(g.adjacency), ir.Compare)
}

// EdgeCount returns the number of distinct (source, dependent) pairs.
func (g *Graph) EdgeCount() int {
	return g.edges
}
