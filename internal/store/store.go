package store

import (
	"maps"
	"slices"

	"github.com/roach88/crust/internal/ir"
)

// Store maps node identity to its current text value.
type Store struct {
	values map[ir.NodeID]string
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[ir.NodeID]string)}
}

// SetValue overwrites the value for node. It always succeeds and performs no
// validation of the identity.
func (s *Store) SetValue(node ir.NodeID, text string) {
	if s.values == nil {
		s.values = make(map[ir.NodeID]string)
	}
	s.values[node] = text
}

// Value returns the current value for node and whether one exists.
func (s *Store) Value(node ir.NodeID) (string, bool) {
	v, ok := s.values[node]
	return v, ok
}

// Len returns the number of nodes holding a value.
func (s *Store) Len() int {
	return len(s.values)
}

// Nodes returns every node holding a value in ascending order.
func (s *Store) Nodes() []ir.NodeID {
	return slices.SortedFunc(maps.Keys(s.values), ir.Compare)
}

// Snapshot returns a copy of all values.
func (s *Store) Snapshot() map[ir.NodeID]string {
	return maps.Clone(s.values)
}
