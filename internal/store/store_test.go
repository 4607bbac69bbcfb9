package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/crust/internal/ir"
)

func TestStore_SetAndGet(t *testing.T) {
	s := New()

	s.SetValue(1, "alpha")

	v, ok := s.Value(1)
	assert.True(t, ok)
	assert.Equal(t, "alpha", v)
}

func TestStore_AbsentValue(t *testing.T) {
	s := New()

	v, ok := s.Value(99)
	assert.False(t, ok, "unset node should read as absent")
	assert.Empty(t, v)
}

func TestStore_LastWriteWins(t *testing.T) {
	s := New()

	s.SetValue(1, "first")
	s.SetValue(1, "second")

	v, _ := s.Value(1)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, s.Len(), "overwrite keeps a single entry")
}

func TestStore_EmptyStringIsAValue(t *testing.T) {
	s := New()

	s.SetValue(3, "")

	v, ok := s.Value(3)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestStore_NodesSorted(t *testing.T) {
	s := New()
	for _, id := range []ir.NodeID{30, 1, 20, 2} {
		s.SetValue(id, id.String())
	}

	assert.Equal(t, []ir.NodeID{1, 2, 20, 30}, s.Nodes())
}

func TestStore_ZeroValueUsable(t *testing.T) {
	var s Store

	_, ok := s.Value(1)
	assert.False(t, ok)

	s.SetValue(1, "x")
	v, _ := s.Value(1)
	assert.Equal(t, "x", v)
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := New()
	s.SetValue(1, "a")

	snap := s.Snapshot()
	snap[1] = "mutated"

	v, _ := s.Value(1)
	assert.Equal(t, "a", v)
}
