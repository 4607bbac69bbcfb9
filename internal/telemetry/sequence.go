package telemetry

import "sync/atomic"

// Sequence is the monotonic logical counter that hands out tick ids.
//
// Tick ids order records; wall-clock timestamps never do. Safe for
// concurrent use, though a Recording only calls it from its owner.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence whose first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence positioned at start; the next call to
// Next returns start+1.
func NewSequenceAt(start uint64) *Sequence {
	s := &Sequence{}
	s.seq.Store(int64(start))
	return s
}

// Next increments and returns the sequence.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last value handed out, or the start position.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
