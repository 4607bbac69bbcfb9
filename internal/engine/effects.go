package engine

import "github.com/roach88/crust/internal/ir"

// EffectQueue buffers the patch ops of the open tick in emission order.
//
// It is append-only between commits. Not safe for concurrent use.
type EffectQueue struct {
	ops []ir.PatchOp
}

// NewEffectQueue returns an empty queue.
func NewEffectQueue() *EffectQueue {
	return &EffectQueue{ops: make([]ir.PatchOp, 0, 16)}
}

// Push appends op.
func (q *EffectQueue) Push(op ir.PatchOp) {
	q.ops = append(q.ops, op)
}

// Commit drains every pending op into a batch and leaves the queue empty.
// An empty queue yields an empty, non-nil batch.
func (q *EffectQueue) Commit() ir.PatchBatch {
	batch := make(ir.PatchBatch, len(q.ops))
	copy(batch, q.ops)
	clear(q.ops)
	q.ops = q.ops[:0]
	return batch
}

// Pending returns a copy of the ops queued so far.
func (q *EffectQueue) Pending() []ir.PatchOp {
	out := make([]ir.PatchOp, len(q.ops))
	copy(out, q.ops)
	return out
}

// Len returns the number of pending ops.
func (q *EffectQueue) Len() int { return len(q.ops) }
