package engine

import "github.com/roach88/crust/internal/ir"

// Scheduler is the Idle/Active tick state machine plus its effect queue.
// The zero value is not usable; call NewScheduler.
type Scheduler struct {
	active bool
	queue  *EffectQueue
}

// NewScheduler returns an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{queue: NewEffectQueue()}
}

// BeginTick moves Idle to Active.
func (s *Scheduler) BeginTick() error {
	if s.active {
		return newSchedulerError(ErrCodeTickAlreadyStarted, "BeginTick")
	}
	s.active = true
	return nil
}

// EnqueueOp queues op on the active tick.
func (s *Scheduler) EnqueueOp(op ir.PatchOp) error {
	if !s.active {
		return newSchedulerError(ErrCodeTickNotStarted, "EnqueueOp")
	}
	s.queue.Push(op)
	return nil
}

// CommitTick returns the drained queue and moves Active to Idle.
func (s *Scheduler) CommitTick() (ir.PatchBatch, error) {
	if !s.active {
		return nil, newSchedulerError(ErrCodeTickNotStarted, "CommitTick")
	}
	s.active = false
	return s.queue.Commit(), nil
}

// AbortTick discards the active tick's ops and moves Active to Idle. The
// returned ops are for diagnostics only and must not be applied.
func (s *Scheduler) AbortTick() (ir.PatchBatch, error) {
	if !s.active {
		return nil, newSchedulerError(ErrCodeTickNotStarted, "AbortTick")
	}
	s.active = false
	return s.queue.Commit(), nil
}

// Active reports whether a tick is open.
func (s *Scheduler) Active() bool { return s.active }

// Pending returns a copy of the ops queued on the open tick.
func (s *Scheduler) Pending() []ir.PatchOp { return s.queue.Pending() }
