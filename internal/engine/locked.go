package engine

import (
	"sync"

	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/selector"
	"github.com/roach88/crust/internal/telemetry"
)

// Locked serializes access to an Engine for hosts that drive it from more
// than one goroutine. Each method holds the lock for the whole call.
type Locked struct {
	mu     sync.Mutex
	engine *Engine
}

// NewLocked wraps e.
func NewLocked(e *Engine) *Locked {
	return &Locked{engine: e}
}

func (l *Locked) BeginTick() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.BeginTick()
}

func (l *Locked) SetValue(node ir.NodeID, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.SetValue(node, text)
}

func (l *Locked) Emit(op ir.PatchOp) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Emit(op)
}

func (l *Locked) Commit() (ir.PatchBatch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Commit()
}

func (l *Locked) AbortTick(event telemetry.GuardrailEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.AbortTick(event)
}

func (l *Locked) Evaluate(sel selector.Selector) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.Evaluate(sel)
}

// Value reads node from the store under the lock.
func (l *Locked) Value(node ir.NodeID) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.store.Value(node)
}

// Snapshot returns the recorder's finalized ticks under the lock.
func (l *Locked) Snapshot() []telemetry.TickTelemetry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine.recorder.Snapshot()
}

// Do runs fn with exclusive access to the engine. fn must not retain e.
func (l *Locked) Do(fn func(e *Engine)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.engine)
}
