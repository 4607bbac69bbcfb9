package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/crust/internal/graph"
	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/selector"
	"github.com/roach88/crust/internal/store"
	"github.com/roach88/crust/internal/telemetry"
)

// Engine ties the store, dependency graph, scheduler and telemetry
// recorder together behind the tick lifecycle.
//
// Not safe for concurrent use. See Locked.
type Engine struct {
	store     *store.Store
	graph     *graph.Graph
	scheduler *Scheduler
	recorder  telemetry.Recorder
	logger    *slog.Logger
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithRecorder replaces the default recorder from telemetry.New.
func WithRecorder(rec telemetry.Recorder) EngineOption {
	return func(e *Engine) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

// WithLogger sets the logger for tick lifecycle events. Defaults to a
// logger that discards everything.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an idle Engine with an empty store and graph.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store.New(),
		graph:     graph.New(),
		scheduler: NewScheduler(),
		recorder:  telemetry.New(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BeginTick opens a tick and starts its telemetry record.
func (e *Engine) BeginTick() error {
	if err := e.scheduler.BeginTick(); err != nil {
		return err
	}
	e.recorder.BeginTick()
	if id, ok := e.recorder.CurrentTickID(); ok {
		e.logger.Debug("tick started", "tick_id", id)
	}
	return nil
}

// SetValue writes text to node and queues a SetText op for it.
//
// The store write happens whether or not a tick is open; only the op is
// refused with ErrTickNotStarted. No de-duplication is performed: setting
// the same value twice queues two ops.
func (e *Engine) SetValue(node ir.NodeID, text string) error {
	e.store.SetValue(node, text)
	if err := e.scheduler.EnqueueOp(ir.SetText{Node: node, Text: text}); err != nil {
		return fmt.Errorf("set value %s: %w", node, err)
	}
	return nil
}

// Emit queues an arbitrary patch op without touching the store.
func (e *Engine) Emit(op ir.PatchOp) error {
	if err := e.scheduler.EnqueueOp(op); err != nil {
		return fmt.Errorf("emit %s: %w", op.Kind(), err)
	}
	return nil
}

// Commit closes the tick and returns its ops in emission order. The batch
// is recorded to telemetry and the tick is finalized as a commit.
func (e *Engine) Commit() (ir.PatchBatch, error) {
	batch, err := e.scheduler.CommitTick()
	if err != nil {
		return nil, err
	}
	id, _ := e.recorder.CurrentTickID()
	e.recorder.RecordPatch(batch)
	e.recorder.FinalizeTick(telemetry.ResultCommit)

	e.logger.Debug("tick committed", "tick_id", id, "ops", len(batch))
	return batch, nil
}

// AbortTick closes the tick without producing a batch. The pending ops are
// discarded and counted as touched nodes, event is recorded as the tick's
// guardrail, and the tick is finalized with event.Kind.
//
// Store writes made during the tick are kept; the store has no history to
// roll back to. A commit-kind event is refused with ErrInvalidAbortKind and
// the tick stays open.
func (e *Engine) AbortTick(event telemetry.GuardrailEvent) error {
	if event.Kind == telemetry.ResultCommit {
		return newSchedulerError(ErrCodeInvalidAbortKind, "AbortTick")
	}
	discarded, err := e.scheduler.AbortTick()
	if err != nil {
		return err
	}
	id, _ := e.recorder.CurrentTickID()
	e.recorder.RecordNodeTouches(len(discarded))
	e.recorder.RecordGuardrail(event)
	e.recorder.FinalizeTick(event.Kind)

	e.logger.Warn("tick aborted",
		"tick_id", id,
		"result", string(event.Kind),
		"reason", event.Reason,
		"phase", event.Phase,
		"discarded", len(discarded))
	return nil
}

// Evaluate runs sel against the engine's store and graph, reporting the
// evaluation to the recorder when a tick is open.
func (e *Engine) Evaluate(sel selector.Selector) string {
	return selector.EvaluateWithRecorder(sel, e.store, e.graph, e.recorder)
}

// Active reports whether a tick is open.
func (e *Engine) Active() bool { return e.scheduler.Active() }

// Pending returns a copy of the ops queued on the open tick.
func (e *Engine) Pending() []ir.PatchOp { return e.scheduler.Pending() }

// Telemetry returns the recorder, for reading records and for host
// instrumentation of layout and render phases.
func (e *Engine) Telemetry() telemetry.Recorder { return e.recorder }

// Store returns the value store. Callers should treat it as read-only.
func (e *Engine) Store() *store.Store { return e.store }

// Graph returns the dependency graph.
func (e *Engine) Graph() *graph.Graph { return e.graph }
