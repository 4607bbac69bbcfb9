package telemetry

import (
	"time"

	"github.com/roach88/crust/internal/ir"
)

// Recorder is the telemetry surface used by the engine, selectors and hosts.
//
// Every Record* call is a no-op while no tick is in flight.
type Recorder interface {
	BeginTick()
	RecordStyleDuration(d time.Duration)
	RecordLayoutDuration(d time.Duration)
	RecordRenderDuration(d time.Duration)
	RecordSelectorEvaluation(d time.Duration, elementsInvalidated int)
	RecordNodeTouches(n int)
	RecordPatch(batch ir.PatchBatch)
	RecordGuardrail(event GuardrailEvent)
	FinalizeTick(result TickResult)

	Snapshot() []TickTelemetry
	LastTick() (TickTelemetry, bool)
	CurrentTickID() (uint64, bool)
}

// Clock is the wall-clock source used to time ticks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Option configures a Recording.
type Option func(*Recording)

// WithClock sets the wall-clock source. Tests pass a fake clock.
func WithClock(c Clock) Option {
	return func(r *Recording) {
		r.clock = c
	}
}

// WithStartTickID makes the first tick id equal to id. Used to continue
// numbering after ticks already persisted elsewhere. Zero is treated as 1.
func WithStartTickID(id uint64) Option {
	return func(r *Recording) {
		if id == 0 {
			id = 1
		}
		r.seq = NewSequenceAt(id - 1)
	}
}

// WithObserver registers a callback invoked with each finalized record,
// after it has been appended to the log.
func WithObserver(fn func(TickTelemetry)) Option {
	return func(r *Recording) {
		r.observers = append(r.observers, fn)
	}
}

// Recording is the fully-recording Recorder.
type Recording struct {
	clock     Clock
	seq       *Sequence
	ticks     []TickTelemetry
	current   *activeTick
	observers []func(TickTelemetry)
}

type activeTick struct {
	tickID      uint64
	start       time.Time
	durations   PhaseDurations
	work        WorkBreakdown
	fingerprint *uint64
	guardrail   *GuardrailEvent
}

var _ Recorder = (*Recording)(nil)

// NewRecording creates a Recording whose first tick id is 1.
func NewRecording(opts ...Option) *Recording {
	r := &Recording{
		clock: SystemClock(),
		seq:   NewSequence(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BeginTick allocates the next tick id and starts timing. Any tick still in
// flight is discarded without being logged.
func (r *Recording) BeginTick() {
	r.current = &activeTick{
		tickID: uint64(r.seq.Next()),
		start:  r.clock.Now(),
	}
}

func (r *Recording) RecordStyleDuration(d time.Duration) {
	if r.current != nil {
		r.current.durations.StyleMS += millis(d)
	}
}

func (r *Recording) RecordLayoutDuration(d time.Duration) {
	if r.current != nil {
		r.current.durations.LayoutMS += millis(d)
	}
}

func (r *Recording) RecordRenderDuration(d time.Duration) {
	if r.current != nil {
		r.current.durations.RenderMS += millis(d)
	}
}

// RecordSelectorEvaluation books d as style time and counts one selector
// evaluation that invalidated (and touched) elementsInvalidated elements.
func (r *Recording) RecordSelectorEvaluation(d time.Duration, elementsInvalidated int) {
	if r.current == nil {
		return
	}
	r.current.durations.StyleMS += millis(d)
	r.current.work.SelectorsEvaluated++
	r.current.work.ElementsInvalidated += elementsInvalidated
	r.current.work.NodesTouched += elementsInvalidated
}

func (r *Recording) RecordNodeTouches(n int) {
	if r.current != nil {
		r.current.work.NodesTouched += n
	}
}

// RecordPatch sets the mutation count, payload estimate and fingerprint of
// the in-flight tick from batch. A later call replaces earlier values.
func (r *Recording) RecordPatch(batch ir.PatchBatch) {
	if r.current == nil {
		return
	}
	r.current.work.DOMMutations = len(batch)
	r.current.work.PatchBytes = EstimatePatchBytes(batch)
	fp := ir.MustBatchFingerprint(batch)
	r.current.fingerprint = &fp
}

// RecordGuardrail stores event on the in-flight tick. The last call wins.
func (r *Recording) RecordGuardrail(event GuardrailEvent) {
	if r.current != nil {
		r.current.guardrail = &event
	}
}

// FinalizeTick closes the in-flight tick with result and appends its record.
func (r *Recording) FinalizeTick(result TickResult) {
	active := r.current
	if active == nil {
		return
	}
	r.current = nil

	d := active.durations
	d.TotalMS = millis(r.clock.Now().Sub(active.start))
	d.ScriptMS = max(0, d.TotalMS-(d.StyleMS+d.LayoutMS+d.RenderMS))

	record := TickTelemetry{
		TickID:      active.tickID,
		Result:      result,
		Durations:   d,
		Work:        active.work,
		Fingerprint: active.fingerprint,
		Guardrail:   active.guardrail,
	}
	r.ticks = append(r.ticks, record)

	for _, fn := range r.observers {
		fn(record.clone())
	}
}

// Snapshot returns a copy of every finalized record in tick order.
func (r *Recording) Snapshot() []TickTelemetry {
	out := make([]TickTelemetry, len(r.ticks))
	for i, t := range r.ticks {
		out[i] = t.clone()
	}
	return out
}

// LastTick returns the most recent finalized record.
func (r *Recording) LastTick() (TickTelemetry, bool) {
	if len(r.ticks) == 0 {
		return TickTelemetry{}, false
	}
	return r.ticks[len(r.ticks)-1].clone(), true
}

// CurrentTickID returns the id of the in-flight tick.
func (r *Recording) CurrentTickID() (uint64, bool) {
	if r.current == nil {
		return 0, false
	}
	return r.current.tickID, true
}

func millis(d time.Duration) float64 {
	return d.Seconds() * 1000
}
