package harness

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/crust/internal/dom"
	"github.com/roach88/crust/internal/engine"
	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/selector"
	"github.com/roach88/crust/internal/telemetry"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger       *slog.Logger
	recorderOpts []telemetry.Option
}

// WithLogger sets the logger used by the harness and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorderOptions passes options to the run's telemetry.Recording,
// for example a fake clock, a start tick id, or a metrics observer.
func WithRecorderOptions(opts ...telemetry.Option) Option {
	return func(c *runConfig) {
		c.recorderOpts = append(c.recorderOpts, opts...)
	}
}

// Harness holds the per-run state of one scenario.
type Harness struct {
	scenario  *Scenario
	engine    *engine.Engine
	recorder  *telemetry.Recording
	document  *dom.Document
	selectors map[ir.NodeID]selector.Selector
	forbidden map[ir.OpKind]bool
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh engine, recorder and document. The recorder always
// records, regardless of the crust_notelemetry build tag, because
// assertions and traces read it.
//
// A non-nil error means the scenario could not be run at all. Tick apply
// failures and failed assertions are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	cfg := runConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	rec := telemetry.NewRecording(cfg.recorderOpts...)
	h := &Harness{
		scenario:  scenario,
		engine:    engine.New(engine.WithRecorder(rec), engine.WithLogger(cfg.logger)),
		recorder:  rec,
		document:  dom.New(),
		selectors: buildSelectors(scenario.Selectors),
		forbidden: make(map[ir.OpKind]bool),
		logger:    cfg.logger,
	}
	for _, k := range scenario.Forbidden {
		kind, _ := ir.ParseOpKind(k)
		h.forbidden[kind] = true
	}

	result := NewResult()
	for i, tick := range scenario.Ticks {
		trace, err := h.runTick(i+1, tick)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", i+1, err)
		}
		result.Ticks = append(result.Ticks, trace.TickTrace)
		if trace.applyErr != nil {
			result.AddError(fmt.Sprintf("tick %d: %v", i+1, trace.applyErr))
		}
	}

	result.Telemetry = rec.Snapshot()
	result.Document = h.document

	for _, msg := range EvaluateAssertions(scenario.Assertions, h.assertionContext(result)) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"ticks", len(result.Ticks),
		"pass", result.Pass,
	)
	return result, nil
}

func buildSelectors(defs []SelectorDef) map[ir.NodeID]selector.Selector {
	out := make(map[ir.NodeID]selector.Selector, len(defs))
	for _, def := range defs {
		reads := slices.Clone(def.Reads)
		sep := def.Separator
		if sep == "" {
			sep = " "
		}
		out[def.ID] = selector.New(def.ID, func(ctx *selector.Context) string {
			parts := make([]string, 0, len(reads))
			for _, n := range reads {
				if v, ok := ctx.Read(n); ok {
					parts = append(parts, v)
				}
			}
			return strings.Join(parts, sep)
		})
	}
	return out
}

type tickOutcome struct {
	TickTrace
	applyErr error
}

// runTick drives one tick. Engine state errors are returned; they indicate
// a harness bug since the harness always pairs BeginTick with an end.
func (h *Harness) runTick(index int, tick Tick) (tickOutcome, error) {
	out := tickOutcome{TickTrace: TickTrace{Index: index, Evaluations: []Evaluation{}}}

	if err := h.engine.BeginTick(); err != nil {
		return out, err
	}
	out.TickID, _ = h.recorder.CurrentTickID()

	for j, step := range tick.Steps {
		if err := h.runStep(step, &out.TickTrace); err != nil {
			return out, fmt.Errorf("step %d: %w", j, err)
		}
	}

	pending := ir.PatchBatch(h.engine.Pending())
	out.Ops = pending.Kinds()

	if kind, ok := h.firstForbidden(pending); ok {
		event := telemetry.NewGuardrailEvent(telemetry.ResultRollback, "forbidden op "+string(kind), "script")
		return out, h.abort(&out, event)
	}

	switch tick.End {
	case EndRollback, EndFallback:
		reason := tick.Reason
		if reason == "" {
			reason = "requested by scenario"
		}
		kind, _ := telemetry.ParseTickResult(tick.End)
		return out, h.abort(&out, telemetry.NewGuardrailEvent(kind, reason, ""))
	}

	// The host applies the batch during the render phase of the tick, so
	// apply time lands in the tick's render bucket before Commit finalizes.
	start := time.Now()
	out.applyErr = h.document.Apply(pending)
	h.recorder.RecordRenderDuration(time.Since(start))

	batch, err := h.engine.Commit()
	if err != nil {
		return out, err
	}
	out.Result = telemetry.ResultCommit
	out.Batch = batch
	fp := ir.MustBatchFingerprint(batch)
	out.BatchFingerprint = &fp

	docFP, err := h.document.Fingerprint()
	if err != nil {
		return out, err
	}
	out.DocumentFingerprint = &docFP

	h.logger.Debug("tick applied",
		"tick_id", out.TickID,
		"ops", len(batch),
		"document_fingerprint", ir.FormatFingerprint(docFP),
	)
	return out, nil
}

func (h *Harness) abort(out *tickOutcome, event telemetry.GuardrailEvent) error {
	if err := h.engine.AbortTick(event); err != nil {
		return err
	}
	out.Result = event.Kind
	out.Guardrail = &event
	return nil
}

func (h *Harness) runStep(step Step, trace *TickTrace) error {
	switch {
	case step.Set != nil:
		return h.engine.SetValue(step.Set.Node, step.Set.Text)
	case step.Attr != nil:
		return h.engine.Emit(ir.SetAttr{Node: step.Attr.Node, Name: step.Attr.Name, Value: step.Attr.Value})
	case step.Insert != nil:
		return h.engine.Emit(ir.Insert{Parent: step.Insert.Parent, Child: step.Insert.Child})
	case step.Remove != nil:
		return h.engine.Emit(ir.Remove{Node: step.Remove.Node})
	case step.Evaluate != nil:
		return h.evaluate(step.Evaluate, trace)
	case step.Phase != nil:
		d := time.Duration(step.Phase.MS * float64(time.Millisecond))
		switch step.Phase.Name {
		case "style":
			h.recorder.RecordStyleDuration(d)
		case "layout":
			h.recorder.RecordLayoutDuration(d)
		case "render":
			h.recorder.RecordRenderDuration(d)
		}
		return nil
	default:
		return fmt.Errorf("empty step")
	}
}

func (h *Harness) evaluate(step *EvaluateStep, trace *TickTrace) error {
	sel, ok := h.selectors[step.Selector]
	if !ok {
		return fmt.Errorf("unknown selector %s", step.Selector)
	}

	// Reads are counted with a wrapper so the trace does not depend on
	// the recorder being enabled.
	var reads int
	output := h.engine.Evaluate(selector.New(sel.ID(), func(ctx *selector.Context) string {
		out := sel.Compute(ctx)
		reads = ctx.Reads()
		return out
	}))
	trace.Evaluations = append(trace.Evaluations, Evaluation{
		Selector: step.Selector,
		Output:   output,
		Reads:    reads,
	})

	if step.Target != nil {
		return h.engine.SetValue(*step.Target, output)
	}
	return nil
}

func (h *Harness) firstForbidden(batch ir.PatchBatch) (ir.OpKind, bool) {
	for _, op := range batch {
		if h.forbidden[op.Kind()] {
			return op.Kind(), true
		}
	}
	return "", false
}

func (h *Harness) assertionContext(result *Result) *AssertionContext {
	return &AssertionContext{
		Document:  h.document,
		Graph:     h.engine.Graph(),
		Ticks:     result.Ticks,
		Telemetry: result.Telemetry,
	}
}
