package telemetry

import "fmt"

// TickResult is the outcome of a tick.
type TickResult string

const (
	ResultCommit   TickResult = "commit"
	ResultRollback TickResult = "rollback"
	ResultFallback TickResult = "fallback"
)

// ParseTickResult converts a stored or user-supplied result name.
func ParseTickResult(s string) (TickResult, error) {
	switch r := TickResult(s); r {
	case ResultCommit, ResultRollback, ResultFallback:
		return r, nil
	default:
		return "", fmt.Errorf("unknown tick result %q", s)
	}
}

// PhaseDurations is the per-phase time breakdown of a tick, in milliseconds.
type PhaseDurations struct {
	ScriptMS float64 `json:"script_ms"`
	StyleMS  float64 `json:"style_ms"`
	LayoutMS float64 `json:"layout_ms"`
	RenderMS float64 `json:"render_ms"`
	TotalMS  float64 `json:"total_ms"`
}

// WorkBreakdown counts the work a tick performed.
type WorkBreakdown struct {
	DOMMutations        int `json:"dom_mutations"`
	NodesTouched        int `json:"nodes_touched"`
	SelectorsEvaluated  int `json:"selectors_evaluated"`
	ElementsInvalidated int `json:"elements_invalidated"`
	PatchBytes          int `json:"patch_bytes"`
}

// GuardrailEvent records a deviation from a normal commit.
type GuardrailEvent struct {
	Kind   TickResult `json:"kind"`
	Reason string     `json:"reason"`
	Phase  string     `json:"phase,omitempty"` // empty when unknown
}

// NewGuardrailEvent builds an event. phase may be empty.
func NewGuardrailEvent(kind TickResult, reason, phase string) GuardrailEvent {
	return GuardrailEvent{Kind: kind, Reason: reason, Phase: phase}
}

// TickTelemetry is the immutable record of one finalized tick.
type TickTelemetry struct {
	TickID      uint64          `json:"tick_id"`
	Result      TickResult      `json:"result"`
	Durations   PhaseDurations  `json:"durations"`
	Work        WorkBreakdown   `json:"work"`
	Fingerprint *uint64         `json:"fingerprint,omitempty"`
	Guardrail   *GuardrailEvent `json:"guardrail,omitempty"`
}

// clone copies the optional fields so callers cannot reach the log's storage.
func (t TickTelemetry) clone() TickTelemetry {
	if t.Fingerprint != nil {
		fp := *t.Fingerprint
		t.Fingerprint = &fp
	}
	if t.Guardrail != nil {
		g := *t.Guardrail
		t.Guardrail = &g
	}
	return t
}
