package harness

import (
	"github.com/roach88/crust/internal/dom"
	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/telemetry"
)

// Evaluation records one evaluate step.
type Evaluation struct {
	Selector ir.NodeID `json:"selector"`
	Output   string    `json:"output"`
	Reads    int       `json:"reads"`
}

// TickTrace is the deterministic outcome of one scenario tick.
type TickTrace struct {
	// Index is the 1-based position of the tick in the scenario.
	Index  int                  `json:"index"`
	TickID uint64               `json:"tick_id"`
	Result telemetry.TickResult `json:"result"`

	// Ops lists the kinds of the committed batch, or of the discarded ops
	// for an aborted tick.
	Ops []ir.OpKind `json:"ops"`

	// Batch is the committed batch; nil for aborted ticks.
	Batch ir.PatchBatch `json:"-"`

	BatchFingerprint    *uint64                   `json:"batch_fingerprint,omitempty"`
	DocumentFingerprint *uint64                   `json:"document_fingerprint,omitempty"`
	Guardrail           *telemetry.GuardrailEvent `json:"guardrail,omitempty"`
	Evaluations         []Evaluation              `json:"evaluations"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when no tick failed to apply and every assertion held.
	Pass bool `json:"pass"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Ticks []TickTrace `json:"ticks"`

	// Telemetry is the recorder snapshot after the last tick.
	Telemetry []telemetry.TickTelemetry `json:"telemetry"`

	// Document is the final document state.
	Document *dom.Document `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Ticks:  []TickTrace{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
