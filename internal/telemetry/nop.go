package telemetry

import (
	"time"

	"github.com/roach88/crust/internal/ir"
)

// Nop is the Recorder that records nothing.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) BeginTick()                                  {}
func (Nop) RecordStyleDuration(time.Duration)           {}
func (Nop) RecordLayoutDuration(time.Duration)          {}
func (Nop) RecordRenderDuration(time.Duration)          {}
func (Nop) RecordSelectorEvaluation(time.Duration, int) {}
func (Nop) RecordNodeTouches(int)                       {}
func (Nop) RecordPatch(ir.PatchBatch)                   {}
func (Nop) RecordGuardrail(GuardrailEvent)              {}
func (Nop) FinalizeTick(TickResult)                     {}
func (Nop) Snapshot() []TickTelemetry                   { return nil }
func (Nop) LastTick() (TickTelemetry, bool)             { return TickTelemetry{}, false }
func (Nop) CurrentTickID() (uint64, bool)               { return 0, false }
