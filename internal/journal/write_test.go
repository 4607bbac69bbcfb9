package journal

import (
	"context"
	"reflect"
	"testing"

	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/telemetry"
	"github.com/roach88/crust/internal/testutil"
)

func commitTick(id uint64, batch ir.PatchBatch) telemetry.TickTelemetry {
	fp := ir.MustBatchFingerprint(batch)
	return telemetry.TickTelemetry{
		TickID: id,
		Result: telemetry.ResultCommit,
		Durations: telemetry.PhaseDurations{
			ScriptMS: 1.5, StyleMS: 0.25, LayoutMS: 0, RenderMS: 0.75, TotalMS: 2.5,
		},
		Work: telemetry.WorkBreakdown{
			DOMMutations: len(batch),
			PatchBytes:   telemetry.EstimatePatchBytes(batch),
		},
		Fingerprint: &fp,
	}
}

func TestWriteTick_RoundTrip(t *testing.T) {
	j := openTestJournal(t, WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-a")))
	ctx := context.Background()

	runID, err := j.BeginRun(ctx, "hello-world")
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	batch := ir.PatchBatch{
		ir.SetText{Node: 1, Text: "hello"},
		ir.SetAttr{Node: 1, Name: "class", Value: "greeting"},
		ir.Insert{Parent: 0, Child: 1},
	}
	tick := commitTick(1, batch)
	docFP := uint64(0xfeedfacecafebeef)
	if err := j.WriteTick(ctx, runID, tick, batch, &docFP); err != nil {
		t.Fatalf("WriteTick() failed: %v", err)
	}

	records, err := j.ReadRun(ctx, runID)
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	got := records[0]
	if got.RunID != "run-a" {
		t.Errorf("RunID = %q, want run-a", got.RunID)
	}
	if !reflect.DeepEqual(got.Telemetry, tick) {
		t.Errorf("telemetry = %+v, want %+v", got.Telemetry, tick)
	}
	if !reflect.DeepEqual(got.Batch, batch) {
		t.Errorf("batch = %v, want %v", got.Batch, batch)
	}
	if got.DocumentFingerprint == nil || *got.DocumentFingerprint != docFP {
		t.Errorf("doc fingerprint = %v, want %x", got.DocumentFingerprint, docFP)
	}
}

func TestWriteTick_AbortedTick(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	runID, err := j.BeginRun(ctx, "rollback")
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}

	g := telemetry.NewGuardrailEvent(telemetry.ResultRollback, "forbidden op Remove", "script")
	tick := telemetry.TickTelemetry{
		TickID:    7,
		Result:    telemetry.ResultRollback,
		Work:      telemetry.WorkBreakdown{NodesTouched: 2},
		Guardrail: &g,
	}
	if err := j.WriteTick(ctx, runID, tick, nil, nil); err != nil {
		t.Fatalf("WriteTick() failed: %v", err)
	}

	records, err := j.ReadRun(ctx, runID)
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	got := records[0]
	if got.Telemetry.Fingerprint != nil {
		t.Error("aborted tick should have no batch fingerprint")
	}
	if got.DocumentFingerprint != nil {
		t.Error("aborted tick should have no document fingerprint")
	}
	if len(got.Batch) != 0 {
		t.Errorf("batch = %v, want empty", got.Batch)
	}
	if got.Telemetry.Guardrail == nil || *got.Telemetry.Guardrail != g {
		t.Errorf("guardrail = %+v, want %+v", got.Telemetry.Guardrail, g)
	}
}

func TestWriteTick_GuardrailWithoutPhase(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	runID, _ := j.BeginRun(ctx, "fallback")

	g := telemetry.NewGuardrailEvent(telemetry.ResultFallback, "timeout", "")
	tick := telemetry.TickTelemetry{TickID: 1, Result: telemetry.ResultFallback, Guardrail: &g}
	if err := j.WriteTick(ctx, runID, tick, nil, nil); err != nil {
		t.Fatalf("WriteTick() failed: %v", err)
	}

	records, _ := j.ReadRun(ctx, runID)
	if got := records[0].Telemetry.Guardrail; got == nil || got.Phase != "" || got.Reason != "timeout" {
		t.Errorf("guardrail = %+v", got)
	}
}

func TestWriteTick_Idempotent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	runID, _ := j.BeginRun(ctx, "dup")

	batch := ir.PatchBatch{ir.Remove{Node: 1}}
	first := commitTick(1, batch)
	if err := j.WriteTick(ctx, runID, first, batch, nil); err != nil {
		t.Fatalf("first WriteTick() failed: %v", err)
	}
	second := first
	second.Result = telemetry.ResultFallback
	if err := j.WriteTick(ctx, runID, second, batch, nil); err != nil {
		t.Fatalf("second WriteTick() failed: %v", err)
	}

	records, _ := j.ReadRun(ctx, runID)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Telemetry.Result != telemetry.ResultCommit {
		t.Errorf("result = %s, want the first write to win", records[0].Telemetry.Result)
	}
}

func TestWriteTick_UnknownRun(t *testing.T) {
	j := openTestJournal(t)

	err := j.WriteTick(context.Background(), "no-such-run", commitTick(1, nil), nil, nil)
	if err == nil {
		t.Fatal("WriteTick() for an unknown run should violate the foreign key")
	}
}

func TestBeginRun_DuplicateID(t *testing.T) {
	j := openTestJournal(t, WithRunIDGenerator(testutil.NewFixedRunIDGenerator("same")))
	ctx := context.Background()

	if _, err := j.BeginRun(ctx, "a"); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	if _, err := j.BeginRun(ctx, "b"); err == nil {
		t.Fatal("second BeginRun() with the same id should fail")
	}
}

func TestWriteRun_RecordsAllTicks(t *testing.T) {
	j := openTestJournal(t, WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-w")))
	ctx := context.Background()

	batch := ir.PatchBatch{ir.SetText{Node: 1, Text: "caf\u00e9"}}
	docFP := uint64(42)
	runID, err := j.WriteRun(ctx, "two-ticks", []TickEntry{
		{Telemetry: commitTick(1, batch), Batch: batch, DocumentFingerprint: &docFP},
		{Telemetry: commitTick(2, nil)},
	})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if runID != "run-w" {
		t.Errorf("runID = %q, want run-w", runID)
	}

	runs, err := j.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Ticks != 2 || runs[0].Scenario != "two-ticks" {
		t.Fatalf("ListRuns() = %+v, want one run with 2 ticks", runs)
	}

	records, err := j.ReadRun(ctx, runID)
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !reflect.DeepEqual(records[0].Batch, batch) {
		t.Errorf("Batch = %v, want %v", records[0].Batch, batch)
	}
}

func TestWriteRun_FailedTickLeavesNoRun(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	bad := commitTick(2, nil)
	bad.Result = telemetry.TickResult("bogus")
	_, err := j.WriteRun(ctx, "partial", []TickEntry{
		{Telemetry: commitTick(1, nil)},
		{Telemetry: bad},
	})
	if err == nil {
		t.Fatal("WriteRun() with an invalid tick result should fail")
	}

	runs, err := j.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("ListRuns() = %+v, want no runs after a failed write", runs)
	}
	last, err := j.LastTickID(ctx)
	if err != nil {
		t.Fatalf("LastTickID() failed: %v", err)
	}
	if last != 0 {
		t.Errorf("LastTickID() = %d, want 0", last)
	}
}
