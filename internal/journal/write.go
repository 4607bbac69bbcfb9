package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/telemetry"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TickEntry is one finalized tick as WriteRun records it.
type TickEntry struct {
	Telemetry           telemetry.TickTelemetry
	Batch               ir.PatchBatch
	DocumentFingerprint *uint64
}

// BeginRun inserts a run row for scenario and returns its new id.
func (j *Journal) BeginRun(ctx context.Context, scenario string) (string, error) {
	id := j.runID.Generate()
	if err := insertRun(ctx, j.db, id, scenario); err != nil {
		return "", err
	}
	return id, nil
}

// WriteRun records a complete run in one transaction and returns its id.
// If any tick fails to write, nothing is recorded.
func (j *Journal) WriteRun(ctx context.Context, scenario string, ticks []TickEntry) (string, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id := j.runID.Generate()
	if err := insertRun(ctx, tx, id, scenario); err != nil {
		return "", err
	}
	for _, t := range ticks {
		if err := insertTick(ctx, tx, id, t.Telemetry, t.Batch, t.DocumentFingerprint); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: commit: %w", err)
	}
	return id, nil
}

func insertRun(ctx context.Context, db execer, id, scenario string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario) VALUES (?, ?)
	`, id, scenario)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteTick records one finalized tick of runID.
//
// batch is the committed batch (nil for aborted ticks) and docFingerprint
// the document fingerprint after it was applied, when the host applied it.
// Uses ON CONFLICT DO NOTHING for idempotency: a second write of the same
// (run_id, tick_id) is silently ignored.
//
// Note: the run referenced by runID must exist (foreign key constraint).
func (j *Journal) WriteTick(ctx context.Context, runID string, tick telemetry.TickTelemetry, batch ir.PatchBatch, docFingerprint *uint64) error {
	return insertTick(ctx, j.db, runID, tick, batch, docFingerprint)
}

func insertTick(ctx context.Context, db execer, runID string, tick telemetry.TickTelemetry, batch ir.PatchBatch, docFingerprint *uint64) error {
	batchJSON, err := ir.MarshalBatch(batch)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", tick.TickID, err)
	}

	var gKind, gReason, gPhase sql.NullString
	if g := tick.Guardrail; g != nil {
		gKind = sql.NullString{String: string(g.Kind), Valid: true}
		gReason = sql.NullString{String: g.Reason, Valid: true}
		gPhase = sql.NullString{String: g.Phase, Valid: g.Phase != ""}
	}

	d, w := tick.Durations, tick.Work
	_, err = db.ExecContext(ctx, `
		INSERT INTO ticks
		(run_id, tick_id, result,
		 script_ms, style_ms, layout_ms, render_ms, total_ms,
		 dom_mutations, nodes_touched, selectors_evaluated, elements_invalidated, patch_bytes,
		 fingerprint, guardrail_kind, guardrail_reason, guardrail_phase,
		 batch, doc_fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, tick_id) DO NOTHING
	`,
		runID, int64(tick.TickID), string(tick.Result),
		d.ScriptMS, d.StyleMS, d.LayoutMS, d.RenderMS, d.TotalMS,
		w.DOMMutations, w.NodesTouched, w.SelectorsEvaluated, w.ElementsInvalidated, w.PatchBytes,
		nullFingerprint(tick.Fingerprint), gKind, gReason, gPhase,
		string(batchJSON), nullFingerprint(docFingerprint),
	)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", tick.TickID, err)
	}
	return nil
}

func nullFingerprint(fp *uint64) sql.NullString {
	if fp == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: ir.FormatFingerprint(*fp), Valid: true}
}
