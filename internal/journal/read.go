package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/telemetry"
)

// Run summarizes one journaled run.
type Run struct {
	Seq      int64
	ID       string
	Scenario string
	Ticks    int
}

// TickRecord is one journaled tick.
type TickRecord struct {
	RunID     string
	Telemetry telemetry.TickTelemetry
	Batch     ir.PatchBatch

	// DocumentFingerprint is nil when the host did not apply the batch.
	DocumentFingerprint *uint64
}

// ListRuns returns every run in insertion order.
func (j *Journal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.seq, r.id, r.scenario, COUNT(t.tick_id)
		FROM runs r
		LEFT JOIN ticks t ON t.run_id = r.id
		GROUP BY r.seq, r.id, r.scenario
		ORDER BY r.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Seq, &r.ID, &r.Scenario, &r.Ticks); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the ticks of runID ordered by tick id.
func (j *Journal) ReadRun(ctx context.Context, runID string) ([]TickRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT tick_id, result,
		       script_ms, style_ms, layout_ms, render_ms, total_ms,
		       dom_mutations, nodes_touched, selectors_evaluated, elements_invalidated, patch_bytes,
		       fingerprint, guardrail_kind, guardrail_reason, guardrail_phase,
		       batch, doc_fingerprint
		FROM ticks
		WHERE run_id = ?
		ORDER BY tick_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []TickRecord
	for rows.Next() {
		rec, err := scanTick(rows)
		if err != nil {
			return nil, fmt.Errorf("read run %s: %w", runID, err)
		}
		rec.RunID = runID
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	return records, nil
}

func scanTick(rows *sql.Rows) (TickRecord, error) {
	var (
		rec                    TickRecord
		tickID                 int64
		result                 string
		fp, docFP              sql.NullString
		gKind, gReason, gPhase sql.NullString
		batchJSON              string
	)
	t := &rec.Telemetry
	err := rows.Scan(&tickID, &result,
		&t.Durations.ScriptMS, &t.Durations.StyleMS, &t.Durations.LayoutMS, &t.Durations.RenderMS, &t.Durations.TotalMS,
		&t.Work.DOMMutations, &t.Work.NodesTouched, &t.Work.SelectorsEvaluated, &t.Work.ElementsInvalidated, &t.Work.PatchBytes,
		&fp, &gKind, &gReason, &gPhase,
		&batchJSON, &docFP,
	)
	if err != nil {
		return rec, err
	}

	t.TickID = uint64(tickID)
	if t.Result, err = telemetry.ParseTickResult(result); err != nil {
		return rec, err
	}
	if t.Fingerprint, err = parseNullFingerprint(fp); err != nil {
		return rec, err
	}
	if rec.DocumentFingerprint, err = parseNullFingerprint(docFP); err != nil {
		return rec, err
	}
	if gKind.Valid {
		kind, err := telemetry.ParseTickResult(gKind.String)
		if err != nil {
			return rec, err
		}
		g := telemetry.NewGuardrailEvent(kind, gReason.String, gPhase.String)
		t.Guardrail = &g
	}
	if rec.Batch, err = ir.UnmarshalBatch([]byte(batchJSON)); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseNullFingerprint(s sql.NullString) (*uint64, error) {
	if !s.Valid {
		return nil, nil
	}
	fp, err := ir.ParseFingerprint(s.String)
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

// LastTickID returns the highest tick id journaled by any run, or 0 when
// the journal is empty. Hosts pass LastTickID()+1 to
// telemetry.WithStartTickID to continue numbering.
func (j *Journal) LastTickID(ctx context.Context) (uint64, error) {
	var last sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(tick_id) FROM ticks`).Scan(&last); err != nil {
		return 0, fmt.Errorf("last tick id: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}
