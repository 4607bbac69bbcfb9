package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/telemetry"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // defaults to the most recent run
}

// TraceTick is one journaled tick as printed by trace.
type TraceTick struct {
	telemetry.TickTelemetry
	Ops                 []ir.OpKind `json:"ops"`
	Fingerprint         string      `json:"fingerprint,omitempty"`
	DocumentFingerprint string      `json:"document_fingerprint,omitempty"`
}

// TraceResult is the output of the trace command.
type TraceResult struct {
	RunID    string      `json:"run_id"`
	Scenario string      `json:"scenario"`
	Ticks    []TraceTick `json:"ticks"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print per-tick telemetry of a journaled run",
		Long: `Print the per-tick telemetry of one journaled run in tick order:
phase durations in milliseconds, work counters, fingerprints and guardrail
events. Without --run the most recent run is shown.

Examples:
  crust trace --db ./crust.db
  crust trace --db ./crust.db --run 0190a5c4-...
  crust trace --db ./crust.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: most recent run)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	j, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := selectRuns(ctx, j, opts.RunID)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return NewExitError(ExitCommandError, "no runs found in database")
	}
	run := runs[len(runs)-1]

	records, err := j.ReadRun(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", run.ID), err)
	}

	result := TraceResult{
		RunID:    run.ID,
		Scenario: run.Scenario,
		Ticks:    make([]TraceTick, 0, len(records)),
	}
	for _, rec := range records {
		tt := TraceTick{TickTelemetry: rec.Telemetry, Ops: rec.Batch.Kinds()}
		if fp := rec.Telemetry.Fingerprint; fp != nil {
			tt.Fingerprint = ir.FormatFingerprint(*fp)
		}
		if fp := rec.DocumentFingerprint; fp != nil {
			tt.DocumentFingerprint = ir.FormatFingerprint(*fp)
		}
		result.Ticks = append(result.Ticks, tt)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return writeTraceText(cmd.OutOrStdout(), result)
}

func writeTraceText(w io.Writer, result TraceResult) error {
	fmt.Fprintf(w, "Run: %s (%s)\n", result.RunID, result.Scenario)
	if len(result.Ticks) == 0 {
		fmt.Fprintln(w, "No ticks recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICK\tRESULT\tSCRIPT\tSTYLE\tLAYOUT\tRENDER\tTOTAL\tMUTATIONS\tBYTES\tSELECTORS\tFINGERPRINT\tGUARDRAIL")
	for _, t := range result.Ticks {
		d, wk := t.Durations, t.Work
		fp := t.Fingerprint
		if fp == "" {
			fp = "-"
		}
		guard := "-"
		if g := t.Guardrail; g != nil {
			guard = fmt.Sprintf("%s: %s", g.Kind, g.Reason)
			if g.Phase != "" {
				guard += " [" + g.Phase + "]"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%d\t%d\t%d\t%s\t%s\n",
			t.TickID, t.Result,
			d.ScriptMS, d.StyleMS, d.LayoutMS, d.RenderMS, d.TotalMS,
			wk.DOMMutations, wk.PatchBytes, wk.SelectorsEvaluated,
			fp, guard)
	}
	return tw.Flush()
}
