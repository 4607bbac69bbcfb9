package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/crust/internal/dom"
	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/journal"
	"github.com/roach88/crust/internal/telemetry"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID      string   `json:"run_id"`
	Scenario   string   `json:"scenario"`
	Ticks      int      `json:"ticks"`
	Committed  int      `json:"committed"`
	Verified   bool     `json:"verified"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs        []ReplayRunResult `json:"runs"`
	TotalRuns   int               `json:"total_runs"`
	AllVerified bool              `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled batches and verify fingerprints",
		Long: `Replay every committed batch of each journaled run onto a fresh
document, in tick order, and verify the stored fingerprints.

For each committed tick the batch fingerprint is recomputed from the stored
batch, and the document fingerprint after applying it must equal the one
recorded when the run executed.

Exit codes:
  0 - All runs verified
  1 - A fingerprint mismatch or apply failure was found
  2 - Command error (database not found, etc.)

Examples:
  crust replay --db ./crust.db
  crust replay --db ./crust.db --run 0190a5c4-...
  crust replay --db ./crust.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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

	result := ReplayResult{
		Runs:        make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:   len(runs),
		AllVerified: true,
	}
	for _, run := range runs {
		formatter.VerboseLog("replaying run %s (%s)", run.ID, run.Scenario)
		records, err := j.ReadRun(ctx, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", run.ID), err)
		}
		rr := replayRun(run, records)
		if !rr.Verified {
			result.AllVerified = false
		}
		result.Runs = append(result.Runs, rr)
	}

	if formatter.JSON() {
		if err := formatter.Result(result, !result.AllVerified, ErrCodeReplayMismatch, "replay verification failed"); err != nil {
			return err
		}
	} else {
		writeReplayText(cmd.OutOrStdout(), result)
	}

	if !result.AllVerified {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// openExistingJournal opens path, refusing to create a new database.
func openExistingJournal(path string) (*journal.Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return j, nil
}

// selectRuns returns the run named runID, or every run when runID is empty.
func selectRuns(ctx context.Context, j *journal.Journal, runID string) ([]journal.Run, error) {
	runs, err := j.ListRuns(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if runID == "" {
		return runs, nil
	}
	for _, r := range runs {
		if r.ID == runID {
			return []journal.Run{r}, nil
		}
	}
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
}

// replayRun re-applies the committed batches of one run in tick order.
func replayRun(run journal.Run, records []journal.TickRecord) ReplayRunResult {
	rr := ReplayRunResult{
		RunID:    run.ID,
		Scenario: run.Scenario,
		Ticks:    len(records),
		Verified: true,
	}
	mismatch := func(format string, args ...any) {
		rr.Mismatches = append(rr.Mismatches, fmt.Sprintf(format, args...))
		rr.Verified = false
	}

	var doc []byte
	for _, rec := range records {
		t := rec.Telemetry
		if t.Result != telemetry.ResultCommit {
			continue
		}
		rr.Committed++

		if t.Fingerprint != nil {
			fp, err := ir.BatchFingerprint(rec.Batch)
			if err != nil {
				mismatch("tick %d: batch fingerprint: %v", t.TickID, err)
			} else if fp != *t.Fingerprint {
				mismatch("tick %d: batch fingerprint %s, recorded %s",
					t.TickID, ir.FormatFingerprint(fp), ir.FormatFingerprint(*t.Fingerprint))
			}
		}

		next, fp, err := dom.Replay(doc, rec.Batch)
		if err != nil {
			mismatch("tick %d: apply: %v", t.TickID, err)
			continue
		}
		doc = next
		if rec.DocumentFingerprint != nil && fp != *rec.DocumentFingerprint {
			mismatch("tick %d: document fingerprint %s, recorded %s",
				t.TickID, ir.FormatFingerprint(fp), ir.FormatFingerprint(*rec.DocumentFingerprint))
		}
	}
	return rr
}

func writeReplayText(w io.Writer, result ReplayResult) {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}
	for _, rr := range result.Runs {
		mark := "\u2713"
		if !rr.Verified {
			mark = "\u2717"
		}
		fmt.Fprintf(w, "%s %s %s: %d ticks, %d committed\n", mark, rr.RunID, rr.Scenario, rr.Ticks, rr.Committed)
		for _, m := range rr.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	fmt.Fprintln(w)
	if result.AllVerified {
		fmt.Fprintf(w, "All %d run(s) verified.\n", result.TotalRuns)
	} else {
		fmt.Fprintln(w, "Replay verification failed.")
	}
}
