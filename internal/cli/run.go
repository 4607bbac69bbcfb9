package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/crust/internal/harness"
	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/journal"
	"github.com/roach88/crust/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	MetricsAddr string
	Hold        bool

	// RunIDGenerator overrides journal run ids (for testing).
	// If nil, the journal uses UUIDv7.
	RunIDGenerator journal.RunIDGenerator

	// Registry overrides the Prometheus registry (for testing).
	// If nil, a fresh registry is created per run.
	Registry *prometheus.Registry

	// MetricsListening, if set, receives the bound metrics address.
	MetricsListening func(addr string)
}

// RunTick is one tick line of the run output.
type RunTick struct {
	TickID              uint64               `json:"tick_id"`
	Result              telemetry.TickResult `json:"result"`
	Ops                 []ir.OpKind          `json:"ops"`
	Fingerprint         string               `json:"fingerprint,omitempty"`
	DocumentFingerprint string               `json:"document_fingerprint,omitempty"`
	Reason              string               `json:"reason,omitempty"`
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario string    `json:"scenario"`
	RunID    string    `json:"run_id,omitempty"`
	Pass     bool      `json:"pass"`
	Errors   []string  `json:"errors,omitempty"`
	Ticks    []RunTick `json:"ticks"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario",
		Long: `Run one scenario file through a fresh engine.

With --db every finalized tick is appended to a SQLite journal, numbered
after the highest tick id already stored. With --metrics-addr tick
telemetry is served as Prometheus metrics on /metrics while the scenario
runs; --hold keeps the endpoint up until interrupted.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed (apply error or failed assertion)
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  crust run ./scenarios/hello_world.yaml
  crust run --db ./crust.db ./scenarios/hello_world.yaml
  crust run --metrics-addr :9102 --hold ./scenarios/hello_world.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Hold, "hold", false, "keep serving metrics after the run until interrupted")

	return cmd
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	hopts := []harness.Option{harness.WithLogger(logger)}

	var j *journal.Journal
	if opts.Database != "" {
		var jopts []journal.Option
		if opts.RunIDGenerator != nil {
			jopts = append(jopts, journal.WithRunIDGenerator(opts.RunIDGenerator))
		}
		j, err = journal.Open(opts.Database, jopts...)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		last, err := j.LastTickID(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		hopts = append(hopts, harness.WithRecorderOptions(telemetry.WithStartTickID(last+1)))
	}

	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(opts, logger, &hopts)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer stop()
	}

	logger.Debug("running scenario", "scenario", scenario.Name, "path", path)
	result, err := harness.Run(scenario, hopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Errors:   result.Errors,
		Ticks:    runTicks(result),
	}

	if j != nil {
		runID, err := journalResult(ctx, j, scenario.Name, result)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to journal run", err)
		}
		out.RunID = runID
		logger.Info("run journaled", "run_id", runID, "ticks", len(result.Ticks))
	}

	if formatter.JSON() {
		if err := formatter.Result(out, !out.Pass, ErrCodeScenarioFailed, "scenario failed"); err != nil {
			return err
		}
	} else {
		writeRunText(cmd.OutOrStdout(), out)
	}

	if opts.Hold && opts.MetricsAddr != "" {
		holdCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		logger.Info("holding metrics endpoint, press Ctrl-C to stop")
		<-holdCtx.Done()
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// serveMetrics registers a telemetry exporter, wires it into the harness
// options and starts the HTTP endpoint. The returned func shuts it down.
func serveMetrics(opts *RunOptions, logger *slog.Logger, hopts *[]harness.Option) (func(), error) {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	exp, err := telemetry.NewExporter(reg)
	if err != nil {
		return nil, err
	}
	*hopts = append(*hopts, harness.WithRecorderOptions(telemetry.WithObserver(exp.Observe)))

	ln, err := net.Listen("tcp", opts.MetricsAddr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	addr := ln.Addr().String()
	logger.Info("serving metrics", "addr", addr)
	if opts.MetricsListening != nil {
		opts.MetricsListening(addr)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// journalResult writes a run row and one row per finalized tick, all or
// nothing.
func journalResult(ctx context.Context, j *journal.Journal, scenario string, result *harness.Result) (string, error) {
	byID := make(map[uint64]telemetry.TickTelemetry, len(result.Telemetry))
	for _, t := range result.Telemetry {
		byID[t.TickID] = t
	}
	entries := make([]journal.TickEntry, 0, len(result.Ticks))
	for _, tr := range result.Ticks {
		tel, ok := byID[tr.TickID]
		if !ok {
			return "", fmt.Errorf("no telemetry for tick %d", tr.TickID)
		}
		entries = append(entries, journal.TickEntry{
			Telemetry:           tel,
			Batch:               tr.Batch,
			DocumentFingerprint: tr.DocumentFingerprint,
		})
	}
	return j.WriteRun(ctx, scenario, entries)
}

func runTicks(result *harness.Result) []RunTick {
	ticks := make([]RunTick, 0, len(result.Ticks))
	for _, tr := range result.Ticks {
		rt := RunTick{
			TickID: tr.TickID,
			Result: tr.Result,
			Ops:    tr.Ops,
		}
		if tr.BatchFingerprint != nil {
			rt.Fingerprint = ir.FormatFingerprint(*tr.BatchFingerprint)
		}
		if tr.DocumentFingerprint != nil {
			rt.DocumentFingerprint = ir.FormatFingerprint(*tr.DocumentFingerprint)
		}
		if tr.Guardrail != nil {
			rt.Reason = tr.Guardrail.Reason
		}
		ticks = append(ticks, rt)
	}
	return ticks
}

func writeRunText(w io.Writer, out RunResult) {
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	if out.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", out.RunID)
	}
	for _, t := range out.Ticks {
		fmt.Fprintf(w, "  tick %d %-8s %v", t.TickID, t.Result, t.Ops)
		if t.Fingerprint != "" {
			fmt.Fprintf(w, " batch=%s", t.Fingerprint)
		}
		if t.DocumentFingerprint != "" {
			fmt.Fprintf(w, " doc=%s", t.DocumentFingerprint)
		}
		if t.Reason != "" {
			fmt.Fprintf(w, " (%s)", t.Reason)
		}
		fmt.Fprintln(w)
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if out.Pass {
		fmt.Fprintln(w, "PASS")
	} else {
		fmt.Fprintln(w, "FAIL")
	}
}
