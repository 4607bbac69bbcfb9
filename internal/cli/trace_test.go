package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/journal"
	"github.com/roach88/crust/internal/telemetry"
)

func TestTraceText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "crust.db")
	journalScenario(t, dbPath, testdataScenario("forbidden_rollback"), "run-1")

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())
	out := stdout.String()
	assert.Contains(t, out, "Run: run-1 (forbidden_rollback)")
	assert.Contains(t, out, "FINGERPRINT")
	assert.Contains(t, out, "09c9635bafe473fc")
	assert.Contains(t, out, "rollback: forbidden op Remove [script]")
	assert.Contains(t, out, "fallback: layout budget exceeded")
}

func TestTraceJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "crust.db")
	journalScenario(t, dbPath, testdataScenario("forbidden_rollback"), "run-1")

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{"--db", dbPath, "--run", "run-1"})

	require.NoError(t, cmd.Execute())

	var result TraceResult
	resp := decodeResponse(t, stdout.Bytes(), &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "forbidden_rollback", result.Scenario)
	require.Len(t, result.Ticks, 4)

	first := result.Ticks[0]
	assert.Equal(t, uint64(1), first.TickID)
	assert.Equal(t, []ir.OpKind{ir.KindInsert, ir.KindSetText}, first.Ops)
	assert.Equal(t, "09c9635bafe473fc", first.Fingerprint)
	assert.Equal(t, "6ae96bdf2843b8c1", first.DocumentFingerprint)
	assert.Equal(t, 2, first.Work.DOMMutations)

	aborted := result.Ticks[1]
	assert.Equal(t, telemetry.ResultRollback, aborted.Result)
	assert.Empty(t, aborted.Ops)
	assert.Empty(t, aborted.Fingerprint)
	require.NotNil(t, aborted.Guardrail)
	assert.Equal(t, "forbidden op Remove", aborted.Guardrail.Reason)
}

func TestTraceDefaultsToLatestRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "crust.db")
	journalScenario(t, dbPath, testdataScenario("forbidden_rollback"), "run-1")
	journalScenario(t, dbPath, testdataScenario("hello_world"), "run-2")

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())

	var result TraceResult
	decodeResponse(t, stdout.Bytes(), &result)
	assert.Equal(t, "run-2", result.RunID)
	require.Len(t, result.Ticks, 1)
	assert.Equal(t, uint64(5), result.Ticks[0].TickID)
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "crust.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{"--db", dbPath})

	err = cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no runs found")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{"--db", "/nonexistent/path/crust.db"})

	err := cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{"--run", "run-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
