package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandTestdata(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{testdataScenarios, "--golden-dir", testdataGolden})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommandJSON(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{testdataScenarios, "--golden-dir", testdataGolden})

	require.NoError(t, cmd.Execute())

	var result TestResult
	resp := decodeResponse(t, stdout.Bytes(), &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, result.Total)
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, sr.Name)
		assert.Equal(t, "match", sr.Golden, sr.Name)
	}
}

func TestTestCommandFilter(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{testdataScenarios, "--golden-dir", testdataGolden, "--filter", "hello*"})

	require.NoError(t, cmd.Execute())

	var result TestResult
	decodeResponse(t, stdout.Bytes(), &result)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "hello_world", result.Scenarios[0].Name)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{testdataScenarios, "--filter", "["})

	err := cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailures(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "failing", failingScenario)
	writeScenario(t, dir, "invalid", invalidScenario)

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout.String(), "Test Summary: 0 passed, 2 failed, 2 total")
	assert.Contains(t, stdout.String(), "load: ")
	assert.Contains(t, stdout.String(), "assertions[0]")
}

func TestTestCommandUpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(testdataScenario("hello_world"))
	require.NoError(t, err)
	writeScenario(t, dir, "hello_world", string(data))

	update := NewTestCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(update)
	update.SetArgs([]string{dir, "--update"})
	require.NoError(t, update.Execute())
	assert.Contains(t, stdout.String(), "(golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "hello_world.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(testdataGolden, "hello_world.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	check := NewTestCommand(&RootOptions{Format: "json"})
	out, _ := testCommand(check)
	check.SetArgs([]string{dir})
	require.NoError(t, check.Execute())

	var result TestResult
	decodeResponse(t, out.Bytes(), &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(testdataScenario("hello_world"))
	require.NoError(t, err)
	writeScenario(t, dir, "hello_world", string(data))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "hello_world.golden"), []byte("{}"), 0o644))

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{dir})

	err = cmd.Execute()
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout.String(), "trace does not match golden file")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{t.TempDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "No scenarios found.")
}
