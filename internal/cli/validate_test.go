package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidFile(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{testdataScenario("hello_world")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "\u2713")
	assert.Contains(t, stdout.String(), "(hello_world)")
}

func TestValidateDirectory(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{testdataScenarios})

	require.NoError(t, cmd.Execute())

	var result ValidationResult
	resp := decodeResponse(t, stdout.Bytes(), &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Len(t, result.Files, 3)
}

func TestValidateInvalidFile(t *testing.T) {
	dir := t.TempDir()
	good := writeScenario(t, dir, "good", failingScenario)
	bad := writeScenario(t, dir, "bad", invalidScenario)

	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{good, bad})

	err := cmd.Execute()
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, stdout.Bytes(), &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "1 file(s) invalid", resp.Error.Message)

	require.Len(t, result.Files, 2)
	assert.True(t, result.Files[0].Valid)
	assert.False(t, result.Files[1].Valid)
	assert.NotEmpty(t, result.Files[1].Error)
	assert.Positive(t, result.Files[1].Line)
}

func TestValidateInvalidFileText(t *testing.T) {
	bad := writeScenario(t, t.TempDir(), "bad", invalidScenario)

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	stdout, _ := testCommand(cmd)
	cmd.SetArgs([]string{bad})

	err := cmd.Execute()
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout.String(), "\u2717")
}

func TestValidateMissingPath(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})

	err := cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no scenario files found")
}

func TestValidateRequiresArgs(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	testCommand(cmd)
	cmd.SetArgs([]string{})

	require.Error(t, cmd.Execute())
}
