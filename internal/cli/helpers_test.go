package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crust/internal/testutil"
)

const (
	testdataScenarios = "../harness/testdata/scenarios"
	testdataGolden    = "../harness/testdata/golden"
)

const failingScenario = `name: failing
description: Asserts text that is never written
ticks:
  - steps:
      - set: { node: 1, text: a }
assertions:
  - { type: text, node: 1, value: b }
`

const invalidScenario = `name: invalid
description: Unknown end value
ticks:
  - steps: []
    end: explode
`

// writeScenario writes content to dir/name.yaml and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testdataScenario returns the path of a harness testdata scenario.
func testdataScenario(name string) string {
	return filepath.Join(testdataScenarios, name+".yaml")
}

// testCommand wires cmd to fresh output buffers.
func testCommand(cmd *cobra.Command) (stdout, stderr *bytes.Buffer) {
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return stdout, stderr
}

// decodeResponse decodes a JSON CLIResponse and its data into data.
func decodeResponse(t *testing.T, raw []byte, data any) CLIResponse {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp.CLIResponse
}

// journalScenario runs a scenario with --db against dbPath under runID.
func journalScenario(t *testing.T, dbPath, scenarioPath, runID string) {
	t.Helper()
	opts := &RunOptions{
		RootOptions:    &RootOptions{Format: "text"},
		Database:       dbPath,
		RunIDGenerator: testutil.NewFixedRunIDGenerator(runID),
	}
	cmd := NewRunCommand(opts.RootOptions)
	testCommand(cmd)
	require.NoError(t, runScenarioCommand(opts, scenarioPath, cmd))
}
