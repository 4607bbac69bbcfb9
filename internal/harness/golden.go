package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/crust/internal/ir"
)

// CanonicalTrace renders the deterministic part of a result as canonical
// JSON: per-tick outcome, fingerprints, evaluations and the final document.
// Durations are excluded.
func CanonicalTrace(scenarioName string, result *Result) ([]byte, error) {
	ticks := make([]any, len(result.Ticks))
	for i, t := range result.Ticks {
		ops := make([]string, len(t.Ops))
		for j, k := range t.Ops {
			ops[j] = string(k)
		}
		evals := make([]any, len(t.Evaluations))
		for j, e := range t.Evaluations {
			evals[j] = map[string]any{
				"selector": e.Selector,
				"output":   e.Output,
				"reads":    e.Reads,
			}
		}
		m := map[string]any{
			"index":       t.Index,
			"tick_id":     t.TickID,
			"result":      string(t.Result),
			"ops":         ops,
			"evaluations": evals,
		}
		if t.BatchFingerprint != nil {
			m["batch_fingerprint"] = ir.FormatFingerprint(*t.BatchFingerprint)
		}
		if t.DocumentFingerprint != nil {
			m["document_fingerprint"] = ir.FormatFingerprint(*t.DocumentFingerprint)
		}
		if g := t.Guardrail; g != nil {
			guard := map[string]any{"kind": string(g.Kind), "reason": g.Reason}
			if g.Phase != "" {
				guard["phase"] = g.Phase
			}
			m["guardrail"] = guard
		}
		ticks[i] = m
	}

	snapshot := map[string]any{
		"scenario": scenarioName,
		"ticks":    ticks,
	}
	if result.Document != nil {
		doc, err := result.Document.Serialize()
		if err != nil {
			return nil, err
		}
		snapshot["document"] = string(doc)
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its canonical trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's canonical trace against the
// golden file named scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := CanonicalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
