package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crust/internal/ir"
)

// Scenario defines a tick scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Forbidden lists op kinds that force a tick to roll back.
	Forbidden []string `yaml:"forbidden,omitempty" json:"forbidden,omitempty"`

	// Selectors are the derived values available to evaluate steps.
	Selectors []SelectorDef `yaml:"selectors,omitempty" json:"selectors,omitempty"`

	// Ticks run in order. At least one is required.
	Ticks []Tick `yaml:"ticks" json:"ticks"`

	// Assertions validate the final document, graph and telemetry.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// SelectorDef declares a selector that concatenates the present values of
// Reads, in order, joined by Separator (a single space when empty).
type SelectorDef struct {
	ID        ir.NodeID   `yaml:"id" json:"id"`
	Reads     []ir.NodeID `yaml:"reads" json:"reads"`
	Separator string      `yaml:"separator,omitempty" json:"separator,omitempty"`
}

// Tick end modes.
const (
	EndCommit   = "commit"
	EndRollback = "rollback"
	EndFallback = "fallback"
)

// Tick is one BeginTick..end cycle.
type Tick struct {
	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`

	// End is commit (default), rollback or fallback.
	End string `yaml:"end,omitempty" json:"end,omitempty"`

	// Reason is recorded on the guardrail event of an explicit abort.
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Step is one action inside a tick. Exactly one field is set.
type Step struct {
	Set      *SetStep      `yaml:"set,omitempty" json:"set,omitempty"`
	Attr     *AttrStep     `yaml:"attr,omitempty" json:"attr,omitempty"`
	Insert   *InsertStep   `yaml:"insert,omitempty" json:"insert,omitempty"`
	Remove   *RemoveStep   `yaml:"remove,omitempty" json:"remove,omitempty"`
	Evaluate *EvaluateStep `yaml:"evaluate,omitempty" json:"evaluate,omitempty"`
	Phase    *PhaseStep    `yaml:"phase,omitempty" json:"phase,omitempty"`
}

// SetStep writes a store value through Engine.SetValue.
type SetStep struct {
	Node ir.NodeID `yaml:"node" json:"node"`
	Text string    `yaml:"text" json:"text"`
}

// AttrStep emits a SetAttr op.
type AttrStep struct {
	Node  ir.NodeID `yaml:"node" json:"node"`
	Name  string    `yaml:"name" json:"name"`
	Value string    `yaml:"value" json:"value"`
}

// InsertStep emits an Insert op.
type InsertStep struct {
	Parent ir.NodeID `yaml:"parent" json:"parent"`
	Child  ir.NodeID `yaml:"child" json:"child"`
}

// RemoveStep emits a Remove op.
type RemoveStep struct {
	Node ir.NodeID `yaml:"node" json:"node"`
}

// EvaluateStep evaluates a selector. When Target is set the output is
// written to it with SetValue.
type EvaluateStep struct {
	Selector ir.NodeID  `yaml:"selector" json:"selector"`
	Target   *ir.NodeID `yaml:"target,omitempty" json:"target,omitempty"`
}

// PhaseStep books host time against a phase.
type PhaseStep struct {
	Name string  `yaml:"name" json:"name"`
	MS   float64 `yaml:"ms" json:"ms"`
}

// Assertion validates final state.
type Assertion struct {
	Type       string      `yaml:"type" json:"type"`
	Node       ir.NodeID   `yaml:"node,omitempty" json:"node,omitempty"`
	Name       string      `yaml:"name,omitempty" json:"name,omitempty"`
	Value      string      `yaml:"value,omitempty" json:"value,omitempty"`
	Children   []ir.NodeID `yaml:"children,omitempty" json:"children,omitempty"`
	Dependents []ir.NodeID `yaml:"dependents,omitempty" json:"dependents,omitempty"`
	Tick       int         `yaml:"tick,omitempty" json:"tick,omitempty"`
	Result     string      `yaml:"result,omitempty" json:"result,omitempty"`
	Count      int         `yaml:"count,omitempty" json:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertText       = "text"
	AssertAttr       = "attr"
	AssertChildren   = "children"
	AssertAbsent     = "absent"
	AssertTickResult = "tick_result"
	AssertDependents = "dependents"
	AssertMutations  = "mutations"
)

// LoadScenario reads, schema-checks and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario is LoadScenario for in-memory data. filename is used in
// error positions only.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSchema(filename, data); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks what the schema cannot: that exactly one step
// variant is set, that selector references resolve, and that forbidden
// kinds parse. Run calls it for scenarios built in code.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Ticks) == 0 {
		return fmt.Errorf("ticks list is required and must be non-empty")
	}

	for i, k := range s.Forbidden {
		if _, err := ir.ParseOpKind(k); err != nil {
			return fmt.Errorf("forbidden[%d]: %w", i, err)
		}
	}

	selectors := make(map[ir.NodeID]bool, len(s.Selectors))
	for i, sel := range s.Selectors {
		if selectors[sel.ID] {
			return fmt.Errorf("selectors[%d]: duplicate id %s", i, sel.ID)
		}
		selectors[sel.ID] = true
	}

	for i, tick := range s.Ticks {
		switch tick.End {
		case "", EndCommit, EndRollback, EndFallback:
		default:
			return fmt.Errorf("ticks[%d]: unknown end %q", i, tick.End)
		}
		for j, step := range tick.Steps {
			if err := validateStep(step, selectors); err != nil {
				return fmt.Errorf("ticks[%d].steps[%d]: %w", i, j, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Ticks)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, selectors map[ir.NodeID]bool) error {
	set := 0
	for _, present := range []bool{
		step.Set != nil, step.Attr != nil, step.Insert != nil,
		step.Remove != nil, step.Evaluate != nil, step.Phase != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one step variant must be set, got %d", set)
	}

	switch {
	case step.Attr != nil && step.Attr.Name == "":
		return fmt.Errorf("attr: name is required")
	case step.Evaluate != nil && !selectors[step.Evaluate.Selector]:
		return fmt.Errorf("evaluate: unknown selector %s", step.Evaluate.Selector)
	case step.Phase != nil:
		switch step.Phase.Name {
		case "style", "layout", "render":
		default:
			return fmt.Errorf("phase: unknown name %q", step.Phase.Name)
		}
		if step.Phase.MS < 0 {
			return fmt.Errorf("phase: ms must be non-negative")
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, ticks int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertText, AssertAbsent, AssertChildren, AssertDependents:
	case AssertAttr:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for attr", index)
		}
	case AssertTickResult, AssertMutations:
		if a.Tick < 1 || a.Tick > ticks {
			return fmt.Errorf("assertions[%d]: tick must be in 1..%d for %s", index, ticks, a.Type)
		}
		if a.Type == AssertTickResult {
			switch a.Result {
			case EndCommit, EndRollback, EndFallback:
			default:
				return fmt.Errorf("assertions[%d]: unknown result %q", index, a.Result)
			}
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
