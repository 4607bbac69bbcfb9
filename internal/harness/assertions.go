package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/crust/internal/dom"
	"github.com/roach88/crust/internal/graph"
	"github.com/roach88/crust/internal/telemetry"
)

// AssertionContext is the final state assertions are evaluated against.
type AssertionContext struct {
	Document  *dom.Document
	Graph     *graph.Graph
	Ticks     []TickTrace
	Telemetry []telemetry.TickTelemetry
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Ticks    []TickTrace
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Ticks) > 0 {
		fmt.Fprintf(&buf, "\nTicks:\n")
		for _, t := range e.Ticks {
			fmt.Fprintf(&buf, "  [%d] tick %d %s %v\n", t.Index, t.TickID, t.Result, t.Ops)
		}
	}
	return buf.String()
}

func fail(actx *AssertionContext, typ, expected, actual string) error {
	return &AssertionError{Type: typ, Expected: expected, Actual: actual, Ticks: actx.Ticks}
}

func assertText(actx *AssertionContext, a Assertion) error {
	got, ok := actx.Document.Text(a.Node)
	if !ok {
		return fail(actx, AssertText, fmt.Sprintf("node %s text %q", a.Node, a.Value), "node not found")
	}
	if got != a.Value {
		return fail(actx, AssertText, fmt.Sprintf("node %s text %q", a.Node, a.Value), fmt.Sprintf("%q", got))
	}
	return nil
}

func assertAttr(actx *AssertionContext, a Assertion) error {
	want := fmt.Sprintf("node %s attr %s=%q", a.Node, a.Name, a.Value)
	got, ok := actx.Document.Attr(a.Node, a.Name)
	if !ok {
		return fail(actx, AssertAttr, want, "attribute not set")
	}
	if got != a.Value {
		return fail(actx, AssertAttr, want, fmt.Sprintf("%q", got))
	}
	return nil
}

func assertChildren(actx *AssertionContext, a Assertion) error {
	if !actx.Document.Has(a.Node) {
		return fail(actx, AssertChildren, fmt.Sprintf("node %s children %v", a.Node, a.Children), "node not found")
	}
	got := actx.Document.Children(a.Node)
	if !slices.Equal(got, a.Children) {
		return fail(actx, AssertChildren, fmt.Sprintf("node %s children %v", a.Node, a.Children), fmt.Sprintf("%v", got))
	}
	return nil
}

func assertAbsent(actx *AssertionContext, a Assertion) error {
	if actx.Document.Has(a.Node) {
		return fail(actx, AssertAbsent, fmt.Sprintf("node %s absent", a.Node), "node present")
	}
	return nil
}

func assertTickResult(actx *AssertionContext, a Assertion) error {
	want := fmt.Sprintf("tick %d result %s", a.Tick, a.Result)
	if a.Tick < 1 || a.Tick > len(actx.Ticks) {
		return fail(actx, AssertTickResult, want, fmt.Sprintf("only %d ticks ran", len(actx.Ticks)))
	}
	if got := actx.Ticks[a.Tick-1].Result; string(got) != a.Result {
		return fail(actx, AssertTickResult, want, string(got))
	}
	return nil
}

func assertDependents(actx *AssertionContext, a Assertion) error {
	got := actx.Graph.DependentsOf(a.Node)
	if !slices.Equal(got, a.Dependents) && !(len(got) == 0 && len(a.Dependents) == 0) {
		return fail(actx, AssertDependents, fmt.Sprintf("node %s dependents %v", a.Node, a.Dependents), fmt.Sprintf("%v", got))
	}
	return nil
}

func assertMutations(actx *AssertionContext, a Assertion) error {
	want := fmt.Sprintf("tick %d with %d mutations", a.Tick, a.Count)
	if a.Tick < 1 || a.Tick > len(actx.Telemetry) {
		return fail(actx, AssertMutations, want, fmt.Sprintf("only %d ticks recorded", len(actx.Telemetry)))
	}
	if got := actx.Telemetry[a.Tick-1].Work.DOMMutations; got != a.Count {
		return fail(actx, AssertMutations, want, fmt.Sprintf("%d mutations", got))
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertText:
			err = assertText(actx, a)
		case AssertAttr:
			err = assertAttr(actx, a)
		case AssertChildren:
			err = assertChildren(actx, a)
		case AssertAbsent:
			err = assertAbsent(actx, a)
		case AssertTickResult:
			err = assertTickResult(actx, a)
		case AssertDependents:
			err = assertDependents(actx, a)
		case AssertMutations:
			err = assertMutations(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
