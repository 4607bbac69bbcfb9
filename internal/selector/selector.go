package selector

import (
	"time"

	"github.com/roach88/crust/internal/graph"
	"github.com/roach88/crust/internal/ir"
	"github.com/roach88/crust/internal/store"
	"github.com/roach88/crust/internal/telemetry"
)

// Selector is a derived value with a stable identity.
type Selector interface {
	ID() ir.NodeID
	Compute(ctx *Context) string
}

// Func adapts a plain function into a Selector.
type Func struct {
	id ir.NodeID
	fn func(*Context) string
}

// New returns a Selector with the given id backed by fn.
func New(id ir.NodeID, fn func(*Context) string) Func {
	return Func{id: id, fn: fn}
}

func (f Func) ID() ir.NodeID { return f.id }

func (f Func) Compute(ctx *Context) string {
	if f.fn == nil {
		return ""
	}
	return f.fn(ctx)
}

// Context is the per-evaluation handle passed to Compute. It is valid only
// for the duration of one evaluation.
type Context struct {
	store      *store.Store
	graph      *graph.Graph
	selectorID ir.NodeID
	reads      int
}

// Read returns the current value of node and records that the selector
// depends on it. The edge is idempotent; the read counter is not.
func (c *Context) Read(node ir.NodeID) (string, bool) {
	c.graph.AddEdge(node, c.selectorID)
	c.reads++
	return c.store.Value(node)
}

// Reads returns how many times Read was called during this evaluation.
func (c *Context) Reads() int { return c.reads }

// SelectorID returns the id of the selector being evaluated.
func (c *Context) SelectorID() ir.NodeID { return c.selectorID }

// Evaluate runs sel once against s, registering its reads in g.
func Evaluate(sel Selector, s *store.Store, g *graph.Graph) string {
	out, _ := evaluate(sel, s, g)
	return out
}

// EvaluateWithRecorder is Evaluate plus telemetry: the computation is timed
// and reported to rec as one selector evaluation whose invalidated-element
// count is the number of reads. Builds tagged crust_notelemetry skip the
// timing entirely.
func EvaluateWithRecorder(sel Selector, s *store.Store, g *graph.Graph, rec telemetry.Recorder) string {
	if !telemetry.Enabled || rec == nil {
		return Evaluate(sel, s, g)
	}
	start := time.Now()
	out, reads := evaluate(sel, s, g)
	rec.RecordSelectorEvaluation(time.Since(start), reads)
	return out
}

func evaluate(sel Selector, s *store.Store, g *graph.Graph) (string, int) {
	if s == nil {
		s = store.New()
	}
	ctx := &Context{store: s, graph: g, selectorID: sel.ID()}
	out := sel.Compute(ctx)
	return out, ctx.reads
}
