package dom

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/crust/internal/ir"
)

// ErrCycle is returned when an Insert would make a node its own ancestor.
var ErrCycle = errors.New("insert would create a cycle")

// ApplyError reports the op at which Apply stopped. Ops before Index have
// been applied; the op at Index and everything after it have not.
type ApplyError struct {
	Index int
	Op    ir.PatchOp
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply op[%d] %s: %v", e.Index, e.Op.Kind(), e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

type node struct {
	id       ir.NodeID
	text     string
	attrs    map[string]string
	children []ir.NodeID
	parent   ir.NodeID
	attached bool
}

// Document is a forest of nodes keyed by id.
// The zero value is not usable; call New.
type Document struct {
	nodes map[ir.NodeID]*node
}

// New returns an empty document.
func New() *Document {
	return &Document{nodes: make(map[ir.NodeID]*node)}
}

// Apply applies batch in order and stops at the first failing op.
func (d *Document) Apply(batch ir.PatchBatch) error {
	for i, op := range batch {
		if err := d.applyOp(op); err != nil {
			return &ApplyError{Index: i, Op: op, Err: err}
		}
	}
	return nil
}

func (d *Document) applyOp(op ir.PatchOp) error {
	switch o := op.(type) {
	case ir.SetText:
		d.ensure(o.Node).text = o.Text
	case ir.SetAttr:
		n := d.ensure(o.Node)
		if n.attrs == nil {
			n.attrs = make(map[string]string)
		}
		n.attrs[o.Name] = o.Value
	case ir.Insert:
		return d.insert(o.Parent, o.Child)
	case ir.Remove:
		d.remove(o.Node)
	default:
		return fmt.Errorf("unsupported patch op %T", op)
	}
	return nil
}

func (d *Document) ensure(id ir.NodeID) *node {
	if n, ok := d.nodes[id]; ok {
		return n
	}
	n := &node{id: id}
	d.nodes[id] = n
	return n
}

func (d *Document) insert(parentID, childID ir.NodeID) error {
	if d.isAncestorOrSelf(childID, parentID) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, childID, parentID)
	}
	parent := d.ensure(parentID)
	child := d.ensure(childID)
	d.detach(child)
	child.parent = parentID
	child.attached = true
	parent.children = append(parent.children, childID)
	return nil
}

// isAncestorOrSelf reports whether candidate is id or one of id's ancestors.
func (d *Document) isAncestorOrSelf(candidate, id ir.NodeID) bool {
	for {
		if id == candidate {
			return true
		}
		n, ok := d.nodes[id]
		if !ok || !n.attached {
			return false
		}
		id = n.parent
	}
}

func (d *Document) detach(n *node) {
	if !n.attached {
		return
	}
	if p, ok := d.nodes[n.parent]; ok {
		if i := slices.Index(p.children, n.id); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}
	n.parent = 0
	n.attached = false
}

func (d *Document) remove(id ir.NodeID) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}
	d.detach(n)
	d.deleteSubtree(n)
}

func (d *Document) deleteSubtree(n *node) {
	for _, c := range n.children {
		if child, ok := d.nodes[c]; ok {
			d.deleteSubtree(child)
		}
	}
	delete(d.nodes, n.id)
}

// Has reports whether node exists.
func (d *Document) Has(id ir.NodeID) bool {
	_, ok := d.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (d *Document) Len() int { return len(d.nodes) }

// Text returns the text of a node.
func (d *Document) Text(id ir.NodeID) (string, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	return n.text, true
}

// Attr returns one attribute of a node.
func (d *Document) Attr(id ir.NodeID, name string) (string, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	v, ok := n.attrs[name]
	return v, ok
}

// Children returns a copy of a node's children in insertion order.
func (d *Document) Children(id ir.NodeID) []ir.NodeID {
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.children)
}

// Parent returns a node's parent. Roots and unknown nodes report false.
func (d *Document) Parent(id ir.NodeID) (ir.NodeID, bool) {
	n, ok := d.nodes[id]
	if !ok || !n.attached {
		return 0, false
	}
	return n.parent, true
}

// Nodes returns every node id in ascending order.
func (d *Document) Nodes() []ir.NodeID {
	return slices.SortedFunc(maps.Keys(d.nodes), ir.Compare)
}
