package dom

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/crust/internal/ir"
)

// Serialize renders the document as a canonical JSON array of node objects
// sorted by id. Roots carry no "parent" key. Text and attributes keep their
// exact bytes: anything that would not survive canonical JSON unchanged is
// base64-encoded under a "_base64" key.
func (d *Document) Serialize() ([]byte, error) {
	arr := make([]any, 0, len(d.nodes))
	for _, id := range d.Nodes() {
		n := d.nodes[id]
		children := n.children
		if children == nil {
			children = []ir.NodeID{}
		}
		obj := map[string]any{
			"id":       n.id,
			"children": children,
		}
		ir.PutBytes(obj, "text", n.text)
		putAttrs(obj, n.attrs)
		if n.attached {
			obj["parent"] = n.parent
		}
		arr = append(arr, obj)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return data, nil
}

// Fingerprint hashes the serialized document.
func (d *Document) Fingerprint() (uint64, error) {
	data, err := d.Serialize()
	if err != nil {
		return 0, err
	}
	return ir.DocumentFingerprint(data), nil
}

// putAttrs writes attrs as an object. Object keys are NFC normalized by
// the canonical encoder, so names that are not already NFC (and any pair
// with invalid UTF-8) go to "attrs_base64" with both sides encoded.
func putAttrs(obj map[string]any, attrs map[string]string) {
	plain := make(map[string]any, len(attrs))
	encoded := map[string]any{}
	for name, value := range attrs {
		if utf8.ValidString(name) && norm.NFC.IsNormalString(name) && utf8.ValidString(value) {
			plain[name] = ir.Verbatim(value)
			continue
		}
		encoded[b64(name)] = b64(value)
	}
	obj["attrs"] = plain
	if len(encoded) > 0 {
		obj["attrs"+ir.Base64Suffix] = encoded
	}
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

type wireNode struct {
	ID          ir.NodeID         `json:"id"`
	Text        *string           `json:"text"`
	TextBase64  *string           `json:"text_base64"`
	Attrs       map[string]string `json:"attrs"`
	AttrsBase64 map[string]string `json:"attrs_base64"`
	Children    []ir.NodeID       `json:"children"`
	Parent      *ir.NodeID        `json:"parent"`
}

func (w wireNode) text() (string, error) {
	text, err := ir.TakeBytes("text", w.Text, w.TextBase64)
	if err != nil || text == nil {
		return "", err
	}
	return *text, nil
}

func (w wireNode) attrs() (map[string]string, error) {
	if len(w.Attrs)+len(w.AttrsBase64) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(w.Attrs)+len(w.AttrsBase64))
	for name, value := range w.Attrs {
		attrs[name] = value
	}
	for encName, encValue := range w.AttrsBase64 {
		name, err := base64.StdEncoding.DecodeString(encName)
		if err != nil {
			return nil, fmt.Errorf("attribute name %q: %w", encName, err)
		}
		value, err := base64.StdEncoding.DecodeString(encValue)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		if _, dup := attrs[string(name)]; dup {
			return nil, fmt.Errorf("attribute %q set twice", name)
		}
		attrs[string(name)] = string(value)
	}
	return attrs, nil
}

// FromSerialized rebuilds a document from Serialize output. Empty input
// yields an empty document. Parent and child links must agree.
func FromSerialized(data []byte) (*Document, error) {
	d := New()
	if len(data) == 0 {
		return d, nil
	}

	var raw []wireNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	for _, w := range raw {
		if _, dup := d.nodes[w.ID]; dup {
			return nil, fmt.Errorf("decode document: duplicate node %s", w.ID)
		}
		text, err := w.text()
		if err != nil {
			return nil, fmt.Errorf("decode document: node %s: %w", w.ID, err)
		}
		attrs, err := w.attrs()
		if err != nil {
			return nil, fmt.Errorf("decode document: node %s: %w", w.ID, err)
		}
		n := &node{id: w.ID, text: text, attrs: attrs, children: w.Children}
		if w.Parent != nil {
			n.parent = *w.Parent
			n.attached = true
		}
		d.nodes[w.ID] = n
	}

	for _, n := range d.nodes {
		for _, c := range n.children {
			child, ok := d.nodes[c]
			if !ok || !child.attached || child.parent != n.id {
				return nil, fmt.Errorf("decode document: child %s of %s has no matching parent link", c, n.id)
			}
		}
		if n.attached {
			p, ok := d.nodes[n.parent]
			if !ok || !slices.Contains(p.children, n.id) {
				return nil, fmt.Errorf("decode document: node %s is not a child of %s", n.id, n.parent)
			}
		}
	}

	for _, n := range d.nodes {
		steps := 0
		for cur := n; cur.attached; cur = d.nodes[cur.parent] {
			if steps++; steps > len(d.nodes) {
				return nil, fmt.Errorf("decode document: node %s is its own ancestor", n.id)
			}
		}
	}
	return d, nil
}

// Replay applies batch to the document encoded in initial and returns the
// new serialized form with its fingerprint. An empty initial means an empty
// document.
func Replay(initial []byte, batch ir.PatchBatch) ([]byte, uint64, error) {
	d, err := FromSerialized(initial)
	if err != nil {
		return nil, 0, err
	}
	if err := d.Apply(batch); err != nil {
		return nil, 0, err
	}
	out, err := d.Serialize()
	if err != nil {
		return nil, 0, err
	}
	return out, ir.DocumentFingerprint(out), nil
}
