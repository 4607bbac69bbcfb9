package ir

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// OpKind names a patch operation variant.
type OpKind string

// Patch operation kinds. The set is closed.
const (
	KindSetText OpKind = "SetText"
	KindSetAttr OpKind = "SetAttr"
	KindInsert  OpKind = "Insert"
	KindRemove  OpKind = "Remove"
)

// PatchOp is one atomic mutation description. Implementations are the four
// value types in this file; the unexported marker keeps the set closed.
type PatchOp interface {
	Kind() OpKind
	patchOp()
}

// SetText replaces the text content of a node.
type SetText struct {
	Node NodeID
	Text string
}

// SetAttr sets one named attribute on a node.
type SetAttr struct {
	Node  NodeID
	Name  string
	Value string
}

// Insert appends Child to Parent's children.
type Insert struct {
	Parent NodeID
	Child  NodeID
}

// Remove deletes a node.
type Remove struct {
	Node NodeID
}

func (SetText) Kind() OpKind { return KindSetText }
func (SetAttr) Kind() OpKind { return KindSetAttr }
func (Insert) Kind() OpKind  { return KindInsert }
func (Remove) Kind() OpKind  { return KindRemove }

func (SetText) patchOp() {}
func (SetAttr) patchOp() {}
func (Insert) patchOp()  {}
func (Remove) patchOp()  {}

// PatchBatch is the ordered output of one tick. Order is emission order and
// consumers must apply ops strictly in sequence.
type PatchBatch []PatchOp

// Kinds returns the kind of every op in order.
func (b PatchBatch) Kinds() []OpKind {
	kinds := make([]OpKind, len(b))
	for i, op := range b {
		kinds[i] = op.Kind()
	}
	return kinds
}

// ParseOpKind accepts both the canonical kind names and the lower-case
// forms used in scenario files ("set", "attr", "insert", "remove").
func ParseOpKind(s string) (OpKind, error) {
	switch s {
	case "SetText", "set", "set_text":
		return KindSetText, nil
	case "SetAttr", "attr", "set_attr":
		return KindSetAttr, nil
	case "Insert", "insert":
		return KindInsert, nil
	case "Remove", "remove":
		return KindRemove, nil
	default:
		return "", fmt.Errorf("unknown patch op kind %q", s)
	}
}

// opObject converts an op into the generic form used by MarshalCanonical.
// String fields are written verbatim so the encoding, and the fingerprint
// over it, distinguishes every byte sequence.
func opObject(op PatchOp) (map[string]any, error) {
	switch o := op.(type) {
	case SetText:
		obj := map[string]any{"kind": string(KindSetText), "node": o.Node}
		PutBytes(obj, "text", o.Text)
		return obj, nil
	case SetAttr:
		obj := map[string]any{"kind": string(KindSetAttr), "node": o.Node}
		PutBytes(obj, "name", o.Name)
		PutBytes(obj, "value", o.Value)
		return obj, nil
	case Insert:
		return map[string]any{"kind": string(KindInsert), "parent": o.Parent, "child": o.Child}, nil
	case Remove:
		return map[string]any{"kind": string(KindRemove), "node": o.Node}, nil
	default:
		return nil, fmt.Errorf("unsupported patch op %T", op)
	}
}

// PutBytes stores s in obj under key as a Verbatim string when it is valid
// UTF-8, and base64-encoded under key+"_base64" otherwise.
func PutBytes(obj map[string]any, key, s string) {
	if utf8.ValidString(s) {
		obj[key] = Verbatim(s)
		return
	}
	obj[key+Base64Suffix] = base64.StdEncoding.EncodeToString([]byte(s))
}

// Base64Suffix marks a field holding base64 of bytes that are not UTF-8.
const Base64Suffix = "_base64"

// TakeBytes is the inverse of PutBytes on the decoded fields. It returns
// nil when neither form is present.
func TakeBytes(key string, plain, encoded *string) (*string, error) {
	if encoded == nil {
		return plain, nil
	}
	if plain != nil {
		return nil, fmt.Errorf("both %s and %s%s set", key, key, Base64Suffix)
	}
	raw, err := base64.StdEncoding.DecodeString(*encoded)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", key, Base64Suffix, err)
	}
	s := string(raw)
	return &s, nil
}

// MarshalBatch encodes a batch as a canonical JSON array of op objects.
func MarshalBatch(b PatchBatch) ([]byte, error) {
	arr := make([]any, len(b))
	for i, op := range b {
		obj, err := opObject(op)
		if err != nil {
			return nil, fmt.Errorf("op[%d]: %w", i, err)
		}
		arr[i] = obj
	}
	return MarshalCanonical(arr)
}

// wireOp is the decoded form of one op object.
type wireOp struct {
	Kind   string  `json:"kind"`
	Node   *NodeID `json:"node"`
	Text   *string `json:"text"`
	Name   *string `json:"name"`
	Value  *string `json:"value"`
	Parent *NodeID `json:"parent"`
	Child  *NodeID `json:"child"`

	TextBase64  *string `json:"text_base64"`
	NameBase64  *string `json:"name_base64"`
	ValueBase64 *string `json:"value_base64"`
}

// UnmarshalBatch decodes the output of MarshalBatch.
// Missing required fields are rejected.
func UnmarshalBatch(data []byte) (PatchBatch, error) {
	var raw []wireOp
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	batch := make(PatchBatch, 0, len(raw))
	for i, w := range raw {
		op, err := w.toOp()
		if err != nil {
			return nil, fmt.Errorf("op[%d]: %w", i, err)
		}
		batch = append(batch, op)
	}
	return batch, nil
}

func (w wireOp) toOp() (PatchOp, error) {
	var err error
	if w.Text, err = TakeBytes("text", w.Text, w.TextBase64); err != nil {
		return nil, err
	}
	if w.Name, err = TakeBytes("name", w.Name, w.NameBase64); err != nil {
		return nil, err
	}
	if w.Value, err = TakeBytes("value", w.Value, w.ValueBase64); err != nil {
		return nil, err
	}

	switch OpKind(w.Kind) {
	case KindSetText:
		if w.Node == nil || w.Text == nil {
			return nil, fmt.Errorf("SetText requires node and text")
		}
		return SetText{Node: *w.Node, Text: *w.Text}, nil
	case KindSetAttr:
		if w.Node == nil || w.Name == nil || w.Value == nil {
			return nil, fmt.Errorf("SetAttr requires node, name and value")
		}
		return SetAttr{Node: *w.Node, Name: *w.Name, Value: *w.Value}, nil
	case KindInsert:
		if w.Parent == nil || w.Child == nil {
			return nil, fmt.Errorf("Insert requires parent and child")
		}
		return Insert{Parent: *w.Parent, Child: *w.Child}, nil
	case KindRemove:
		if w.Node == nil {
			return nil, fmt.Errorf("Remove requires node")
		}
		return Remove{Node: *w.Node}, nil
	default:
		return nil, fmt.Errorf("unknown patch op kind %q", w.Kind)
	}
}
