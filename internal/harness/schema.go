package harness

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// SchemaError is a scenario file that does not satisfy schema.cue.
type SchemaError struct {
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// validateSchema unifies the YAML document in data with #Scenario.
func validateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	f, err := cueyaml.Extract(filename, data)
	if err != nil {
		return formatCUEError(err, filename, cue.Value{})
	}
	doc := ctx.BuildFile(f)
	if err := doc.Err(); err != nil {
		return formatCUEError(err, filename, cue.Value{})
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, filename, doc)
	}
	return nil
}

// formatCUEError turns a CUE error into a SchemaError positioned in the
// scenario file. The first position inside filename wins. Errors that
// carry none, such as an empty disjunction, are located through their
// value path in doc.
func formatCUEError(err error, filename string, doc cue.Value) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	se := &SchemaError{Message: strings.TrimSpace(errors.Details(err, nil))}
	var fallback token.Pos
	for _, e := range errs {
		for _, pos := range errors.Positions(e) {
			if !pos.IsValid() {
				continue
			}
			if pos.Filename() == filename {
				se.Pos = pos
				return se
			}
			if !fallback.IsValid() {
				fallback = pos
			}
		}
	}

	if doc.Exists() {
		for _, e := range errs {
			if pos := lookupPos(doc, e.Path()); pos.IsValid() {
				se.Pos = pos
				return se
			}
		}
	}

	if !fallback.IsValid() {
		return err
	}
	se.Pos = fallback
	return se
}

// lookupPos returns the position of the deepest value along path that
// exists in doc.
func lookupPos(doc cue.Value, path []string) token.Pos {
	for n := len(path); n > 0; n-- {
		sels := make([]cue.Selector, n)
		for i, label := range path[:n] {
			if idx, err := strconv.Atoi(label); err == nil {
				sels[i] = cue.Index(idx)
			} else {
				sels[i] = cue.Str(label)
			}
		}
		if v := doc.LookupPath(cue.MakePath(sels...)); v.Exists() && v.Pos().IsValid() {
			return v.Pos()
		}
	}
	return token.NoPos
}
