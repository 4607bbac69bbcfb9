package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/crust/internal/ir"
)

func TestEstimatePatchBytes(t *testing.T) {
	tests := []struct {
		name  string
		batch ir.PatchBatch
		want  int
	}{
		{"empty", nil, 0},
		{"set text", ir.PatchBatch{ir.SetText{Node: 1, Text: "hello"}}, 8 + 5},
		{"set attr", ir.PatchBatch{ir.SetAttr{Node: 1, Name: "class", Value: "root"}}, 8 + 5 + 4},
		{"insert", ir.PatchBatch{ir.Insert{Parent: 1, Child: 2}}, 16},
		{"remove", ir.PatchBatch{ir.Remove{Node: 3}}, 8},
		{"multibyte text counts bytes", ir.PatchBatch{ir.SetText{Node: 1, Text: "\u00e9"}}, 8 + 2},
		{"mixed", ir.PatchBatch{
			ir.Insert{Parent: 1, Child: 2},
			ir.SetText{Node: 2, Text: "ab"},
			ir.Remove{Node: 2},
		}, 16 + 10 + 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimatePatchBytes(tt.batch))
		})
	}
}
