package telemetry

import "github.com/roach88/crust/internal/ir"

// nodeIDBytes is the fixed cost charged for every identity field.
const nodeIDBytes = 8

// EstimatePatchBytes approximates the payload size of a batch: 8 bytes per
// identity field plus the byte length of every text, name and value field.
// It is a telemetry estimate, not a serialization size.
func EstimatePatchBytes(batch ir.PatchBatch) int {
	total := 0
	for _, op := range batch {
		switch o := op.(type) {
		case ir.SetText:
			total += nodeIDBytes + len(o.Text)
		case ir.SetAttr:
			// One identity field, like SetText; the name is charged by length.
			total += nodeIDBytes + len(o.Name) + len(o.Value)
		case ir.Insert:
			total += 2 * nodeIDBytes
		case ir.Remove:
			total += nodeIDBytes
		}
	}
	return total
}
