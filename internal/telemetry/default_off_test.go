//go:build crust_notelemetry

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DisabledBuildIsNop(t *testing.T) {
	assert.False(t, Enabled)
	assert.IsType(t, Nop{}, New())
}
