//go:build crust_notelemetry

package telemetry

// Enabled reports whether this build records telemetry.
const Enabled = false

// New returns the build's default Recorder: Nop. Options are ignored.
func New(opts ...Option) Recorder {
	return Nop{}
}
