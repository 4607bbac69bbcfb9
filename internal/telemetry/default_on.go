//go:build !crust_notelemetry

package telemetry

// Enabled reports whether this build records telemetry.
const Enabled = true

// New returns the build's default Recorder: a Recording.
func New(opts ...Option) Recorder {
	return NewRecording(opts...)
}
