// Package telemetry records per-tick timing and work statistics.
//
// A Recorder keeps one in-flight accumulator and an append-only log of
// finalized TickTelemetry records. Two implementations share the Recorder
// interface:
//
//   - Recording measures and keeps everything
//   - Nop ignores every call and returns empty results
//
// New picks between them at build time: building with the
// crust_notelemetry tag selects Nop and sets Enabled to false, which lets
// callers such as selector.EvaluateWithRecorder drop their timing code
// entirely.
//
// Script time is never measured directly. It is the residual of the tick's
// wall time after style, layout and render, floored at zero because the
// measured phases can exceed wall time under timer skew.
package telemetry
