// Package engine implements the tick runtime.
//
// An Engine owns a value store, a dependency graph, a Scheduler and a
// telemetry Recorder. Mutations made between BeginTick and Commit are
// written to the store immediately and queued as patch ops; Commit drains
// the queue into one ordered PatchBatch for the host to apply.
//
// Tick lifecycle:
//
//	Idle --BeginTick--> Active --Commit/AbortTick--> Idle
//
// BeginTick while Active fails with ErrTickAlreadyStarted. Enqueueing,
// committing or aborting while Idle fails with ErrTickNotStarted. State
// errors never change state.
//
// The engine is single-owner and synchronous. Store and Graph carry no
// locking; hosts that share an engine across goroutines wrap it in Locked.
//
// Selectors are evaluated against the engine's store and graph with
// Evaluate. Evaluation registers dependencies but never recomputes or
// invalidates dependents.
package engine
