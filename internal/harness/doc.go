// Package harness runs tick scenarios against the engine.
//
// A scenario drives an Engine tick by tick, applies every committed batch
// to a dom.Document, and checks assertions against the resulting document,
// dependency graph and telemetry. The harness also enforces a transactional
// policy the core does not: a tick that emits a forbidden op kind is rolled
// back instead of committed.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: greeting
//	description: "Two text writes and a derived label"
//	forbidden: [remove]
//	selectors:
//	  - id: 100
//	    reads: [1, 2]
//	    separator: " "
//	ticks:
//	  - steps:
//	      - set: { node: 1, text: hello }
//	      - set: { node: 2, text: world }
//	      - evaluate: { selector: 100, target: 3 }
//	      - phase: { name: layout, ms: 2 }
//	    end: commit
//	assertions:
//	  - { type: text, node: 3, value: "hello world" }
//	  - { type: tick_result, tick: 1, result: commit }
//
// Every step sets exactly one of set, attr, insert, remove, evaluate or
// phase. A tick ends with commit (the default), rollback or fallback.
//
// # Assertion Types
//
//   - text: node text equals value
//   - attr: attribute name of node equals value
//   - children: node children equal children, in order
//   - absent: node does not exist in the document
//   - tick_result: the tick-th tick (1-based) finished with result
//   - dependents: dependency graph dependents of node equal dependents
//   - mutations: the tick-th tick committed count ops
//
// # Validation
//
// Files are decoded with unknown-field rejection, unified with the CUE
// schema in schema.cue, and then checked for cross references (selector
// ids, op kinds) in Go.
//
// # Deterministic Output
//
// Traces carry tick ids, op kinds, fingerprints and selector outputs but no
// wall-clock durations, so RunWithGolden output is stable across machines.
package harness
