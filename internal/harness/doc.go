// Package harness runs object scenarios and compares their traces.
//
// A scenario declares classes in CUE, creates named objects, and drives them
// through a list of steps. Every emission, dispatch, and recorded method call
// lands in the result trace, which tests compare against golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: one_shot
//	description: "A one-shot connection fires once"
//	classes: [classes.cue]
//	objects:
//	  - {name: src, class: Emitter}
//	  - {name: dst, class: Receiver}
//	steps:
//	  - {op: connect, object: src, signal: fired, target: dst, method: on_fired, flags: [one_shot]}
//	  - {op: emit, object: src, signal: fired, args: [1]}
//	  - {op: emit, object: src, signal: fired, args: [2]}
//	  - {op: is_connected, object: src, signal: fired, target: dst, method: on_fired, expect: {ok: false}}
//	assertions:
//	  - {type: call_count, object: dst, method: on_fired, count: 1}
//
// Class paths are relative to the scenario file. Every method a scenario
// class declares is bound to a recorder that appends a "call" event to the
// trace, so signal delivery is observable without Go code.
//
// # Steps
//
// Each step names an op and the object it applies to. The optional expect
// clause checks the step's outcome:
//
//   - ok: boolean result of has_meta-style queries
//   - error: error kind, one of invalid_argument, not_found,
//     already_connected, dangling_reference
//   - value: returned value, compared approximately for floats
//   - count: numeric result (meta_list, edited_version, flush_deferred)
//
// A step that fails without an expected error fails the scenario.
//
// # Assertion Types
//
//   - call_count: a method ran on an object exactly N times
//   - call_order: "object.method" calls appear in the given order
//   - meta_count: an object ends with N metadata entries
//   - outcome_count: N dispatches ended with the given outcome
//
// # Deterministic Testing
//
// Each run gets a fresh class registry, a fresh object DB, and a
// testutil.DeterministicClock, so the same scenario always produces the same
// trace. A run can also be journaled to a store.Store for the trace command.
package harness
