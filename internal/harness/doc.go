// Package harness runs reactive-state scenarios and checks their traces.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: observer-bubbling
//	description: setting a leaf notifies its ancestors
//	state: {user: {name: John, age: 30}}   # or state_file: state.cue
//	flush_interval_ms: 0
//	observers:
//	  - {kind: notify, path: user.name}
//	  - {kind: change, path: x, cancel: true}
//	  - {kind: change, path: y, replace: 42}
//	steps:
//	  - {set: user.name, value: Jane}
//	  - {delete: user.age}
//	  - {call: items, method: splice, args: {start: 1, delete_count: 1, items: [99]}}
//	  - {tick: 1}
//	  - {flush: true}
//	assertions:
//	  - {type: notified, path: user.name, count: 1}
//	  - {type: not_notified, path: user.age}
//	  - {type: canceled, path: x}
//	  - {type: final_value, path: user.name, expect: Jane}
//	  - {type: notify_order, paths: [user.name, user]}
//
// state_file is resolved relative to the scenario file and may be JSON,
// YAML or CUE (see package loader).
//
// # Trace
//
// Every change observer call is recorded as a "change" event, or
// "canceled" when that observer canceled the mutation. Every notify
// delivery is recorded as a "notify" event carrying the value read back at
// delivery time. Golden files hold the canonical JSON of
// {scenario_name, trace}.
//
// # Deterministic Testing
//
// Periodic flushes run on a testutil.ManualScheduler that only advances on
// tick steps, and sequence numbers come from a fresh logical clock, so the
// same scenario always yields the same trace.
package harness
