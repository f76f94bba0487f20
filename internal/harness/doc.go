// Package harness runs bridge conformance scenarios.
//
// A scenario compiles a CUE form, builds its control tree, binds a deep
// bridge to it, installs watch effects, and then mutates the tree step by
// step. Every watch run is recorded as an observation in the trace store,
// and the trace can be compared against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: add_remove
//	description: "Adding and removing a key keeps live readers quiet"
//	form: ../forms/profile.cue
//	session: test-session-add-remove
//	watches:
//	  - name: live_a
//	    path: a
//	    mode: live
//	    read: value
//	  - name: keys
//	    mode: snapshot
//	    read: children
//	steps:
//	  - op: add_control
//	    key: b
//	    control: { value: "B" }
//	    expect:
//	      - type: children
//	        keys: [a, b]
//	  - op: remove_control
//	    key: b
//	assertions:
//	  - type: effect_runs
//	    watch: live_a
//	    count: 1
//	  - type: snapshot
//	    expect: { value: { a: "A" } }
//
// # Watches
//
// A live watch resolves its path without tracking the children lists on
// the way, so it re-runs only when the target's own cells change. A
// snapshot watch tracks every children list along the path and re-runs
// whenever any of them gains or loses an entry.
//
// # Assertion Types
//
//   - snapshot: subset match on the snapshot record of the bridge at path
//   - effect_runs: exact run count of a watch, the initial run included
//   - children: keys (groups) or count (lists) of the bridge at path
//   - same_bridge / fresh_bridge: bridge identity against a remembered one
//   - subscribers: live subscription count of a control node
//
// # Deterministic Testing
//
// Scenarios execute with a deterministic clock and a fixed session id, so
// identical scenarios produce byte-identical traces. Each run records into
// an in-memory SQLite database unless a store is supplied.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/add_remove.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
