// Package harness executes declarative store scenarios for conformance
// testing.
//
// A scenario describes a sequence of store operations and the assertions
// that must hold afterwards. The harness runs each scenario against a
// fresh store driven by a manual clock, so repeated runs produce identical
// traces suitable for golden file comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	guard:
//	  threshold: 3
//	steps:
//	  - op: addComponent
//	    component:
//	      id: c1
//	      type: service
//	      x: 100
//	      y: 100
//	    applied: true
//	  - op: advance
//	    ms: 300
//	assertions:
//	  - type: component_count
//	    count: 1
//	  - type: has_component
//	    id: c1
//
// Each step names a store operation: set/add/update/remove for each
// entity kind, batchUpdateComponents, updateCanvasData, selectComponent,
// beginConnection, undo, redo, reset, plus advance to move the clock.
// The optional applied field asserts the operation's outcome: true for
// applied, false for dropped or no-op. Steps without an applied field
// execute unchecked.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - component_count, connection_count, info_card_count: entity counts
//     in the final snapshot
//   - has_component, has_connection, has_info_card: presence by id;
//     absent: true inverts the check
//   - version: the store version after the final step
//   - selection: the selected component id, empty for none
//   - can_undo, can_redo: history availability
//   - history_depth: past and future stack depths
//   - guard_blocked: whether a guard cooldown is active
//
// # Deterministic Testing
//
// Every scenario runs against a fresh empty store with a manual clock
// starting at testutil.Epoch. Time moves only through explicit advance
// steps, so guard windows and cooldowns behave identically on every run
// and traces stay stable for golden comparison.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/basic-flow.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
