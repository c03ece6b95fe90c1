// Package harness runs the catalog rule set against scenario fixtures and
// checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	inventory:
//	  gitlab:
//	    projects:
//	      - path: phoenix/api
//	        files: {/README.md: "..."}
//	  marathon:
//	    apps:
//	      - id: /phoenix/api
//	        instances: [10.0.0.1:8080]
//	options:
//	  project_prefix: phoenix
//	  app_prefix: /phoenix/
//	assertions:
//	  - type: slot_equals
//	    component: phoenix/api
//	    slot: team
//	    value: phoenix
//
// # Assertion Types
//
//   - slot_equals: a single slot holds value
//   - items_equal: a multi slot holds values, in order
//   - component_count: the run built count components (optionally exactly components)
//   - fired_count: rule was invoked count times
//   - no_failures: no failure was recorded
//   - failure_count: count failures, filtered by rule and code when given
//   - trace_contains: some applied fact came from rule (and component, slot)
//   - trace_order: the first facts of rules appear in that order
//   - rounds: the run took count rounds
//
// A scenario that sets expect_error passes only when the run stops with that
// error code, for example NON_TERMINATION with a low max_rounds.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run id and its own in-memory provenance
// store. The trace is read back from that store in sequence order, and the
// canonical snapshot does not depend on scheduling, so golden files compare
// byte for byte.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/catalog.yaml")
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
