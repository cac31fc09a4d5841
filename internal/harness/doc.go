// Package harness runs conformance scenarios: protocol documents executed on
// the simulated deck, checked against expected outcomes, assertions and
// golden traces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: engage_and_profile
//	description: "What this scenario validates"
//	protocol: protocols/pcr.json      # or an inline document: {...}
//	schema_version: 4                 # optional override
//	faults:
//	  - target: magneticModuleV2@1
//	    op: engage
//	    error: "magnet jammed"
//	expect:
//	  error: HARDWARE_FAILURE         # omit to expect success
//	  halted_at: 1
//	  calls:
//	    - {target: deck, op: delay}
//	assertions:
//	  - type: call_contains
//	    call: thermocyclerModuleV1@7.executeProfile
//	    args: {repetitions: 1}
//	  - type: journal_status
//	    seq: 1
//	    status: failed
//
// # Assertion Types
//
//   - call_contains: a call to target.op exists whose args include the given ones
//   - call_order: calls first appear in the given order
//   - call_count: target.op was called exactly N times
//   - journal_status: the journaled run (or command seq) has the given status
//
// # Deterministic Testing
//
// Every scenario runs with:
//   - A fresh simulated deck that never sleeps
//   - An in-memory SQLite journal
//   - The scenario name as run id (testutil.FixedRunIDGenerator)
//   - A deterministic wall clock (testutil.DeterministicClock)
//
// so the trace and journal are identical across runs and can be compared
// byte for byte with golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/pcr.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
