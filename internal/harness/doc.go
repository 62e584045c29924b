// Package harness provides the conformance testing framework for the
// Stagehand script runtime.
//
// The harness executes an unmodified application script inside a fabricated
// runtime environment - no network service is started, media storage is
// in-memory, and the process-wide runtime singleton is installed for the
// duration of one scenario and torn down afterwards so no state leaks between
// tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: counter_increments
//	description: "Button click advances the session counter"
//	script: |
//	  let n = st.session.has("count") ? st.session.get("count") : 0
//	  if (st.button("increment")) {
//	      n = n + 1
//	      st.session.set("count", n)
//	  }
//	  st.write("count: " + n)
//	interactions:
//	  - click: increment
//	assertions:
//	  - type: element_contains
//	    kind: write
//	    text: "count: 1"
//	  - type: session_state
//	    key: count
//	    value: 1
//
// A scenario provides its script either inline (`script`, dedented before
// execution) or as a fixture file name (`script_file`, resolved against the
// configured fixture directory). Each interaction queues a widget click and
// triggers one additional pass against the same session.
//
// # Assertion Types
//
// The following assertion types are supported, all evaluated against the
// final pass:
//
//   - element_contains: an element of the kind (with the text, if given) exists
//   - element_order: element kinds appear in the given relative order
//   - element_count: elements of the kind appear exactly N times
//   - fault: the pass faulted with the kind (and message, if given)
//   - session_state: a session key holds the expected value
//
// Assertions may be omitted when a scenario is exercised purely through
// golden trace comparison.
//
// # Deterministic Testing
//
// Element sequence numbers restart at 1 each pass, media handles are
// content-addressed, and each scenario runs against a fresh in-memory session
// store, so identical scenarios produce identical traces across runs. Golden
// files under testdata/golden snapshot those traces in canonical JSON.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//
// Or drive a script directly from a test, mirroring production setup:
//
//	h := harness.New(t)
//	runner := h.ScriptFromString(t, "app.st.js", `st.write("hello")`)
//	res, err := runner.Run(context.Background())
package harness
