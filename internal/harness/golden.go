package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/stagehand-dev/stagehand/internal/element"
)

// TraceSnapshot captures every pass of a scenario execution for golden
// comparison. Serialized with canonical JSON so identical executions produce
// byte-identical snapshots.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Passes       []PassTrace `json:"passes"`
}

// toCanonicalMap converts the snapshot for element.MarshalCanonical.
//
// Fault locations are omitted: they embed per-run scratch directory paths
// and would make golden files nondeterministic.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	passes := make([]any, len(s.Passes))
	for i, pass := range s.Passes {
		trace := make([]any, len(pass.Elements))
		for j, el := range pass.Elements {
			trace[j] = el.ToCanonicalValue()
		}

		passMap := map[string]any{
			"state": string(pass.State),
			"trace": trace,
		}
		if pass.Fault != nil {
			passMap["fault"] = map[string]any{
				"kind":    pass.Fault.Kind,
				"message": pass.Fault.Message,
			}
		}
		passes[i] = passMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"passes":        passes,
	}
}

// RunWithGolden executes a scenario and compares its trace snapshot against
// a golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails; trace mismatch fails the
// test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-obtained result's trace snapshot against
// the golden file named scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Passes:       result.Passes,
	}

	traceJSON, err := element.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
