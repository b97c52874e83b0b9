package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/easelhq/easel/internal/model"
)

// TraceSnapshot captures the trace of a scenario execution for golden
// comparison. Serialized canonically, so byte equality is meaningful.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares the trace against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files are the source of truth for expected trace behavior; any
// change to versioning, guard timing or cascade rules shows up as a
// golden diff.
//
// Returns an error if scenario execution fails. Trace mismatches fail
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's trace against the golden file for
// scenarioName. Useful when the caller has already run the scenario and
// checked the result.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}

	traceJSON, err := model.CanonicalJSON(snapshot)
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
