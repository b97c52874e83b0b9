package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easelhq/easel/internal/model"
)

// TestGoldenScenarios runs the canonical scenarios and compares their
// traces against golden files. These serve as regression fixtures for
// versioning, guard timing and cascade behavior.
//
// To regenerate after an intentional behavior change:
//
//	go test ./internal/harness -update
func TestGoldenScenarios(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "basic-flow", path: "testdata/scenarios/basic-flow.yaml"},
		{name: "guard-cooldown", path: "testdata/scenarios/guard-cooldown.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.name, scenario.Name)

			result, err := Run(scenario)
			require.NoError(t, err)
			require.True(t, result.Pass, "scenario failed: %v", result.Errors)

			require.NoError(t, AssertGolden(t, scenario.Name, result))
		})
	}
}

func TestRunWithGolden_BasicFlow(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/basic-flow.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestTraceSnapshot_CanonicalForm(t *testing.T) {
	// Golden files hold this exact serialization: sorted keys, compact,
	// no HTML escaping.
	snapshot := TraceSnapshot{
		ScenarioName: "tiny",
		Trace: []TraceEvent{
			{Op: OpUndo, Seq: 1, Applied: false, Version: 0},
		},
	}

	data, err := model.CanonicalJSON(snapshot)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"tiny","trace":[{"applied":false,"op":"undo","seq":1,"version":0}]}`,
		string(data))
}
