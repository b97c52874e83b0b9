package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boolPtr builds the Applied expectation for Go-literal scenarios.
func boolPtr(b bool) *bool { return &b }

// componentStep builds an addComponent step with an applied expectation.
func componentStep(id string, x, y float64, applied bool) Step {
	return Step{
		Op: OpAddComponent,
		Component: &ComponentSpec{
			ID:   id,
			Type: "service",
			X:    x,
			Y:    y,
		},
		Applied: boolPtr(applied),
	}
}

func TestRun_BasicMutationsApply(t *testing.T) {
	scenario := &Scenario{
		Name:        "basic_mutations",
		Description: "Adds apply and bump the version",
		Steps: []Step{
			componentStep("c1", 100, 100, true),
			componentStep("c2", 400, 100, true),
			{
				Op: OpAddConnection,
				Connection: &ConnectionSpec{
					ID:       "e1",
					SourceID: "c1",
					TargetID: "c2",
					Type:     "depends-on",
				},
				Applied: boolPtr(true),
			},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 2},
			{Type: AssertConnectionCount, Count: 1},
			{Type: AssertVersion, Version: 3},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	// One trace event per step, versions 1, 2, 3.
	require.Len(t, result.Trace, 3)
	for i, event := range result.Trace {
		assert.True(t, event.Applied)
		assert.Equal(t, i+1, event.Seq)
		assert.Equal(t, int64(i+1), event.Version)
	}

	assert.Equal(t, int64(3), result.Version)
	components, connections, infoCards := result.Final.Counts()
	assert.Equal(t, 2, components)
	assert.Equal(t, 1, connections)
	assert.Equal(t, 0, infoCards)
}

func TestRun_AppliedExpectationMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "expectation_mismatch",
		Description: "A wrong applied expectation fails the scenario",
		Steps: []Step{
			componentStep("c1", 0, 0, false), // actually applies
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "applied = true, want false")

	// The trace still records what actually happened.
	require.Len(t, result.Trace, 1)
	assert.True(t, result.Trace[0].Applied)
}

func TestRun_DuplicateAddIsDropped(t *testing.T) {
	scenario := &Scenario{
		Name:        "duplicate_add",
		Description: "A second add with the same id is a no-op",
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			componentStep("c1", 50, 50, false),
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 1},
			{Type: AssertVersion, Version: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.False(t, result.Trace[1].Applied)
	assert.Equal(t, int64(1), result.Trace[1].Version)

	// The original position survives.
	require.Len(t, result.Final.Components, 1)
	assert.Equal(t, 0.0, result.Final.Components[0].X)
}

func TestRun_UpdateOps(t *testing.T) {
	scenario := &Scenario{
		Name:        "updates",
		Description: "Patches change only the named fields",
		Steps: []Step{
			componentStep("c1", 100, 100, true),
			componentStep("c2", 400, 100, true),
			{
				Op: OpAddConnection,
				Connection: &ConnectionSpec{
					ID:       "e1",
					SourceID: "c1",
					TargetID: "c2",
					Type:     "depends-on",
				},
				Applied: boolPtr(true),
			},
			{
				Op:      OpUpdateComponent,
				ID:      "c1",
				Patch:   map[string]any{"x": 250, "layer": "app"},
				Applied: boolPtr(true),
			},
			{
				Op:      OpUpdateConnection,
				ID:      "e1",
				Patch:   map[string]any{"label": "LB"},
				Applied: boolPtr(true),
			},
			{
				Op:       OpAddInfoCard,
				InfoCard: &InfoCardSpec{ID: "n1", X: 10, Y: 10, Content: "note"},
				Applied:  boolPtr(true),
			},
			{
				Op:      OpUpdateInfoCard,
				ID:      "n1",
				Patch:   map[string]any{"content": "annotated"},
				Applied: boolPtr(true),
			},
		},
		Assertions: []Assertion{
			{Type: AssertVersion, Version: 7},
			{Type: AssertHasInfoCard, ID: "n1"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Final.Components, 2)
	assert.Equal(t, 250.0, result.Final.Components[0].X)
	assert.Equal(t, 100.0, result.Final.Components[0].Y)
	assert.Equal(t, "app", result.Final.Components[0].Layer)

	require.Len(t, result.Final.Connections, 1)
	assert.Equal(t, "LB", result.Final.Connections[0].Label)

	require.Len(t, result.Final.InfoCards, 1)
	assert.Equal(t, "annotated", result.Final.InfoCards[0].Content)
}

func TestRun_RemoveCascades(t *testing.T) {
	scenario := &Scenario{
		Name:        "remove_cascades",
		Description: "Removing a component removes its connections and clears the selection",
		Steps: []Step{
			componentStep("c1", 100, 100, true),
			componentStep("c2", 400, 100, true),
			{
				Op: OpAddConnection,
				Connection: &ConnectionSpec{
					ID:       "e1",
					SourceID: "c1",
					TargetID: "c2",
				},
				Applied: boolPtr(true),
			},
			{Op: OpSelectComponent, ID: "c1", Applied: boolPtr(true)},
			{Op: OpBeginConnection, ID: "c2", Applied: boolPtr(true)},
			{Op: OpRemoveComponent, ID: "c1", Applied: boolPtr(true)},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 1},
			{Type: AssertConnectionCount, Count: 0},
			{Type: AssertHasComponent, ID: "c1", Absent: true},
			{Type: AssertHasConnection, ID: "e1", Absent: true},
			{Type: AssertSelection}, // cleared by the cascade
			{Type: AssertVersion, Version: 4},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// Transient references never bump the version.
	assert.Equal(t, int64(3), result.Trace[3].Version)
	assert.Equal(t, int64(3), result.Trace[4].Version)
}

func TestRun_SetCollections(t *testing.T) {
	scenario := &Scenario{
		Name:        "set_collections",
		Description: "Set ops replace whole collections and cascade orphans",
		Steps: []Step{
			{
				Op: OpSetComponents,
				Components: []ComponentSpec{
					{ID: "c1", Type: "service", X: 100, Y: 100},
					{ID: "c2", Type: "database", X: 400, Y: 100},
				},
				Applied: boolPtr(true),
			},
			{
				Op: OpSetConnections,
				Connections: []ConnectionSpec{
					{ID: "e1", SourceID: "c1", TargetID: "c2"},
				},
				Applied: boolPtr(true),
			},
			// Replacing with identical content is a no-op.
			{
				Op: OpSetComponents,
				Components: []ComponentSpec{
					{ID: "c1", Type: "service", X: 100, Y: 100},
					{ID: "c2", Type: "database", X: 400, Y: 100},
				},
				Applied: boolPtr(false),
			},
			// Dropping c1 orphans e1 in the same commit.
			{
				Op: OpSetComponents,
				Components: []ComponentSpec{
					{ID: "c2", Type: "database", X: 400, Y: 100},
				},
				Applied: boolPtr(true),
			},
			{
				Op:        OpSetInfoCards,
				InfoCards: []InfoCardSpec{{ID: "n1", X: 10, Y: 10, Content: "note"}},
				Applied:   boolPtr(true),
			},
			// An omitted list clears the collection.
			{Op: OpSetInfoCards, Applied: boolPtr(true)},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 1},
			{Type: AssertConnectionCount, Count: 0},
			{Type: AssertInfoCardCount, Count: 0},
			{Type: AssertHasComponent, ID: "c1", Absent: true},
			{Type: AssertHasConnection, ID: "e1", Absent: true},
			{Type: AssertVersion, Version: 5},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// The identical replacement left the version alone.
	assert.Equal(t, int64(2), result.Trace[2].Version)
}

func TestRun_BatchUpdate(t *testing.T) {
	scenario := &Scenario{
		Name:        "batch_update",
		Description: "Batched patches land in one commit and undo as one step",
		Steps: []Step{
			{
				Op: OpSetComponents,
				Components: []ComponentSpec{
					{ID: "c1", Type: "service"},
					{ID: "c2", Type: "service"},
				},
				Applied: boolPtr(true),
			},
			{
				Op: OpBatchUpdateComponents,
				Patches: map[string]map[string]any{
					"c1":    {"x": 50, "y": 25},
					"c2":    {"layer": "app"},
					"ghost": {"x": 1}, // unknown ids are skipped
				},
				Applied: boolPtr(true),
			},
			// Re-applying identical patches changes nothing.
			{
				Op: OpBatchUpdateComponents,
				Patches: map[string]map[string]any{
					"c1": {"x": 50},
				},
				Applied: boolPtr(false),
			},
			{Op: OpUndo, Applied: boolPtr(true)},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 2},
			{Type: AssertVersion, Version: 3},
			{Type: AssertHistoryDepth, Past: 1, Future: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// One undo reverted the whole batch.
	for _, c := range result.Final.Components {
		assert.Zero(t, c.X, "component %s", c.ID)
		assert.Empty(t, c.Layer, "component %s", c.ID)
	}
}

func TestRun_UpdateCanvasData(t *testing.T) {
	scenario := &Scenario{
		Name:        "update_canvas",
		Description: "Partial canvas updates touch only the sections they name",
		Steps: []Step{
			{
				Op: OpSetComponents,
				Components: []ComponentSpec{
					{ID: "c1", Type: "service", X: 100, Y: 100},
					{ID: "c2", Type: "database", X: 400, Y: 100},
				},
				Applied: boolPtr(true),
			},
			{
				Op:          OpSetConnections,
				Connections: []ConnectionSpec{{ID: "e1", SourceID: "c1", TargetID: "c2"}},
				Applied:     boolPtr(true),
			},
			// Components replace and orphan e1; the info card section is
			// untouched.
			{
				Op: OpUpdateCanvasData,
				Canvas: &CanvasSpec{
					Components: []ComponentSpec{{ID: "c1", Type: "service", X: 100, Y: 100}},
					Metadata:   map[string]any{"title": "payments"},
				},
				Applied: boolPtr(true),
			},
			{
				Op: OpUpdateCanvasData,
				Canvas: &CanvasSpec{
					Grid:   &GridSpec{Spacing: 25, Visible: true, SnapEnabled: true},
					Layers: []LayerSpec{{ID: "base", Name: "Base", Visible: true}},
				},
				Applied: boolPtr(true),
			},
			// Identical grid and layers change nothing.
			{
				Op: OpUpdateCanvasData,
				Canvas: &CanvasSpec{
					Grid:   &GridSpec{Spacing: 25, Visible: true, SnapEnabled: true},
					Layers: []LayerSpec{{ID: "base", Name: "Base", Visible: true}},
				},
				Applied: boolPtr(false),
			},
			// An empty payload names no sections at all.
			{Op: OpUpdateCanvasData, Canvas: &CanvasSpec{}, Applied: boolPtr(false)},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 1},
			{Type: AssertConnectionCount, Count: 0},
			{Type: AssertHasComponent, ID: "c1"},
			{Type: AssertHasConnection, ID: "e1", Absent: true},
			{Type: AssertVersion, Version: 4},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SelectUnknownComponentIsNoop(t *testing.T) {
	scenario := &Scenario{
		Name:        "select_unknown",
		Description: "Selecting a missing component does not apply",
		Steps: []Step{
			{Op: OpSelectComponent, ID: "ghost", Applied: boolPtr(false)},
		},
		Assertions: []Assertion{
			{Type: AssertSelection},
			{Type: AssertVersion, Version: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UndoRedoAcrossSteps(t *testing.T) {
	scenario := &Scenario{
		Name:        "undo_redo",
		Description: "Undo and redo walk the history and bump the version",
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			componentStep("c2", 100, 0, true),
			{Op: OpUndo, Applied: boolPtr(true)},
			{Op: OpUndo, Applied: boolPtr(true)},
			{Op: OpRedo, Applied: boolPtr(true)},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 1},
			{Type: AssertHasComponent, ID: "c1"},
			{Type: AssertHasComponent, ID: "c2", Absent: true},
			{Type: AssertVersion, Version: 5},
			{Type: AssertCanUndo, Expect: true},
			{Type: AssertCanRedo, Expect: true},
			{Type: AssertHistoryDepth, Past: 1, Future: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UndoPastBottomIsNoop(t *testing.T) {
	scenario := &Scenario{
		Name:        "undo_bottom",
		Description: "Undo with an empty past does not apply",
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			{Op: OpUndo, Applied: boolPtr(true)},
			{Op: OpUndo, Applied: boolPtr(false)},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 0},
			{Type: AssertVersion, Version: 2},
			{Type: AssertCanUndo, Expect: false},
			{Type: AssertCanRedo, Expect: true},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_HistoryLimitOverride(t *testing.T) {
	scenario := &Scenario{
		Name:         "history_limit",
		Description:  "A capped history forgets the oldest undo state",
		HistoryLimit: 1,
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			componentStep("c2", 100, 0, true),
			componentStep("c3", 200, 0, true),
			{Op: OpUndo, Applied: boolPtr(true)},
			{Op: OpUndo, Applied: boolPtr(false)}, // oldest state was evicted
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 2},
			{Type: AssertHasComponent, ID: "c3", Absent: true},
			{Type: AssertVersion, Version: 4},
			{Type: AssertCanUndo, Expect: false},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_GuardRateLimit(t *testing.T) {
	scenario := &Scenario{
		Name:        "guard_rate",
		Description: "The third burst mutation trips the rate guard",
		Guard:       &GuardSpec{Threshold: 2},
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			componentStep("c2", 100, 0, true),
			componentStep("c3", 200, 0, false), // rate trip
			componentStep("c4", 300, 0, false), // cooldown
			{Op: OpAdvance, MS: 300},
			componentStep("c5", 400, 0, true), // cooldown lifted
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 3},
			{Type: AssertHasComponent, ID: "c3", Absent: true},
			{Type: AssertHasComponent, ID: "c5"},
			{Type: AssertVersion, Version: 3},
			{Type: AssertGuardBlocked, Expect: false},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// Dropped attempts leave the version where it was.
	assert.Equal(t, int64(2), result.Trace[2].Version)
	assert.Equal(t, int64(2), result.Trace[3].Version)
}

func TestRun_GuardBlockedAssertion(t *testing.T) {
	scenario := &Scenario{
		Name:        "guard_blocked",
		Description: "The guard stays blocked until the cooldown elapses",
		Guard:       &GuardSpec{Threshold: 1},
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			componentStep("c2", 100, 0, false),
		},
		Assertions: []Assertion{
			{Type: AssertGuardBlocked, Expect: true},
			{Type: AssertComponentCount, Count: 1},
			{Type: AssertVersion, Version: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_GuardLoopDetection(t *testing.T) {
	// The same attempt six times in a row forms a period-1 loop. The
	// loop cooldown is escalated (250ms x 2), so a 300ms advance is not
	// enough to lift it.
	ghost := Step{Op: OpRemoveComponent, ID: "ghost", Applied: boolPtr(false)}

	scenario := &Scenario{
		Name:        "guard_loop",
		Description: "A repeating attempt trips the loop detector with an escalated cooldown",
		Steps: []Step{
			ghost, ghost, ghost, ghost, ghost,
			ghost, // sixth repeat trips the detector
			{Op: OpAdvance, MS: 300},
			ghost, // still cooling down
			{Op: OpAdvance, MS: 250},
			ghost, // cooldown lifted, plain no-op again
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 0},
			{Type: AssertVersion, Version: 0},
			{Type: AssertGuardBlocked, Expect: false},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ResetRestoresPristine(t *testing.T) {
	scenario := &Scenario{
		Name:        "reset",
		Description: "Reset clears state, history and version",
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			componentStep("c2", 100, 0, true),
			{Op: OpSelectComponent, ID: "c1", Applied: boolPtr(true)},
			{Op: OpReset},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 0},
			{Type: AssertVersion, Version: 0},
			{Type: AssertSelection},
			{Type: AssertCanUndo, Expect: false},
			{Type: AssertCanRedo, Expect: false},
			{Type: AssertGuardBlocked, Expect: false},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// The reset event reports the zeroed version.
	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, OpReset, last.Op)
	assert.Equal(t, int64(0), last.Version)
}

func TestRun_StepErrorAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_patch",
		Description: "An unknown patch field aborts the run",
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			{Op: OpUpdateComponent, ID: "c1", Patch: map[string]any{"z": 10}},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), `unknown component patch field "z"`)
	assert.Contains(t, err.Error(), "steps[1]")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "deterministic",
		Description: "Repeated runs produce identical traces",
		Guard:       &GuardSpec{Threshold: 2},
		Steps: []Step{
			componentStep("c1", 0, 0, true),
			componentStep("c2", 100, 0, true),
			componentStep("c3", 200, 0, false),
			{Op: OpAdvance, MS: 300},
			componentStep("c4", 300, 0, true),
			{Op: OpUndo, Applied: boolPtr(true)},
		},
		Assertions: []Assertion{
			{Type: AssertComponentCount, Count: 2},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Final, second.Final)
	assert.Equal(t, first.Version, second.Version)
}
