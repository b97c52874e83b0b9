package harness

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/easelhq/easel/internal/guard"
	"github.com/easelhq/easel/internal/model"
	"github.com/easelhq/easel/internal/store"
	"github.com/easelhq/easel/internal/testutil"
)

// harnessSource labels scenario mutations in change notifications and
// guard diagnostics.
const harnessSource = "harness"

// Harness executes one scenario against a fresh store.
type Harness struct {
	store  *store.Store
	clock  *testutil.ManualClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh empty store for isolation, driven by
// a manual clock starting at testutil.Epoch. Time only moves through
// explicit advance steps, so guard behavior is reproducible.
//
// Execution flow:
//  1. Build a store with the scenario's guard and history overrides
//  2. Execute steps in order, recording one trace event per step
//  3. Check each step's applied expectation, when present
//  4. Evaluate assertions against the final state
//
// Run returns an error only for malformed steps (unknown op, bad patch
// field). Expectation and assertion failures are reported through the
// result, never as errors.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewManualClock(time.Time{})

	opts := []store.Option{
		store.WithClock(clock.Now),
		// Suppress logs during scenario runs.
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.Guard != nil {
		opts = append(opts, store.WithGuard(scenario.Guard.toConfig()))
	}
	if scenario.HistoryLimit > 0 {
		opts = append(opts, store.WithHistoryLimit(scenario.HistoryLimit))
	}
	if scenario.GridSize > 0 {
		opts = append(opts, store.WithGridSize(scenario.GridSize))
	}

	h := &Harness{
		store:  store.New(opts...),
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		applied, err := h.executeStep(step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}

		seq := i + 1
		result.AddTrace(step.Op, seq, applied, h.store.Version())

		if step.Applied != nil && applied != *step.Applied {
			result.AddError(fmt.Sprintf("steps[%d] (%s): applied = %v, want %v",
				i, step.Op, applied, *step.Applied))
		}

		h.logger.Debug("step executed",
			"seq", seq,
			"op", step.Op,
			"applied", applied,
			"version", h.store.Version(),
		)
	}

	result.Final = h.store.Snapshot()
	result.Version = h.store.Version()

	actx := &AssertionContext{Store: h.store}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep dispatches one step to the store and reports whether the
// operation applied. Errors indicate a malformed step, not a dropped
// mutation.
func (h *Harness) executeStep(step Step) (bool, error) {
	src := store.WithSource(harnessSource)

	switch step.Op {
	case OpSetComponents:
		return h.store.SetComponents(componentList(step.Components), src), nil

	case OpSetConnections:
		return h.store.SetConnections(connectionList(step.Connections), src), nil

	case OpSetInfoCards:
		return h.store.SetInfoCards(infoCardList(step.InfoCards), src), nil

	case OpAddComponent:
		if step.Component == nil {
			return false, fmt.Errorf("component spec is required")
		}
		return h.store.AddComponent(step.Component.toModel(), src), nil

	case OpUpdateComponent:
		patch, err := componentPatch(step.Patch)
		if err != nil {
			return false, err
		}
		return h.store.UpdateComponent(step.ID, patch, src), nil

	case OpRemoveComponent:
		return h.store.RemoveComponent(step.ID, src), nil

	case OpAddConnection:
		if step.Connection == nil {
			return false, fmt.Errorf("connection spec is required")
		}
		return h.store.AddConnection(step.Connection.toModel(), src), nil

	case OpUpdateConnection:
		patch, err := connectionPatch(step.Patch)
		if err != nil {
			return false, err
		}
		return h.store.UpdateConnection(step.ID, patch, src), nil

	case OpRemoveConnection:
		return h.store.RemoveConnection(step.ID, src), nil

	case OpAddInfoCard:
		if step.InfoCard == nil {
			return false, fmt.Errorf("info_card spec is required")
		}
		return h.store.AddInfoCard(step.InfoCard.toModel(), src), nil

	case OpUpdateInfoCard:
		patch, err := infoCardPatch(step.Patch)
		if err != nil {
			return false, err
		}
		return h.store.UpdateInfoCard(step.ID, patch, src), nil

	case OpRemoveInfoCard:
		return h.store.RemoveInfoCard(step.ID, src), nil

	case OpBatchUpdateComponents:
		patches := make(map[string]store.ComponentPatch, len(step.Patches))
		for id, fields := range step.Patches {
			patch, err := componentPatch(fields)
			if err != nil {
				return false, fmt.Errorf("patches[%q]: %w", id, err)
			}
			patches[id] = patch
		}
		return h.store.BatchUpdateComponents(patches, src), nil

	case OpUpdateCanvasData:
		if step.Canvas == nil {
			return false, fmt.Errorf("canvas spec is required")
		}
		return h.store.UpdateCanvasData(step.Canvas.toPartial(), src), nil

	case OpSelectComponent:
		return h.store.Select(step.ID, src), nil

	case OpBeginConnection:
		return h.store.BeginConnection(step.ID, src), nil

	case OpUndo:
		return h.store.Undo(src), nil

	case OpRedo:
		return h.store.Redo(src), nil

	case OpReset:
		h.store.Reset()
		return true, nil

	case OpAdvance:
		h.clock.Advance(time.Duration(step.MS) * time.Millisecond)
		return true, nil

	default:
		return false, fmt.Errorf("unknown op %q", step.Op)
	}
}

// toConfig maps the YAML guard overrides onto a guard.Config. Zero
// fields stay zero; guard.New substitutes its defaults for them.
func (g *GuardSpec) toConfig() guard.Config {
	return guard.Config{
		Window:     time.Duration(g.WindowMS) * time.Millisecond,
		Threshold:  g.Threshold,
		Cooldown:   time.Duration(g.CooldownMS) * time.Millisecond,
		LoopFactor: g.LoopFactor,
	}
}

// toPartial maps a canvas spec onto a store.Partial, preserving the
// nil/empty distinction that decides whether a section is untouched or
// cleared.
func (c *CanvasSpec) toPartial() store.Partial {
	p := store.Partial{
		Components:  componentList(c.Components),
		Connections: connectionList(c.Connections),
		InfoCards:   infoCardList(c.InfoCards),
		Layers:      layerList(c.Layers),
		Metadata:    c.Metadata,
	}
	if c.Grid != nil {
		g := c.Grid.toModel()
		p.Grid = &g
	}
	return p
}

func componentList(specs []ComponentSpec) []model.Component {
	if specs == nil {
		return nil
	}
	out := make([]model.Component, len(specs))
	for i, s := range specs {
		out[i] = s.toModel()
	}
	return out
}

func connectionList(specs []ConnectionSpec) []model.Connection {
	if specs == nil {
		return nil
	}
	out := make([]model.Connection, len(specs))
	for i, s := range specs {
		out[i] = s.toModel()
	}
	return out
}

func infoCardList(specs []InfoCardSpec) []model.InfoCard {
	if specs == nil {
		return nil
	}
	out := make([]model.InfoCard, len(specs))
	for i, s := range specs {
		out[i] = s.toModel()
	}
	return out
}

func layerList(specs []LayerSpec) []model.Layer {
	if specs == nil {
		return nil
	}
	out := make([]model.Layer, len(specs))
	for i, s := range specs {
		out[i] = s.toModel()
	}
	return out
}

// componentPatch converts YAML patch fields to a store.ComponentPatch.
func componentPatch(fields map[string]any) (store.ComponentPatch, error) {
	var p store.ComponentPatch
	for key, val := range fields {
		switch key {
		case "type":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.type: %w", err)
			}
			p.Type = &s
		case "x":
			f, err := toFloat(val)
			if err != nil {
				return p, fmt.Errorf("patch.x: %w", err)
			}
			p.X = &f
		case "y":
			f, err := toFloat(val)
			if err != nil {
				return p, fmt.Errorf("patch.y: %w", err)
			}
			p.Y = &f
		case "width":
			f, err := toFloat(val)
			if err != nil {
				return p, fmt.Errorf("patch.width: %w", err)
			}
			p.Width = &f
		case "height":
			f, err := toFloat(val)
			if err != nil {
				return p, fmt.Errorf("patch.height: %w", err)
			}
			p.Height = &f
		case "layer":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.layer: %w", err)
			}
			p.Layer = &s
		case "group":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.group: %w", err)
			}
			p.Group = &s
		case "properties":
			m, err := toProperties(val)
			if err != nil {
				return p, fmt.Errorf("patch.properties: %w", err)
			}
			p.Properties = m
		default:
			return p, fmt.Errorf("unknown component patch field %q", key)
		}
	}
	return p, nil
}

// connectionPatch converts YAML patch fields to a store.ConnectionPatch.
func connectionPatch(fields map[string]any) (store.ConnectionPatch, error) {
	var p store.ConnectionPatch
	for key, val := range fields {
		switch key {
		case "source_id":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.source_id: %w", err)
			}
			p.SourceID = &s
		case "target_id":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.target_id: %w", err)
			}
			p.TargetID = &s
		case "type":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.type: %w", err)
			}
			p.Type = &s
		case "label":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.label: %w", err)
			}
			p.Label = &s
		case "style":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.style: %w", err)
			}
			p.Style = &s
		case "direction":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.direction: %w", err)
			}
			d := model.Direction(s)
			p.Direction = &d
		case "properties":
			m, err := toProperties(val)
			if err != nil {
				return p, fmt.Errorf("patch.properties: %w", err)
			}
			p.Properties = m
		default:
			return p, fmt.Errorf("unknown connection patch field %q", key)
		}
	}
	return p, nil
}

// infoCardPatch converts YAML patch fields to a store.InfoCardPatch.
func infoCardPatch(fields map[string]any) (store.InfoCardPatch, error) {
	var p store.InfoCardPatch
	for key, val := range fields {
		switch key {
		case "x":
			f, err := toFloat(val)
			if err != nil {
				return p, fmt.Errorf("patch.x: %w", err)
			}
			p.X = &f
		case "y":
			f, err := toFloat(val)
			if err != nil {
				return p, fmt.Errorf("patch.y: %w", err)
			}
			p.Y = &f
		case "content":
			s, err := toString(val)
			if err != nil {
				return p, fmt.Errorf("patch.content: %w", err)
			}
			p.Content = &s
		default:
			return p, fmt.Errorf("unknown info card patch field %q", key)
		}
	}
	return p, nil
}

// toFloat coerces YAML-parsed numbers. YAML decodes whole numbers as int,
// everything else as float64.
func toFloat(val any) (float64, error) {
	switch v := val.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", val)
	}
}

func toString(val any) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", val)
	}
	return s, nil
}

func toProperties(val any) (map[string]any, error) {
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected mapping, got %T", val)
	}
	return m, nil
}
