package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/easelhq/easel/internal/model"
)

// Scenario defines a conformance test scenario. Scenarios exercise the
// store through a sequence of operations and assert on the resulting
// trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name for trace comparison.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Guard overrides guard tuning for this scenario. Nil keeps the
	// guard defaults.
	Guard *GuardSpec `yaml:"guard,omitempty"`

	// HistoryLimit overrides the undo/redo depth. Zero keeps the
	// default.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// GridSize overrides the info-card spatial bucket size. Zero keeps
	// the default.
	GridSize float64 `yaml:"grid_size,omitempty"`

	// Steps contains the operations to execute, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state once all steps have run.
	Assertions []Assertion `yaml:"assertions"`
}

// GuardSpec carries per-scenario guard tuning. Zero fields keep the
// guard package defaults, matching the zero-field behavior of the guard
// itself.
type GuardSpec struct {
	WindowMS   int     `yaml:"window_ms,omitempty"`
	Threshold  int     `yaml:"threshold,omitempty"`
	CooldownMS int     `yaml:"cooldown_ms,omitempty"`
	LoopFactor float64 `yaml:"loop_factor,omitempty"`
}

// Step is one store operation in a scenario. Op selects the operation;
// the remaining fields carry its arguments. Which fields are required
// depends on the op, enforced by LoadScenario.
type Step struct {
	// Op names the store operation to invoke.
	Op string `yaml:"op"`

	// Component is the entity for addComponent.
	Component *ComponentSpec `yaml:"component,omitempty"`

	// Connection is the entity for addConnection.
	Connection *ConnectionSpec `yaml:"connection,omitempty"`

	// InfoCard is the entity for addInfoCard.
	InfoCard *InfoCardSpec `yaml:"info_card,omitempty"`

	// Components, Connections and InfoCards are the replacement
	// collections for setComponents, setConnections and setInfoCards. An
	// omitted or empty list clears the collection.
	Components  []ComponentSpec  `yaml:"components,omitempty"`
	Connections []ConnectionSpec `yaml:"connections,omitempty"`
	InfoCards   []InfoCardSpec   `yaml:"info_cards,omitempty"`

	// Canvas is the partial snapshot for updateCanvasData.
	Canvas *CanvasSpec `yaml:"canvas,omitempty"`

	// ID identifies the target entity for update, remove, select and
	// beginConnection ops. For selectComponent and beginConnection an
	// empty ID clears the reference.
	ID string `yaml:"id,omitempty"`

	// Patch carries the fields to change for update ops. Keys use the
	// YAML field names (x, y, type, source_id, content, ...).
	Patch map[string]any `yaml:"patch,omitempty"`

	// Patches maps component IDs to patch maps for
	// batchUpdateComponents.
	Patches map[string]map[string]any `yaml:"patches,omitempty"`

	// MS is the clock advance in milliseconds for the advance op.
	MS int `yaml:"ms,omitempty"`

	// Applied, when set, asserts the operation outcome: true for
	// applied, false for dropped or no-op. Nil skips the check.
	Applied *bool `yaml:"applied,omitempty"`
}

// ComponentSpec mirrors model.Component with YAML field names.
type ComponentSpec struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type,omitempty"`
	X          float64        `yaml:"x,omitempty"`
	Y          float64        `yaml:"y,omitempty"`
	Width      float64        `yaml:"width,omitempty"`
	Height     float64        `yaml:"height,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
	Layer      string         `yaml:"layer,omitempty"`
	Group      string         `yaml:"group,omitempty"`
}

func (s ComponentSpec) toModel() model.Component {
	return model.Component{
		ID:         s.ID,
		Type:       s.Type,
		X:          s.X,
		Y:          s.Y,
		Width:      s.Width,
		Height:     s.Height,
		Properties: s.Properties,
		Layer:      s.Layer,
		Group:      s.Group,
	}
}

// ConnectionSpec mirrors model.Connection with YAML field names.
type ConnectionSpec struct {
	ID         string         `yaml:"id"`
	SourceID   string         `yaml:"source_id"`
	TargetID   string         `yaml:"target_id"`
	Type       string         `yaml:"type,omitempty"`
	Label      string         `yaml:"label,omitempty"`
	Style      string         `yaml:"style,omitempty"`
	Direction  string         `yaml:"direction,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

func (s ConnectionSpec) toModel() model.Connection {
	return model.Connection{
		ID:         s.ID,
		SourceID:   s.SourceID,
		TargetID:   s.TargetID,
		Type:       s.Type,
		Label:      s.Label,
		Style:      s.Style,
		Direction:  model.Direction(s.Direction),
		Properties: s.Properties,
	}
}

// InfoCardSpec mirrors model.InfoCard with YAML field names.
type InfoCardSpec struct {
	ID      string  `yaml:"id"`
	X       float64 `yaml:"x,omitempty"`
	Y       float64 `yaml:"y,omitempty"`
	Content string  `yaml:"content,omitempty"`
}

func (s InfoCardSpec) toModel() model.InfoCard {
	return model.InfoCard{ID: s.ID, X: s.X, Y: s.Y, Content: s.Content}
}

// LayerSpec mirrors model.Layer with YAML field names.
type LayerSpec struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name,omitempty"`
	Visible bool   `yaml:"visible,omitempty"`
	Order   int    `yaml:"order,omitempty"`
}

func (s LayerSpec) toModel() model.Layer {
	return model.Layer{ID: s.ID, Name: s.Name, Visible: s.Visible, Order: s.Order}
}

// GridSpec mirrors model.GridConfig with YAML field names.
type GridSpec struct {
	Spacing     float64 `yaml:"spacing,omitempty"`
	Visible     bool    `yaml:"visible,omitempty"`
	SnapEnabled bool    `yaml:"snap_enabled,omitempty"`
}

func (s GridSpec) toModel() model.GridConfig {
	return model.GridConfig{Spacing: s.Spacing, Visible: s.Visible, SnapEnabled: s.SnapEnabled}
}

// CanvasSpec is the payload for updateCanvasData. The nil/empty
// distinction carries through to the store: an omitted section leaves
// that part of the canvas untouched, while an explicit empty list clears
// it.
type CanvasSpec struct {
	Components  []ComponentSpec  `yaml:"components,omitempty"`
	Connections []ConnectionSpec `yaml:"connections,omitempty"`
	InfoCards   []InfoCardSpec   `yaml:"info_cards,omitempty"`
	Layers      []LayerSpec      `yaml:"layers,omitempty"`
	Grid        *GridSpec        `yaml:"grid,omitempty"`
	Metadata    map[string]any   `yaml:"metadata,omitempty"`
}

// Assertion validates the final state of a scenario run.
type Assertion struct {
	// Type selects the assertion; see the package documentation for the
	// full list.
	Type string `yaml:"type"`

	// ID identifies the entity for has_* assertions and the expected
	// selection for the selection assertion.
	ID string `yaml:"id,omitempty"`

	// Absent inverts has_* assertions: the entity must not exist.
	Absent bool `yaml:"absent,omitempty"`

	// Count is the expected entity count for *_count assertions.
	Count int `yaml:"count,omitempty"`

	// Version is the expected store version for the version assertion.
	Version int64 `yaml:"version,omitempty"`

	// Past and Future are the expected stack depths for history_depth.
	Past   int `yaml:"past,omitempty"`
	Future int `yaml:"future,omitempty"`

	// Expect is the expected flag value for can_undo, can_redo and
	// guard_blocked.
	Expect bool `yaml:"expect,omitempty"`
}

// Step op constants.
const (
	OpSetComponents         = "setComponents"
	OpSetConnections        = "setConnections"
	OpSetInfoCards          = "setInfoCards"
	OpAddComponent          = "addComponent"
	OpUpdateComponent       = "updateComponent"
	OpRemoveComponent       = "removeComponent"
	OpAddConnection         = "addConnection"
	OpUpdateConnection      = "updateConnection"
	OpRemoveConnection      = "removeConnection"
	OpAddInfoCard           = "addInfoCard"
	OpUpdateInfoCard        = "updateInfoCard"
	OpRemoveInfoCard        = "removeInfoCard"
	OpBatchUpdateComponents = "batchUpdateComponents"
	OpUpdateCanvasData      = "updateCanvasData"
	OpSelectComponent       = "selectComponent"
	OpBeginConnection       = "beginConnection"
	OpUndo                  = "undo"
	OpRedo                  = "redo"
	OpReset                 = "reset"
	OpAdvance               = "advance"
)

// Assertion type constants.
const (
	AssertComponentCount  = "component_count"
	AssertConnectionCount = "connection_count"
	AssertInfoCardCount   = "info_card_count"
	AssertHasComponent    = "has_component"
	AssertHasConnection   = "has_connection"
	AssertHasInfoCard     = "has_info_card"
	AssertVersion         = "version"
	AssertSelection       = "selection"
	AssertCanUndo         = "can_undo"
	AssertCanRedo         = "can_redo"
	AssertHistoryDepth    = "history_depth"
	AssertGuardBlocked    = "guard_blocked"
)

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file doesn't exist, is malformed, contains unknown fields (typos),
// or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be non-negative")
	}
	if s.GridSize < 0 {
		return fmt.Errorf("grid_size must be non-negative")
	}
	if g := s.Guard; g != nil {
		if g.WindowMS < 0 || g.Threshold < 0 || g.CooldownMS < 0 || g.LoopFactor < 0 {
			return fmt.Errorf("guard: overrides must be non-negative")
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step carries the fields its op requires.
func validateStep(index int, step *Step) error {
	if step.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}

	switch step.Op {
	case OpAddComponent:
		if step.Component == nil {
			return fmt.Errorf("steps[%d]: component is required for %s", index, step.Op)
		}
		if step.Component.ID == "" {
			return fmt.Errorf("steps[%d]: component.id is required", index)
		}
	case OpAddConnection:
		if step.Connection == nil {
			return fmt.Errorf("steps[%d]: connection is required for %s", index, step.Op)
		}
		if step.Connection.ID == "" {
			return fmt.Errorf("steps[%d]: connection.id is required", index)
		}
	case OpAddInfoCard:
		if step.InfoCard == nil {
			return fmt.Errorf("steps[%d]: info_card is required for %s", index, step.Op)
		}
		if step.InfoCard.ID == "" {
			return fmt.Errorf("steps[%d]: info_card.id is required", index)
		}
	case OpUpdateComponent, OpUpdateConnection, OpUpdateInfoCard:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, step.Op)
		}
		if len(step.Patch) == 0 {
			return fmt.Errorf("steps[%d]: patch is required for %s", index, step.Op)
		}
	case OpRemoveComponent, OpRemoveConnection, OpRemoveInfoCard:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, step.Op)
		}
	case OpSetComponents, OpSetConnections, OpSetInfoCards:
		// An omitted or empty list clears the collection; nothing to
		// require.
	case OpBatchUpdateComponents:
		if len(step.Patches) == 0 {
			return fmt.Errorf("steps[%d]: patches is required for %s", index, step.Op)
		}
		for id, patch := range step.Patches {
			if len(patch) == 0 {
				return fmt.Errorf("steps[%d]: patches[%q] must not be empty", index, id)
			}
		}
	case OpUpdateCanvasData:
		if step.Canvas == nil {
			return fmt.Errorf("steps[%d]: canvas is required for %s", index, step.Op)
		}
	case OpSelectComponent, OpBeginConnection:
		// An empty ID clears the reference; nothing to require.
	case OpUndo, OpRedo, OpReset:
		// No arguments.
	case OpAdvance:
		if step.MS <= 0 {
			return fmt.Errorf("steps[%d]: ms must be positive for advance", index)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertComponentCount, AssertConnectionCount, AssertInfoCardCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertHasComponent, AssertHasConnection, AssertHasInfoCard:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for %s", index, a.Type)
		}
	case AssertVersion:
		if a.Version < 0 {
			return fmt.Errorf("assertions[%d]: version must be non-negative", index)
		}
	case AssertHistoryDepth:
		if a.Past < 0 || a.Future < 0 {
			return fmt.Errorf("assertions[%d]: past and future must be non-negative", index)
		}
	case AssertSelection, AssertCanUndo, AssertCanRedo, AssertGuardBlocked:
		// No required fields; zero values are meaningful expectations.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
