package model

// Direction indicates which ends of a connection carry an arrowhead.
type Direction string

// Valid Direction values. An empty Direction means the connection has no
// explicit arrow direction.
const (
	DirectionStart Direction = "start"
	DirectionEnd   Direction = "end"
	DirectionBoth  Direction = "both"
)

// ValidDirection reports whether d is empty or one of the declared constants.
func ValidDirection(d Direction) bool {
	switch d {
	case "", DirectionStart, DirectionEnd, DirectionBoth:
		return true
	default:
		return false
	}
}

// Component is a node placed on the canvas: a service, a database, a queue,
// anything the diagram depicts. Position is the top-left corner in canvas
// units. Width and Height are optional; zero means "renderer default".
type Component struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Width      float64        `json:"width,omitempty"`
	Height     float64        `json:"height,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Layer      string         `json:"layer,omitempty"`
	Group      string         `json:"group,omitempty"`
}

// Connection is an edge between two components. SourceID and TargetID
// reference Component.ID values; referential integrity is enforced by the
// store's cascade rules and checked on demand by the integrity package.
type Connection struct {
	ID         string         `json:"id"`
	SourceID   string         `json:"sourceId"`
	TargetID   string         `json:"targetId"`
	Type       string         `json:"type"`
	Label      string         `json:"label,omitempty"`
	Style      string         `json:"style,omitempty"`
	Direction  Direction      `json:"direction,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// InfoCard is a free-floating annotation pinned to a canvas position.
type InfoCard struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Content string  `json:"content,omitempty"`
}

// Layer groups components for visibility toggling. Layers are document-level
// data: they ride through updateCanvasData and the persisted document but
// carry no secondary index.
type Layer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Order   int    `json:"order,omitempty"`
}

// GridConfig describes the canvas background grid and snapping behavior.
type GridConfig struct {
	Spacing     float64 `json:"spacing,omitempty"`
	Visible     bool    `json:"visible,omitempty"`
	SnapEnabled bool    `json:"snapEnabled,omitempty"`
}

// Snapshot is the flat array-of-entities form of the canvas: the stable
// boundary contract consumed by rendering, undo/redo controls and
// import/export. Snapshots handed out by the store are deep copies; holders
// may read them at any time without coordination.
type Snapshot struct {
	Components  []Component  `json:"components"`
	Connections []Connection `json:"connections"`
	InfoCards   []InfoCard   `json:"infoCards"`
}

// IsEmpty reports whether the snapshot holds no entities at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Components) == 0 && len(s.Connections) == 0 && len(s.InfoCards) == 0
}

// Counts returns the entity count per collection, for diagnostics output.
func (s Snapshot) Counts() (components, connections, infoCards int) {
	return len(s.Components), len(s.Connections), len(s.InfoCards)
}
