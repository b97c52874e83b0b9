package normalize

import (
	"fmt"
	"math"
	"slices"

	"github.com/easelhq/easel/internal/model"
)

// DefaultGridSize is the bucket edge length, in canvas units, for the
// info-card spatial index.
const DefaultGridSize = 100

// State is the normalized, indexed form of a canvas snapshot. It is
// immutable once built: every mutation returns a new State that shares the
// untouched collection tables with its predecessor (copy-on-write at
// collection granularity). That makes history retention cheap and lets any
// number of readers hold a version without coordination.
//
// Entities are stored behind pointers that are shared across versions and
// never written through; accessors hand out deep clones so callers cannot
// reach the shared structures.
type State struct {
	components  *componentTable
	connections *connectionTable
	infoCards   *infoCardTable
	layers      []model.Layer
	grid        model.GridConfig
	meta        map[string]any
	gridSize    float64
	ordered     bool
}

// componentTable holds the component collection: primary byId/allIds plus
// the byType and byLayer secondary indexes.
type componentTable struct {
	byID    map[string]*model.Component
	allIDs  []string
	byType  map[string][]string
	byLayer map[string][]string
}

// connectionTable holds the connection collection: primary byId/allIds plus
// the bySourceId, byTargetId and byType secondary indexes.
type connectionTable struct {
	byID     map[string]*model.Connection
	allIDs   []string
	bySource map[string][]string
	byTarget map[string][]string
	byType   map[string][]string
}

// infoCardTable holds the info-card collection: primary byId/allIds plus
// the byPosition spatial grid index.
type infoCardTable struct {
	byID       map[string]*model.InfoCard
	allIDs     []string
	byPosition map[string][]string
}

// NewState returns an empty normalized state with the given options
// applied (grid size, order preservation).
func NewState(opts Options) *State {
	opts = opts.withDefaults()
	return &State{
		components:  newComponentTable(0),
		connections: newConnectionTable(0),
		infoCards:   newInfoCardTable(0),
		gridSize:    opts.GridSize,
		ordered:     opts.PreserveOrder,
	}
}

func newComponentTable(capHint int) *componentTable {
	return &componentTable{
		byID:    make(map[string]*model.Component, capHint),
		byType:  make(map[string][]string),
		byLayer: make(map[string][]string),
	}
}

func newConnectionTable(capHint int) *connectionTable {
	return &connectionTable{
		byID:     make(map[string]*model.Connection, capHint),
		bySource: make(map[string][]string),
		byTarget: make(map[string][]string),
		byType:   make(map[string][]string),
	}
}

func newInfoCardTable(capHint int) *infoCardTable {
	return &infoCardTable{
		byID:       make(map[string]*model.InfoCard, capHint),
		byPosition: make(map[string][]string),
	}
}

// PositionBucket computes the spatial index key for a canvas position:
// floor(x/gridSize),floor(y/gridSize). Floor (not truncation) keeps
// negative coordinates in their own buckets.
func PositionBucket(x, y, gridSize float64) string {
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}
	bx := int64(math.Floor(x / gridSize))
	by := int64(math.Floor(y / gridSize))
	return fmt.Sprintf("%d,%d", bx, by)
}

// GridSize returns the bucket size the state's spatial index was built with.
func (s *State) GridSize() float64 { return s.gridSize }

// Ordered reports whether the state preserves input ordering for
// denormalization.
func (s *State) Ordered() bool { return s.ordered }

// --- component accessors ---

// ComponentCount returns the number of components.
func (s *State) ComponentCount() int { return len(s.components.allIDs) }

// HasComponent reports whether a component with the id exists.
func (s *State) HasComponent(id string) bool {
	_, ok := s.components.byID[id]
	return ok
}

// Component returns a deep clone of the component with the id.
func (s *State) Component(id string) (model.Component, bool) {
	c, ok := s.components.byID[id]
	if !ok {
		return model.Component{}, false
	}
	return c.Clone(), true
}

// ComponentIDs returns the component ids in insertion order.
func (s *State) ComponentIDs() []string {
	return slices.Clone(s.components.allIDs)
}

// ComponentIDsByType returns ids of components carrying the type tag.
func (s *State) ComponentIDsByType(componentType string) []string {
	return slices.Clone(s.components.byType[componentType])
}

// ComponentIDsByLayer returns ids of components assigned to the layer.
func (s *State) ComponentIDsByLayer(layerID string) []string {
	return slices.Clone(s.components.byLayer[layerID])
}

// --- connection accessors ---

// ConnectionCount returns the number of connections.
func (s *State) ConnectionCount() int { return len(s.connections.allIDs) }

// HasConnection reports whether a connection with the id exists.
func (s *State) HasConnection(id string) bool {
	_, ok := s.connections.byID[id]
	return ok
}

// Connection returns a deep clone of the connection with the id.
func (s *State) Connection(id string) (model.Connection, bool) {
	c, ok := s.connections.byID[id]
	if !ok {
		return model.Connection{}, false
	}
	return c.Clone(), true
}

// ConnectionIDs returns the connection ids in insertion order.
func (s *State) ConnectionIDs() []string {
	return slices.Clone(s.connections.allIDs)
}

// ConnectionIDsBySource returns ids of connections originating at the
// component.
func (s *State) ConnectionIDsBySource(componentID string) []string {
	return slices.Clone(s.connections.bySource[componentID])
}

// ConnectionIDsByTarget returns ids of connections terminating at the
// component.
func (s *State) ConnectionIDsByTarget(componentID string) []string {
	return slices.Clone(s.connections.byTarget[componentID])
}

// ConnectionIDsByType returns ids of connections carrying the type tag.
func (s *State) ConnectionIDsByType(connectionType string) []string {
	return slices.Clone(s.connections.byType[connectionType])
}

// --- info-card accessors ---

// InfoCardCount returns the number of info cards.
func (s *State) InfoCardCount() int { return len(s.infoCards.allIDs) }

// HasInfoCard reports whether an info card with the id exists.
func (s *State) HasInfoCard(id string) bool {
	_, ok := s.infoCards.byID[id]
	return ok
}

// InfoCard returns the info card with the id.
func (s *State) InfoCard(id string) (model.InfoCard, bool) {
	c, ok := s.infoCards.byID[id]
	if !ok {
		return model.InfoCard{}, false
	}
	return c.Clone(), true
}

// InfoCardIDs returns the info-card ids in insertion order.
func (s *State) InfoCardIDs() []string {
	return slices.Clone(s.infoCards.allIDs)
}

// InfoCardIDsInBucket returns the ids indexed under one spatial bucket key.
func (s *State) InfoCardIDsInBucket(bucket string) []string {
	return slices.Clone(s.infoCards.byPosition[bucket])
}

// InfoCardIDsInRect returns ids of info cards whose position lies inside
// the rectangle (min inclusive, max inclusive). Candidate ids come from the
// grid buckets the rectangle covers; exact bounds are then checked per
// card, so a card sharing a bucket with the rectangle but lying outside it
// is excluded.
func (s *State) InfoCardIDsInRect(minX, minY, maxX, maxY float64) []string {
	if minX > maxX || minY > maxY {
		return nil
	}
	g := s.gridSize
	bx0 := int64(math.Floor(minX / g))
	by0 := int64(math.Floor(minY / g))
	bx1 := int64(math.Floor(maxX / g))
	by1 := int64(math.Floor(maxY / g))

	var out []string
	for bx := bx0; bx <= bx1; bx++ {
		for by := by0; by <= by1; by++ {
			for _, id := range s.infoCards.byPosition[fmt.Sprintf("%d,%d", bx, by)] {
				card := s.infoCards.byID[id]
				if card.X >= minX && card.X <= maxX && card.Y >= minY && card.Y <= maxY {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// --- document-level accessors ---

// Layers returns a copy of the document's layer list.
func (s *State) Layers() []model.Layer {
	return model.CloneLayers(s.layers)
}

// Grid returns the document's grid configuration.
func (s *State) Grid() model.GridConfig { return s.grid }

// Metadata returns a deep copy of the document's free-form metadata.
func (s *State) Metadata() map[string]any {
	return model.CloneProperties(s.meta)
}
