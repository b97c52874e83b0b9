// Package query selects entity ids from a state version using the
// store's secondary indexes.
//
// A query names a collection and an optional filter tree. Planning picks
// the narrowest index to seed the candidate set and demotes every other
// filter to a per-entity check, so adding filters never makes a query
// scan more than its cheapest index. Results are always sorted ascending
// by id; two runs against the same state version return identical
// slices.
package query

// Collection names the entity table a query reads from.
type Collection string

const (
	Components  Collection = "components"
	Connections Collection = "connections"
	InfoCards   Collection = "infoCards"
)

// ValidCollection reports whether c names a queryable collection.
func ValidCollection(c Collection) bool {
	switch c {
	case Components, Connections, InfoCards:
		return true
	default:
		return false
	}
}

// Filter is one condition on the queried collection.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and keeps
// the planner's type switches exhaustive.
//
// Filter types:
//   - ByType: entity type equals a value (components, connections)
//   - ByLayer: component belongs to a layer (components)
//   - BySource: connection starts at a component (connections)
//   - ByTarget: connection ends at a component (connections)
//   - WithinRect: position inside a rectangle (infoCards indexed,
//     components by scan)
//   - And: all sub-filters hold
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// ByType matches entities whose Type field equals Type exactly.
//
// Applies to components and connections; both carry a type index, so a
// ByType filter can seed the candidate set.
type ByType struct {
	Type string
}

func (ByType) filterNode() {}

// ByLayer matches components assigned to the layer. Components without
// a layer are never matched, not even by an empty Layer value.
//
// Applies to components only.
type ByLayer struct {
	Layer string
}

func (ByLayer) filterNode() {}

// BySource matches connections originating at the component.
//
// Applies to connections only.
type BySource struct {
	ComponentID string
}

func (BySource) filterNode() {}

// ByTarget matches connections ending at the component.
//
// Applies to connections only.
type ByTarget struct {
	ComponentID string
}

func (ByTarget) filterNode() {}

// WithinRect matches entities whose position lies inside the rectangle,
// min and max inclusive. A rectangle with min greater than max matches
// nothing.
//
// Applies to info cards, where the spatial grid index seeds candidates,
// and to components, where every component's position is checked.
type WithinRect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (WithinRect) filterNode() {}

// Empty reports whether the rectangle can match anything at all.
func (r WithinRect) Empty() bool {
	return r.MinX > r.MaxX || r.MinY > r.MaxY
}

func (r WithinRect) contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// And matches entities satisfying every sub-filter. An empty And matches
// everything.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}

// Select is one query: a collection plus an optional filter.
// A nil Where matches the whole collection.
type Select struct {
	From  Collection
	Where Filter
}
