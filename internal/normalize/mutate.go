package normalize

import (
	"maps"
	"slices"

	"github.com/easelhq/easel/internal/model"
)

// Copy-on-write discipline: a mutation shallow-copies the State, deep-copies
// only the touched collection table, and NEVER writes through a slice or
// entity pointer reachable from an older version. Index slices are replaced
// wholesale (clone, modify, store) so versions sharing a bucket can never
// see each other's edits.

func (s *State) shallowCopy() *State {
	next := *s
	return &next
}

func (t *componentTable) clone() *componentTable {
	return &componentTable{
		byID:    maps.Clone(t.byID),
		allIDs:  slices.Clone(t.allIDs),
		byType:  maps.Clone(t.byType),
		byLayer: maps.Clone(t.byLayer),
	}
}

func (t *connectionTable) clone() *connectionTable {
	return &connectionTable{
		byID:     maps.Clone(t.byID),
		allIDs:   slices.Clone(t.allIDs),
		bySource: maps.Clone(t.bySource),
		byTarget: maps.Clone(t.byTarget),
		byType:   maps.Clone(t.byType),
	}
}

func (t *infoCardTable) clone() *infoCardTable {
	return &infoCardTable{
		byID:       maps.Clone(t.byID),
		allIDs:     slices.Clone(t.allIDs),
		byPosition: maps.Clone(t.byPosition),
	}
}

// indexAdd appends id under key, replacing the bucket slice. The map itself
// must already be a fresh clone.
func indexAdd(m map[string][]string, key, id string) {
	if key == "" {
		return
	}
	bucket := m[key]
	next := make([]string, len(bucket), len(bucket)+1)
	copy(next, bucket)
	m[key] = append(next, id)
}

// indexRemove drops id from the bucket under key, replacing the bucket
// slice and deleting drained buckets so no stale keys linger.
func indexRemove(m map[string][]string, key, id string) {
	if key == "" {
		return
	}
	bucket := m[key]
	if len(bucket) == 0 {
		return
	}
	next := make([]string, 0, len(bucket))
	for _, existing := range bucket {
		if existing != id {
			next = append(next, existing)
		}
	}
	if len(next) == 0 {
		delete(m, key)
		return
	}
	m[key] = next
}

// listRemove returns a fresh slice without id, preserving order.
func listRemove(ids []string, id string) []string {
	next := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			next = append(next, existing)
		}
	}
	return next
}

// --- table builders (bulk replace and Normalize share these) ---

func buildComponentTable(list []model.Component) (*componentTable, error) {
	t := newComponentTable(len(list))
	for _, c := range list {
		if c.ID == "" {
			return nil, &EmptyIDError{Collection: "components"}
		}
		if _, exists := t.byID[c.ID]; exists {
			return nil, &DuplicateIDError{Collection: "components", ID: c.ID}
		}
		entity := c.Clone()
		t.byID[c.ID] = &entity
		t.allIDs = append(t.allIDs, c.ID)
		indexAdd(t.byType, c.Type, c.ID)
		indexAdd(t.byLayer, c.Layer, c.ID)
	}
	return t, nil
}

func buildConnectionTable(list []model.Connection) (*connectionTable, error) {
	t := newConnectionTable(len(list))
	for _, c := range list {
		if c.ID == "" {
			return nil, &EmptyIDError{Collection: "connections"}
		}
		if _, exists := t.byID[c.ID]; exists {
			return nil, &DuplicateIDError{Collection: "connections", ID: c.ID}
		}
		entity := c.Clone()
		t.byID[c.ID] = &entity
		t.allIDs = append(t.allIDs, c.ID)
		indexAdd(t.bySource, c.SourceID, c.ID)
		indexAdd(t.byTarget, c.TargetID, c.ID)
		indexAdd(t.byType, c.Type, c.ID)
	}
	return t, nil
}

func buildInfoCardTable(list []model.InfoCard, gridSize float64) (*infoCardTable, error) {
	t := newInfoCardTable(len(list))
	for _, c := range list {
		if c.ID == "" {
			return nil, &EmptyIDError{Collection: "infoCards"}
		}
		if _, exists := t.byID[c.ID]; exists {
			return nil, &DuplicateIDError{Collection: "infoCards", ID: c.ID}
		}
		entity := c.Clone()
		t.byID[c.ID] = &entity
		t.allIDs = append(t.allIDs, c.ID)
		indexAdd(t.byPosition, PositionBucket(c.X, c.Y, gridSize), c.ID)
	}
	return t, nil
}

// --- component mutations ---

// WithComponentsReplaced swaps the whole component collection. Connections
// whose endpoints no longer exist are cascaded away in the same mutation
// (referential integrity holds after every state transition); their ids are
// returned for diagnostics.
func (s *State) WithComponentsReplaced(list []model.Component) (*State, []string, error) {
	table, err := buildComponentTable(list)
	if err != nil {
		return nil, nil, err
	}
	next := s.shallowCopy()
	next.components = table

	var orphaned []string
	for _, id := range s.connections.allIDs {
		conn := s.connections.byID[id]
		if _, ok := table.byID[conn.SourceID]; !ok {
			orphaned = append(orphaned, id)
			continue
		}
		if _, ok := table.byID[conn.TargetID]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	if len(orphaned) > 0 {
		connTable := s.connections.clone()
		for _, id := range orphaned {
			connTable.remove(id)
		}
		next.connections = connTable
	}
	return next, orphaned, nil
}

// WithComponentAdded inserts a new component at the end of the z-order.
func (s *State) WithComponentAdded(c model.Component) (*State, error) {
	if c.ID == "" {
		return nil, &EmptyIDError{Collection: "components"}
	}
	if _, exists := s.components.byID[c.ID]; exists {
		return nil, &DuplicateIDError{Collection: "components", ID: c.ID}
	}
	next := s.shallowCopy()
	table := s.components.clone()
	entity := c.Clone()
	table.byID[c.ID] = &entity
	table.allIDs = append(table.allIDs, c.ID)
	indexAdd(table.byType, c.Type, c.ID)
	indexAdd(table.byLayer, c.Layer, c.ID)
	next.components = table
	return next, nil
}

// WithComponentReplaced swaps the stored component for c (same id),
// re-indexing if the type or layer changed. Position in allIds is kept.
func (s *State) WithComponentReplaced(c model.Component) (*State, error) {
	prev, exists := s.components.byID[c.ID]
	if !exists {
		return nil, &NotFoundError{Collection: "components", ID: c.ID}
	}
	next := s.shallowCopy()
	table := s.components.clone()
	table.replace(prev, c)
	next.components = table
	return next, nil
}

// WithComponentsPatched swaps many components in one mutation (one table
// clone, not N). Every id must already exist.
func (s *State) WithComponentsPatched(list []model.Component) (*State, error) {
	table := s.components.clone()
	for _, c := range list {
		prev, exists := table.byID[c.ID]
		if !exists {
			return nil, &NotFoundError{Collection: "components", ID: c.ID}
		}
		table.replace(prev, c)
	}
	next := s.shallowCopy()
	next.components = table
	return next, nil
}

// replace swaps prev for c inside an already-cloned table.
func (t *componentTable) replace(prev *model.Component, c model.Component) {
	entity := c.Clone()
	t.byID[c.ID] = &entity
	if prev.Type != c.Type {
		indexRemove(t.byType, prev.Type, c.ID)
		indexAdd(t.byType, c.Type, c.ID)
	}
	if prev.Layer != c.Layer {
		indexRemove(t.byLayer, prev.Layer, c.ID)
		indexAdd(t.byLayer, c.Layer, c.ID)
	}
}

// WithComponentRemoved removes the component and cascades: every connection
// whose source or target is id goes with it. The removed connection ids are
// returned in insertion order.
func (s *State) WithComponentRemoved(id string) (*State, []string, error) {
	prev, exists := s.components.byID[id]
	if !exists {
		return nil, nil, &NotFoundError{Collection: "components", ID: id}
	}

	next := s.shallowCopy()
	table := s.components.clone()
	delete(table.byID, id)
	table.allIDs = listRemove(table.allIDs, id)
	indexRemove(table.byType, prev.Type, id)
	indexRemove(table.byLayer, prev.Layer, id)
	next.components = table

	// Incident connections: union of the two endpoint indexes, deduped for
	// self-loops, in insertion order.
	incident := make(map[string]bool)
	for _, connID := range s.connections.bySource[id] {
		incident[connID] = true
	}
	for _, connID := range s.connections.byTarget[id] {
		incident[connID] = true
	}
	if len(incident) == 0 {
		return next, nil, nil
	}

	removed := make([]string, 0, len(incident))
	connTable := s.connections.clone()
	for _, connID := range s.connections.allIDs {
		if incident[connID] {
			removed = append(removed, connID)
			connTable.remove(connID)
		}
	}
	next.connections = connTable
	return next, removed, nil
}

// --- connection mutations ---

// validateEndpoints checks both endpoints of c against the component table.
func validateEndpoints(t *componentTable, c model.Connection) error {
	if _, ok := t.byID[c.SourceID]; !ok {
		return &EndpointError{ConnectionID: c.ID, Field: "sourceId", ComponentID: c.SourceID}
	}
	if _, ok := t.byID[c.TargetID]; !ok {
		return &EndpointError{ConnectionID: c.ID, Field: "targetId", ComponentID: c.TargetID}
	}
	return nil
}

// WithConnectionsReplaced swaps the whole connection collection. Every
// endpoint must resolve against the current components.
func (s *State) WithConnectionsReplaced(list []model.Connection) (*State, error) {
	for _, c := range list {
		if err := validateEndpoints(s.components, c); err != nil {
			return nil, err
		}
	}
	table, err := buildConnectionTable(list)
	if err != nil {
		return nil, err
	}
	next := s.shallowCopy()
	next.connections = table
	return next, nil
}

// WithConnectionAdded inserts a new connection after validating both
// endpoints.
func (s *State) WithConnectionAdded(c model.Connection) (*State, error) {
	if c.ID == "" {
		return nil, &EmptyIDError{Collection: "connections"}
	}
	if _, exists := s.connections.byID[c.ID]; exists {
		return nil, &DuplicateIDError{Collection: "connections", ID: c.ID}
	}
	if err := validateEndpoints(s.components, c); err != nil {
		return nil, err
	}
	next := s.shallowCopy()
	table := s.connections.clone()
	entity := c.Clone()
	table.byID[c.ID] = &entity
	table.allIDs = append(table.allIDs, c.ID)
	indexAdd(table.bySource, c.SourceID, c.ID)
	indexAdd(table.byTarget, c.TargetID, c.ID)
	indexAdd(table.byType, c.Type, c.ID)
	next.connections = table
	return next, nil
}

// WithConnectionReplaced swaps the stored connection for c (same id),
// validating endpoints and re-indexing whatever changed.
func (s *State) WithConnectionReplaced(c model.Connection) (*State, error) {
	prev, exists := s.connections.byID[c.ID]
	if !exists {
		return nil, &NotFoundError{Collection: "connections", ID: c.ID}
	}
	if err := validateEndpoints(s.components, c); err != nil {
		return nil, err
	}
	next := s.shallowCopy()
	table := s.connections.clone()
	entity := c.Clone()
	table.byID[c.ID] = &entity
	if prev.SourceID != c.SourceID {
		indexRemove(table.bySource, prev.SourceID, c.ID)
		indexAdd(table.bySource, c.SourceID, c.ID)
	}
	if prev.TargetID != c.TargetID {
		indexRemove(table.byTarget, prev.TargetID, c.ID)
		indexAdd(table.byTarget, c.TargetID, c.ID)
	}
	if prev.Type != c.Type {
		indexRemove(table.byType, prev.Type, c.ID)
		indexAdd(table.byType, c.Type, c.ID)
	}
	next.connections = table
	return next, nil
}

// WithConnectionRemoved removes a single connection.
func (s *State) WithConnectionRemoved(id string) (*State, error) {
	if _, exists := s.connections.byID[id]; !exists {
		return nil, &NotFoundError{Collection: "connections", ID: id}
	}
	next := s.shallowCopy()
	table := s.connections.clone()
	table.remove(id)
	next.connections = table
	return next, nil
}

// remove drops id from an already-cloned table and all its indexes.
func (t *connectionTable) remove(id string) {
	prev, exists := t.byID[id]
	if !exists {
		return
	}
	delete(t.byID, id)
	t.allIDs = listRemove(t.allIDs, id)
	indexRemove(t.bySource, prev.SourceID, id)
	indexRemove(t.byTarget, prev.TargetID, id)
	indexRemove(t.byType, prev.Type, id)
}

// --- info-card mutations ---

// WithInfoCardsReplaced swaps the whole info-card collection.
func (s *State) WithInfoCardsReplaced(list []model.InfoCard) (*State, error) {
	table, err := buildInfoCardTable(list, s.gridSize)
	if err != nil {
		return nil, err
	}
	next := s.shallowCopy()
	next.infoCards = table
	return next, nil
}

// WithInfoCardAdded inserts a new info card.
func (s *State) WithInfoCardAdded(c model.InfoCard) (*State, error) {
	if c.ID == "" {
		return nil, &EmptyIDError{Collection: "infoCards"}
	}
	if _, exists := s.infoCards.byID[c.ID]; exists {
		return nil, &DuplicateIDError{Collection: "infoCards", ID: c.ID}
	}
	next := s.shallowCopy()
	table := s.infoCards.clone()
	entity := c.Clone()
	table.byID[c.ID] = &entity
	table.allIDs = append(table.allIDs, c.ID)
	indexAdd(table.byPosition, PositionBucket(c.X, c.Y, s.gridSize), c.ID)
	next.infoCards = table
	return next, nil
}

// WithInfoCardReplaced swaps the stored card for c (same id), moving it to
// a new spatial bucket when the position crossed a grid boundary.
func (s *State) WithInfoCardReplaced(c model.InfoCard) (*State, error) {
	prev, exists := s.infoCards.byID[c.ID]
	if !exists {
		return nil, &NotFoundError{Collection: "infoCards", ID: c.ID}
	}
	next := s.shallowCopy()
	table := s.infoCards.clone()
	entity := c.Clone()
	table.byID[c.ID] = &entity
	oldBucket := PositionBucket(prev.X, prev.Y, s.gridSize)
	newBucket := PositionBucket(c.X, c.Y, s.gridSize)
	if oldBucket != newBucket {
		indexRemove(table.byPosition, oldBucket, c.ID)
		indexAdd(table.byPosition, newBucket, c.ID)
	}
	next.infoCards = table
	return next, nil
}

// WithInfoCardRemoved removes a single info card.
func (s *State) WithInfoCardRemoved(id string) (*State, error) {
	prev, exists := s.infoCards.byID[id]
	if !exists {
		return nil, &NotFoundError{Collection: "infoCards", ID: id}
	}
	next := s.shallowCopy()
	table := s.infoCards.clone()
	delete(table.byID, id)
	table.allIDs = listRemove(table.allIDs, id)
	indexRemove(table.byPosition, PositionBucket(prev.X, prev.Y, s.gridSize), id)
	next.infoCards = table
	return next, nil
}

// --- document-level mutations ---

// WithLayersReplaced swaps the document's layer list.
func (s *State) WithLayersReplaced(layers []model.Layer) *State {
	next := s.shallowCopy()
	next.layers = model.CloneLayers(layers)
	return next
}

// WithGridReplaced swaps the document's grid configuration.
func (s *State) WithGridReplaced(grid model.GridConfig) *State {
	next := s.shallowCopy()
	next.grid = grid
	return next
}

// WithMetadataReplaced swaps the document's free-form metadata.
func (s *State) WithMetadataReplaced(meta map[string]any) *State {
	next := s.shallowCopy()
	next.meta = model.CloneProperties(meta)
	return next
}
