package store

import (
	"github.com/easelhq/easel/internal/model"
	"github.com/easelhq/easel/internal/normalize"
)

// SetComponents replaces the whole component collection. Connections whose
// endpoints disappear in the replacement are removed in the same commit.
// Replacing the collection with an equal one is a no-op.
func (s *Store) SetComponents(list []model.Component, opts ...CallOption) bool {
	if list == nil {
		list = []model.Component{}
	}
	return s.mutate("setComponents", list, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		if sameEntities(st.Components(), list) {
			return nil, false, nil
		}
		next, orphaned, err := st.WithComponentsReplaced(list)
		if err != nil {
			return nil, false, err
		}
		if len(orphaned) > 0 {
			s.logger.Debug("replacement orphaned connections", "action", "setComponents", "removed", orphaned)
		}
		return next, true, nil
	})
}

// SetConnections replaces the whole connection collection. Every entry must
// reference existing components.
func (s *Store) SetConnections(list []model.Connection, opts ...CallOption) bool {
	if list == nil {
		list = []model.Connection{}
	}
	return s.mutate("setConnections", list, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		if sameEntities(st.Connections(), list) {
			return nil, false, nil
		}
		next, err := st.WithConnectionsReplaced(list)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// SetInfoCards replaces the whole info card collection.
func (s *Store) SetInfoCards(list []model.InfoCard, opts ...CallOption) bool {
	if list == nil {
		list = []model.InfoCard{}
	}
	return s.mutate("setInfoCards", list, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		if sameEntities(st.InfoCards(), list) {
			return nil, false, nil
		}
		next, err := st.WithInfoCardsReplaced(list)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// AddComponent appends one component. A duplicate or empty ID rejects the
// call.
func (s *Store) AddComponent(c model.Component, opts ...CallOption) bool {
	return s.mutate("addComponent", c, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		next, err := st.WithComponentAdded(c)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// AddConnection appends one connection. Both endpoints must exist.
func (s *Store) AddConnection(c model.Connection, opts ...CallOption) bool {
	return s.mutate("addConnection", c, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		next, err := st.WithConnectionAdded(c)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// AddInfoCard appends one info card.
func (s *Store) AddInfoCard(c model.InfoCard, opts ...CallOption) bool {
	return s.mutate("addInfoCard", c, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		next, err := st.WithInfoCardAdded(c)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// sameEntities reports deep equality of two entity slices, treating nil
// and empty as the same collection. Canonical JSON distinguishes null
// from [] so a plain model.Equal would see a phantom difference.
func sameEntities[T any](a, b []T) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return model.Equal(a, b)
}

// sameMetadata is sameEntities for the free-form metadata map.
func sameMetadata(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return model.Equal(a, b)
}

// patchPayload is the fingerprint payload for single-entity updates, so
// that patching two different components with the same patch counts as two
// distinct attempts.
type patchPayload[P any] struct {
	ID    string `json:"id"`
	Patch P      `json:"patch"`
}

// UpdateComponent applies a partial update to one component. Unknown IDs
// and patches that change nothing are no-ops.
func (s *Store) UpdateComponent(id string, patch ComponentPatch, opts ...CallOption) bool {
	payload := patchPayload[ComponentPatch]{ID: id, Patch: patch}
	return s.mutate("updateComponent", payload, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		cur, ok := st.Component(id)
		if !ok {
			s.logger.Debug("update target not found", "action", "updateComponent", "id", id)
			return nil, false, nil
		}
		patched := patch.applyTo(cur)
		if model.Equal(cur, patched) {
			return nil, false, nil
		}
		next, err := st.WithComponentReplaced(patched)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// UpdateConnection applies a partial update to one connection. Endpoint
// changes are validated against the component collection.
func (s *Store) UpdateConnection(id string, patch ConnectionPatch, opts ...CallOption) bool {
	payload := patchPayload[ConnectionPatch]{ID: id, Patch: patch}
	return s.mutate("updateConnection", payload, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		cur, ok := st.Connection(id)
		if !ok {
			s.logger.Debug("update target not found", "action", "updateConnection", "id", id)
			return nil, false, nil
		}
		patched := patch.applyTo(cur)
		if model.Equal(cur, patched) {
			return nil, false, nil
		}
		next, err := st.WithConnectionReplaced(patched)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// UpdateInfoCard applies a partial update to one info card.
func (s *Store) UpdateInfoCard(id string, patch InfoCardPatch, opts ...CallOption) bool {
	payload := patchPayload[InfoCardPatch]{ID: id, Patch: patch}
	return s.mutate("updateInfoCard", payload, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		cur, ok := st.InfoCard(id)
		if !ok {
			s.logger.Debug("update target not found", "action", "updateInfoCard", "id", id)
			return nil, false, nil
		}
		patched := patch.applyTo(cur)
		if model.Equal(cur, patched) {
			return nil, false, nil
		}
		next, err := st.WithInfoCardReplaced(patched)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// BatchUpdateComponents applies patches to several components in one
// commit: one version bump, one history entry, one notification. Unknown
// IDs are skipped; if every patch is skipped or changes nothing the whole
// batch is a no-op.
func (s *Store) BatchUpdateComponents(patches map[string]ComponentPatch, opts ...CallOption) bool {
	return s.mutate("batchUpdateComponents", patches, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		changed := make([]model.Component, 0, len(patches))
		for id, patch := range patches {
			cur, ok := st.Component(id)
			if !ok {
				s.logger.Debug("batch entry skipped", "action", "batchUpdateComponents", "id", id)
				continue
			}
			patched := patch.applyTo(cur)
			if model.Equal(cur, patched) {
				continue
			}
			changed = append(changed, patched)
		}
		if len(changed) == 0 {
			return nil, false, nil
		}
		next, err := st.WithComponentsPatched(changed)
		if err != nil {
			return nil, false, err
		}
		return next, true, nil
	})
}

// RemoveComponent deletes one component and cascades to every connection
// touching it, all in one commit. Removing an unknown ID is a no-op.
func (s *Store) RemoveComponent(id string, opts ...CallOption) bool {
	return s.mutate("removeComponent", id, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		next, removed, err := st.WithComponentRemoved(id)
		if err != nil {
			if normalize.IsNotFoundError(err) {
				s.logger.Debug("remove target not found", "action", "removeComponent", "id", id)
				return nil, false, nil
			}
			return nil, false, err
		}
		if len(removed) > 0 {
			s.logger.Debug("cascade removed connections", "component", id, "removed", removed)
		}
		return next, true, nil
	})
}

// RemoveConnection deletes one connection. Removing an unknown ID is a
// no-op.
func (s *Store) RemoveConnection(id string, opts ...CallOption) bool {
	return s.mutate("removeConnection", id, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		next, err := st.WithConnectionRemoved(id)
		if err != nil {
			if normalize.IsNotFoundError(err) {
				s.logger.Debug("remove target not found", "action", "removeConnection", "id", id)
				return nil, false, nil
			}
			return nil, false, err
		}
		return next, true, nil
	})
}

// RemoveInfoCard deletes one info card. Removing an unknown ID is a no-op.
func (s *Store) RemoveInfoCard(id string, opts ...CallOption) bool {
	return s.mutate("removeInfoCard", id, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		next, err := st.WithInfoCardRemoved(id)
		if err != nil {
			if normalize.IsNotFoundError(err) {
				s.logger.Debug("remove target not found", "action", "removeInfoCard", "id", id)
				return nil, false, nil
			}
			return nil, false, err
		}
		return next, true, nil
	})
}

// UpdateCanvasData replaces any subset of the canvas in one commit. Nil
// fields of the partial are left untouched; non-nil empty slices clear
// their collection. Components apply before connections so a payload that
// introduces both in one call validates against the incoming components.
// The call is atomic: any validation failure leaves the state unchanged.
func (s *Store) UpdateCanvasData(p Partial, opts ...CallOption) bool {
	return s.mutate("updateCanvasData", p, opts, func(st *normalize.State) (*normalize.State, bool, error) {
		next := st
		changed := false
		var err error

		if p.Components != nil && !sameEntities(next.Components(), p.Components) {
			var orphaned []string
			next, orphaned, err = next.WithComponentsReplaced(p.Components)
			if err != nil {
				return nil, false, err
			}
			if len(orphaned) > 0 {
				s.logger.Debug("replacement orphaned connections", "action", "updateCanvasData", "removed", orphaned)
			}
			changed = true
		}
		if p.Connections != nil && !sameEntities(next.Connections(), p.Connections) {
			next, err = next.WithConnectionsReplaced(p.Connections)
			if err != nil {
				return nil, false, err
			}
			changed = true
		}
		if p.InfoCards != nil && !sameEntities(next.InfoCards(), p.InfoCards) {
			next, err = next.WithInfoCardsReplaced(p.InfoCards)
			if err != nil {
				return nil, false, err
			}
			changed = true
		}
		if p.Layers != nil && !sameEntities(next.Layers(), p.Layers) {
			next = next.WithLayersReplaced(p.Layers)
			changed = true
		}
		if p.Grid != nil && *p.Grid != next.Grid() {
			next = next.WithGridReplaced(*p.Grid)
			changed = true
		}
		if p.Metadata != nil && !sameMetadata(next.Metadata(), p.Metadata) {
			next = next.WithMetadataReplaced(p.Metadata)
			changed = true
		}
		if !changed {
			return nil, false, nil
		}
		return next, true, nil
	})
}

// Select marks a component as selected, or clears the selection with "".
// Selection is transient: the call is guard-checked like any mutation but
// never bumps the version, never enters history and never notifies.
// Selecting an unknown component is a no-op.
func (s *Store) Select(componentID string, opts ...CallOption) bool {
	return s.setReference("selectComponent", componentID, opts, func() *string {
		return &s.selected
	})
}

// BeginConnection marks a component as the pending connection source, or
// clears it with "". Same transient semantics as Select.
func (s *Store) BeginConnection(componentID string, opts ...CallOption) bool {
	return s.setReference("beginConnection", componentID, opts, func() *string {
		return &s.connectionStart
	})
}

// setReference is the shared transient reference pipeline. ref must be
// resolved under the lock.
func (s *Store) setReference(action, componentID string, opts []CallOption, ref func() *string) bool {
	call := applyCallOptions(opts)

	s.mu.Lock()
	if d := s.guard.Allow(action, model.Fingerprint(action, componentID)); !d.Allowed {
		s.mu.Unlock()
		s.recordDrop(action, call, d)
		return false
	}
	if componentID != "" && !s.state.HasComponent(componentID) {
		s.mu.Unlock()
		mutationsTotal.WithLabelValues(action, "noop").Inc()
		s.logger.Debug("reference target not found", "action", action, "id", componentID)
		return false
	}
	target := ref()
	if *target == componentID {
		s.mu.Unlock()
		mutationsTotal.WithLabelValues(action, "noop").Inc()
		return false
	}
	*target = componentID
	s.mu.Unlock()

	mutationsTotal.WithLabelValues(action, "applied").Inc()
	s.logger.Debug("reference updated", "action", action, "id", componentID, "source", call.source)
	return true
}
