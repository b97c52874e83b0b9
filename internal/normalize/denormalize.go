package normalize

import (
	"slices"

	"github.com/easelhq/easel/internal/model"
)

// Denormalize converts the indexed form back into the flat snapshot
// contract. When the state preserves order, entities come back in their
// recorded insertion order (z-order); otherwise in canonical id order,
// which keeps exports byte-stable.
//
// The returned slices are always non-nil and every entity is a deep clone:
// holders of a snapshot can never reach the normalized tables.
func Denormalize(s *State) model.Snapshot {
	componentIDs := s.components.allIDs
	connectionIDs := s.connections.allIDs
	infoCardIDs := s.infoCards.allIDs
	if !s.ordered {
		componentIDs = sortedIDs(componentIDs)
		connectionIDs = sortedIDs(connectionIDs)
		infoCardIDs = sortedIDs(infoCardIDs)
	}

	snap := model.Snapshot{
		Components:  make([]model.Component, 0, len(componentIDs)),
		Connections: make([]model.Connection, 0, len(connectionIDs)),
		InfoCards:   make([]model.InfoCard, 0, len(infoCardIDs)),
	}
	for _, id := range componentIDs {
		snap.Components = append(snap.Components, s.components.byID[id].Clone())
	}
	for _, id := range connectionIDs {
		snap.Connections = append(snap.Connections, s.connections.byID[id].Clone())
	}
	for _, id := range infoCardIDs {
		snap.InfoCards = append(snap.InfoCards, s.infoCards.byID[id].Clone())
	}
	return snap
}

func sortedIDs(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

// Components returns the component list exactly as Denormalize would emit
// it: recorded order when preserved, canonical id order otherwise, every
// entry a deep clone.
func (s *State) Components() []model.Component {
	ids := s.components.allIDs
	if !s.ordered {
		ids = sortedIDs(ids)
	}
	out := make([]model.Component, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.components.byID[id].Clone())
	}
	return out
}

// Connections returns the connection list in Denormalize order.
func (s *State) Connections() []model.Connection {
	ids := s.connections.allIDs
	if !s.ordered {
		ids = sortedIDs(ids)
	}
	out := make([]model.Connection, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.connections.byID[id].Clone())
	}
	return out
}

// InfoCards returns the info-card list in Denormalize order.
func (s *State) InfoCards() []model.InfoCard {
	ids := s.infoCards.allIDs
	if !s.ordered {
		ids = sortedIDs(ids)
	}
	out := make([]model.InfoCard, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.infoCards.byID[id].Clone())
	}
	return out
}
