package normalize

import (
	"fmt"
	"slices"

	"github.com/easelhq/easel/internal/model"
)

// Normalize converts an array-of-entities snapshot into the indexed form.
// It runs in time linear in the entity count: one pass per collection, with
// every index entry appended during that same pass.
//
// Duplicate ids within a collection and (unless Options.GenerateIDs) empty
// ids are rejected. Referential integrity of connection endpoints is NOT
// enforced here: persisted documents from older versions may carry dangling
// edges, and the tolerant read path must still be able to normalize them.
// The store's mutation surface and the integrity package enforce endpoints.
func Normalize(snap model.Snapshot, opts Options) (*State, error) {
	opts = opts.withDefaults()

	components := snap.Components
	connections := snap.Connections
	infoCards := snap.InfoCards
	if opts.GenerateIDs {
		components = withGeneratedComponentIDs(components, opts.IDs)
		connections = withGeneratedConnectionIDs(connections, opts.IDs)
		infoCards = withGeneratedInfoCardIDs(infoCards, opts.IDs)
	}

	componentTable, err := buildComponentTable(components)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	connectionTable, err := buildConnectionTable(connections)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	infoCardTable, err := buildInfoCardTable(infoCards, opts.GridSize)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	return &State{
		components:  componentTable,
		connections: connectionTable,
		infoCards:   infoCardTable,
		gridSize:    opts.GridSize,
		ordered:     opts.PreserveOrder,
	}, nil
}

func withGeneratedComponentIDs(list []model.Component, gen IDGenerator) []model.Component {
	out := list
	copied := false
	for i, c := range list {
		if c.ID != "" {
			continue
		}
		if !copied {
			out = slices.Clone(list)
			copied = true
		}
		c.ID = gen.Generate()
		out[i] = c
	}
	return out
}

func withGeneratedConnectionIDs(list []model.Connection, gen IDGenerator) []model.Connection {
	out := list
	copied := false
	for i, c := range list {
		if c.ID != "" {
			continue
		}
		if !copied {
			out = slices.Clone(list)
			copied = true
		}
		c.ID = gen.Generate()
		out[i] = c
	}
	return out
}

func withGeneratedInfoCardIDs(list []model.InfoCard, gen IDGenerator) []model.InfoCard {
	out := list
	copied := false
	for i, c := range list {
		if c.ID != "" {
			continue
		}
		if !copied {
			out = slices.Clone(list)
			copied = true
		}
		c.ID = gen.Generate()
		out[i] = c
	}
	return out
}

// VerifyRoundTrip normalizes the snapshot, denormalizes the result and
// compares it against the input. A divergence is a MismatchError: a defect
// in the normalizer or its index maintenance, for tests to catch.
//
// With PreserveOrder the comparison is exact including order; without it
// both sides are compared in canonical id order. Nil and empty collections
// are treated alike, since denormalization always produces real slices.
func VerifyRoundTrip(snap model.Snapshot, opts Options) error {
	st, err := Normalize(snap, opts)
	if err != nil {
		return err
	}
	got := Denormalize(st)

	want := model.Snapshot{
		Components:  slices.Clone(snap.Components),
		Connections: slices.Clone(snap.Connections),
		InfoCards:   slices.Clone(snap.InfoCards),
	}
	if want.Components == nil {
		want.Components = []model.Component{}
	}
	if want.Connections == nil {
		want.Connections = []model.Connection{}
	}
	if want.InfoCards == nil {
		want.InfoCards = []model.InfoCard{}
	}
	if !opts.PreserveOrder {
		slices.SortFunc(want.Components, func(a, b model.Component) int {
			return compareID(a.ID, b.ID)
		})
		slices.SortFunc(want.Connections, func(a, b model.Connection) int {
			return compareID(a.ID, b.ID)
		})
		slices.SortFunc(want.InfoCards, func(a, b model.InfoCard) int {
			return compareID(a.ID, b.ID)
		})
	}

	if !model.Equal(got.Components, want.Components) {
		return &MismatchError{Detail: "components diverged"}
	}
	if !model.Equal(got.Connections, want.Connections) {
		return &MismatchError{Detail: "connections diverged"}
	}
	if !model.Equal(got.InfoCards, want.InfoCards) {
		return &MismatchError{Detail: "infoCards diverged"}
	}
	return nil
}

func compareID(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
