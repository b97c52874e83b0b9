package query

import (
	"fmt"
	"slices"

	"github.com/easelhq/easel/internal/normalize"
)

// Plan describes how one query executes against a state version.
// Produced by Explain for diagnostics output.
type Plan struct {
	From       Collection `json:"from"`
	Index      string     `json:"index"`         // index that seeds candidates, or "scan"
	Key        string     `json:"key,omitempty"` // key looked up in the seeding index
	Candidates int        `json:"candidates"`    // seeded candidate count
	Checks     int        `json:"checks"`        // filters applied per candidate
}

// Run executes the query against a state version and returns matching
// ids sorted ascending. The sort makes results independent of index
// bucket order, so the same state version always yields the same slice.
func Run(st *normalize.State, q Select) ([]string, error) {
	_, ids, err := execute(st, q)
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// Explain plans and executes the query, returning the plan instead of
// the results.
func Explain(st *normalize.State, q Select) (Plan, error) {
	plan, _, err := execute(st, q)
	return plan, err
}

func execute(st *normalize.State, q Select) (Plan, []string, error) {
	if st == nil {
		return Plan{}, nil, fmt.Errorf("query: nil state")
	}
	if !ValidCollection(q.From) {
		return Plan{}, nil, fmt.Errorf("query: unknown collection %q", q.From)
	}

	filters, err := flatten(q.Where)
	if err != nil {
		return Plan{}, nil, err
	}
	for _, f := range filters {
		if err := checkApplies(q.From, f); err != nil {
			return Plan{}, nil, err
		}
	}

	// Seed from the narrowest index. Every other filter becomes a
	// per-candidate check, so the query never touches more entities than
	// its cheapest index bucket holds.
	seedAt := -1
	var seedIDs []string
	var seedIndex, seedKey string
	for i, f := range filters {
		ids, index, key, ok := seed(st, q.From, f)
		if !ok {
			continue
		}
		if seedAt == -1 || len(ids) < len(seedIDs) {
			seedAt, seedIDs, seedIndex, seedKey = i, ids, index, key
		}
	}
	if seedAt == -1 {
		seedIDs, seedIndex = scan(st, q.From), "scan"
	}

	var out []string
	for _, id := range seedIDs {
		matched := true
		for i, f := range filters {
			if i == seedAt {
				continue
			}
			if !match(st, q.From, f, id) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, id)
		}
	}

	checks := len(filters)
	if seedAt >= 0 {
		checks--
	}
	plan := Plan{
		From:       q.From,
		Index:      seedIndex,
		Key:        seedKey,
		Candidates: len(seedIDs),
		Checks:     checks,
	}
	return plan, out, nil
}

// flatten normalizes a filter tree into a flat conjunction. Pointer and
// value forms are accepted; everything downstream sees values.
func flatten(f Filter) ([]Filter, error) {
	if f == nil {
		return nil, nil
	}
	switch v := f.(type) {
	case And:
		var out []Filter
		for _, sub := range v.Filters {
			if sub == nil {
				return nil, fmt.Errorf("query: nil filter inside And")
			}
			subs, err := flatten(sub)
			if err != nil {
				return nil, err
			}
			out = append(out, subs...)
		}
		return out, nil
	case *And:
		return flatten(*v)
	case ByType:
		return []Filter{v}, nil
	case *ByType:
		return []Filter{*v}, nil
	case ByLayer:
		return []Filter{v}, nil
	case *ByLayer:
		return []Filter{*v}, nil
	case BySource:
		return []Filter{v}, nil
	case *BySource:
		return []Filter{*v}, nil
	case ByTarget:
		return []Filter{v}, nil
	case *ByTarget:
		return []Filter{*v}, nil
	case WithinRect:
		return []Filter{v}, nil
	case *WithinRect:
		return []Filter{*v}, nil
	default:
		return nil, fmt.Errorf("query: unsupported filter type %T", f)
	}
}

// checkApplies rejects filters that cannot be evaluated against the
// collection at all. Filters that merely lack an index stay legal and
// run as per-candidate checks.
func checkApplies(from Collection, f Filter) error {
	switch f.(type) {
	case ByType:
		if from == InfoCards {
			return fmt.Errorf("query: ByType does not apply to %s", from)
		}
	case ByLayer:
		if from != Components {
			return fmt.Errorf("query: ByLayer does not apply to %s", from)
		}
	case BySource:
		if from != Connections {
			return fmt.Errorf("query: BySource does not apply to %s", from)
		}
	case ByTarget:
		if from != Connections {
			return fmt.Errorf("query: ByTarget does not apply to %s", from)
		}
	case WithinRect:
		if from == Connections {
			return fmt.Errorf("query: WithinRect does not apply to %s", from)
		}
	}
	return nil
}

// seed returns the candidate ids an index yields for the filter, or
// ok=false when the filter has no index on this collection.
func seed(st *normalize.State, from Collection, f Filter) (ids []string, index, key string, ok bool) {
	switch v := f.(type) {
	case ByType:
		switch from {
		case Components:
			return st.ComponentIDsByType(v.Type), "type", v.Type, true
		case Connections:
			return st.ConnectionIDsByType(v.Type), "type", v.Type, true
		}
	case ByLayer:
		return st.ComponentIDsByLayer(v.Layer), "layer", v.Layer, true
	case BySource:
		return st.ConnectionIDsBySource(v.ComponentID), "source", v.ComponentID, true
	case ByTarget:
		return st.ConnectionIDsByTarget(v.ComponentID), "target", v.ComponentID, true
	case WithinRect:
		if from == InfoCards {
			key := fmt.Sprintf("(%g,%g)-(%g,%g)", v.MinX, v.MinY, v.MaxX, v.MaxY)
			return st.InfoCardIDsInRect(v.MinX, v.MinY, v.MaxX, v.MaxY), "position", key, true
		}
	}
	return nil, "", "", false
}

func scan(st *normalize.State, from Collection) []string {
	switch from {
	case Components:
		return st.ComponentIDs()
	case Connections:
		return st.ConnectionIDs()
	default:
		return st.InfoCardIDs()
	}
}

// match evaluates one filter against one entity. Empty keys never
// match, mirroring the secondary indexes, which do not index empty
// values; the seeded and scanned paths agree that way.
func match(st *normalize.State, from Collection, f Filter, id string) bool {
	switch v := f.(type) {
	case ByType:
		if v.Type == "" {
			return false
		}
		if from == Components {
			c, ok := st.Component(id)
			return ok && c.Type == v.Type
		}
		cn, ok := st.Connection(id)
		return ok && cn.Type == v.Type
	case ByLayer:
		if v.Layer == "" {
			return false
		}
		c, ok := st.Component(id)
		return ok && c.Layer == v.Layer
	case BySource:
		if v.ComponentID == "" {
			return false
		}
		cn, ok := st.Connection(id)
		return ok && cn.SourceID == v.ComponentID
	case ByTarget:
		if v.ComponentID == "" {
			return false
		}
		cn, ok := st.Connection(id)
		return ok && cn.TargetID == v.ComponentID
	case WithinRect:
		if from == Components {
			c, ok := st.Component(id)
			return ok && v.contains(c.X, c.Y)
		}
		card, ok := st.InfoCard(id)
		return ok && v.contains(card.X, card.Y)
	default:
		return false
	}
}
