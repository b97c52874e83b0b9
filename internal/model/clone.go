package model

// Deep clones for every entity type. The store's copy-on-write state shares
// entity pointers across versions, so anything that leaves the store (a
// denormalized snapshot, a subscriber payload) must be cloned first: a
// caller scribbling on a snapshot must not reach back into history entries.

// CloneProperties deep-copies a free-form property map, including nested
// maps and slices. Returns nil for a nil input so omitempty keeps working.
func CloneProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = cloneValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		// Scalars (and anything opaque) are copied by value.
		return val
	}
}

// Clone returns a deep copy of the component.
func (c Component) Clone() Component {
	c.Properties = CloneProperties(c.Properties)
	return c
}

// Clone returns a deep copy of the connection.
func (c Connection) Clone() Connection {
	c.Properties = CloneProperties(c.Properties)
	return c
}

// Clone returns a copy of the info card. InfoCard has no reference fields,
// so a value copy is already deep; the method exists for symmetry at
// generic call sites.
func (c InfoCard) Clone() InfoCard {
	return c
}

// CloneComponents deep-copies a component slice, preserving order.
func CloneComponents(in []Component) []Component {
	if in == nil {
		return nil
	}
	out := make([]Component, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// CloneConnections deep-copies a connection slice, preserving order.
func CloneConnections(in []Connection) []Connection {
	if in == nil {
		return nil
	}
	out := make([]Connection, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// CloneInfoCards copies an info-card slice, preserving order.
func CloneInfoCards(in []InfoCard) []InfoCard {
	if in == nil {
		return nil
	}
	out := make([]InfoCard, len(in))
	copy(out, in)
	return out
}

// CloneLayers copies a layer slice, preserving order.
func CloneLayers(in []Layer) []Layer {
	if in == nil {
		return nil
	}
	out := make([]Layer, len(in))
	copy(out, in)
	return out
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Components:  CloneComponents(s.Components),
		Connections: CloneConnections(s.Connections),
		InfoCards:   CloneInfoCards(s.InfoCards),
	}
}
