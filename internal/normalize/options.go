package normalize

// Options control how a snapshot is normalized.
type Options struct {
	// GenerateIDs assigns a fresh unique id to any entity missing one
	// instead of rejecting it.
	GenerateIDs bool

	// PreserveOrder records the input array order so Denormalize can emit
	// it unchanged. Without it, Denormalize emits canonical order (ids
	// ascending) so exports and golden files stay stable.
	PreserveOrder bool

	// GridSize is the spatial bucket size for the info-card index.
	// Zero or negative means DefaultGridSize.
	GridSize float64

	// IDs supplies generated ids. Nil means UUIDv7Generator.
	IDs IDGenerator
}

func (o Options) withDefaults() Options {
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
	if o.IDs == nil {
		o.IDs = UUIDv7Generator{}
	}
	return o
}
