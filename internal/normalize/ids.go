package normalize

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator supplies ids for entities created without one
// (Options.GenerateIDs).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 entity ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time, which keeps canonical-order denormalization close to
// creation order and helps when eyeballing exported documents.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids for testing. This enables
// deterministic normalization output and golden trace comparison.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal
// mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("c-1", "c-2")
//	gen.Generate() // "c-1"
//	gen.Generate() // "c-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics when all ids have been consumed: fail fast on a test that creates
// more entities than it declared.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
