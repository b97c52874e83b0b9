package normalize

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7GeneratorProducesValidUUIDs(t *testing.T) {
	gen := UUIDv7Generator{}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		assert.False(t, seen[id], "ids must be unique")
		seen[id] = true
	}
}

func TestFixedGeneratorReturnsInOrder(t *testing.T) {
	gen := NewFixedGenerator("a", "b", "c")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Equal(t, "c", gen.Generate())
}

func TestFixedGeneratorPanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	gen.Generate()

	assert.Panics(t, func() { gen.Generate() })
}
