package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easelhq/easel/internal/docstore"
	"github.com/easelhq/easel/internal/integrity"
	"github.com/easelhq/easel/internal/schema"
)

func TestDocument_Deterministic(t *testing.T) {
	first, err := docstore.Encode(Document())
	require.NoError(t, err)
	second, err := docstore.Encode(Document())
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestDocument_PassesIntegrityCheck(t *testing.T) {
	doc := Document()

	report := integrity.CheckDocument(doc.Snapshot(), doc.Layers)
	assert.True(t, report.Valid, "issues: %v", report.Errors)
}

func TestDocument_PassesSchemaValidation(t *testing.T) {
	data, err := docstore.Encode(Document())
	require.NoError(t, err)

	issues, verr := schema.ValidateDocument(data)
	require.NoError(t, verr)
	assert.Empty(t, issues)
}

func TestDocument_Shape(t *testing.T) {
	doc := Document()

	assert.Len(t, doc.Components, 4)
	assert.Len(t, doc.Connections, 3)
	assert.Len(t, doc.InfoCards, 1)
	assert.Len(t, doc.Layers, 2)
	assert.Equal(t, docstore.CurrentSchemaVersion, doc.SchemaVersion)
	assert.True(t, doc.SavedAt.IsZero(), "savedAt is stamped at save time, not here")
}
