package docstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/easelhq/easel/internal/model"
)

// createTestStore opens a store backed by a throwaway database file.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDocument builds a small document with one of each entity kind.
// Property and metadata values are strings so decoded documents compare
// cleanly against the original.
func createTestDocument(savedAt time.Time) Document {
	return Document{
		SchemaVersion: CurrentSchemaVersion,
		Components: []model.Component{
			{ID: "web", Type: "service", X: 100, Y: 200},
			{ID: "db", Type: "database", X: 400, Y: 200, Properties: map[string]any{"engine": "postgres"}},
		},
		Connections: []model.Connection{
			{ID: "web-db", SourceID: "web", TargetID: "db", Type: "query", Direction: model.DirectionEnd},
		},
		InfoCards: []model.InfoCard{
			{ID: "note", X: 250, Y: 50, Content: "hot path"},
		},
		Layers: []model.Layer{
			{ID: "infra", Name: "Infrastructure", Visible: true},
		},
		GridConfig: model.GridConfig{Spacing: 100, Visible: true, SnapEnabled: true},
		Metadata:   map[string]any{"title": "checkout"},
		SavedAt:    savedAt,
	}
}

// mustEncode encodes a document to canonical JSON or fails the test.
func mustEncode(t *testing.T, d Document) string {
	t.Helper()
	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	return string(data)
}
