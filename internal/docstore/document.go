package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/easelhq/easel/internal/model"
	"github.com/easelhq/easel/internal/normalize"
)

// Document schema version history:
// 1 - components, connections, layers, gridConfig, metadata
// 2 - adds infoCards
const CurrentSchemaVersion = 2

// Document is the persisted form of a canvas: the flat denormalized
// collections plus document-level data, exactly what import/export and the
// revision history store.
type Document struct {
	SchemaVersion int                `json:"schemaVersion"`
	Components    []model.Component  `json:"components"`
	Connections   []model.Connection `json:"connections"`
	InfoCards     []model.InfoCard   `json:"infoCards"`
	Layers        []model.Layer      `json:"layers"`
	GridConfig    model.GridConfig   `json:"gridConfig"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
	SavedAt       time.Time          `json:"savedAt"`
}

// FromState captures a document from an immutable state version.
func FromState(st *normalize.State, savedAt time.Time) Document {
	snap := normalize.Denormalize(st)
	return Document{
		SchemaVersion: CurrentSchemaVersion,
		Components:    snap.Components,
		Connections:   snap.Connections,
		InfoCards:     snap.InfoCards,
		Layers:        orEmptyLayers(st.Layers()),
		GridConfig:    st.Grid(),
		Metadata:      st.Metadata(),
		SavedAt:       savedAt.UTC(),
	}
}

// Snapshot returns the entity collections of the document.
func (d Document) Snapshot() model.Snapshot {
	return model.Snapshot{
		Components:  d.Components,
		Connections: d.Connections,
		InfoCards:   d.InfoCards,
	}
}

// Encode serializes the document to canonical JSON. Canonical bytes make
// the stored content deterministic, so equal documents share a content
// hash across saves and platforms.
func Encode(d Document) ([]byte, error) {
	data, err := model.CanonicalJSON(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses a document, tolerating older and foreign producers:
//   - missing schemaVersion means version 1
//   - missing collections come back empty, never nil
//   - unknown extra fields are ignored
//
// A version newer than CurrentSchemaVersion is rejected; there is no way
// to know what a future writer meant.
func Decode(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}

	if d.SchemaVersion == 0 {
		d.SchemaVersion = 1
	}
	if d.SchemaVersion > CurrentSchemaVersion {
		return Document{}, fmt.Errorf("decode document: schema version %d is newer than supported %d",
			d.SchemaVersion, CurrentSchemaVersion)
	}

	if d.Components == nil {
		d.Components = []model.Component{}
	}
	if d.Connections == nil {
		d.Connections = []model.Connection{}
	}
	if d.InfoCards == nil {
		d.InfoCards = []model.InfoCard{}
	}
	if d.Layers == nil {
		d.Layers = []model.Layer{}
	}

	return d, nil
}

// Export renders the document as pretty-printed JSON with savedAt
// refreshed to the export instant, mirroring what a file handed to the
// user should carry.
func Export(d Document) ([]byte, error) {
	return exportAt(d, time.Now())
}

func exportAt(d Document, now time.Time) ([]byte, error) {
	d.SavedAt = now.UTC()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("export document: %w", err)
	}
	return buf.Bytes(), nil
}

// contentHash digests the canonical encoding for revision bookkeeping.
// SavedAt is zeroed first so that re-saving identical content yields the
// same hash.
func contentHash(d Document) (string, error) {
	d.SavedAt = time.Time{}
	digest, err := model.HashJSON(model.DomainSnapshot, d)
	if err != nil {
		return "", fmt.Errorf("hash document: %w", err)
	}
	return digest, nil
}

func orEmptyLayers(layers []model.Layer) []model.Layer {
	if layers == nil {
		return []model.Layer{}
	}
	return layers
}
