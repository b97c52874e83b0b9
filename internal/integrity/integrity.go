// Package integrity checks referential consistency of a canvas snapshot.
//
// The checks are pure and run on demand: the store's cascade rules keep the
// live state consistent on their own, so nothing here sits on the mutation
// path. Checking matters at the trust boundaries instead, i.e. documents
// loaded from disk or imported from elsewhere.
package integrity

import (
	"fmt"

	"github.com/easelhq/easel/internal/model"
)

// Issue codes.
const (
	CodeEmptyID       = "empty_id"       // entity with blank ID
	CodeDuplicateID   = "duplicate_id"   // ID repeated within a collection
	CodeMissingSource = "missing_source" // connection source references no component
	CodeMissingTarget = "missing_target" // connection target references no component
	CodeUnknownLayer  = "unknown_layer"  // component references an undeclared layer
)

// Issue is one integrity violation.
type Issue struct {
	Code       string `json:"code"`
	Collection string `json:"collection"`
	ID         string `json:"id,omitempty"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if i.ID != "" {
		return fmt.Sprintf("[%s] %s/%s: %s", i.Code, i.Collection, i.ID, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Collection, i.Message)
}

// Report is the outcome of a check over a whole snapshot.
// All violations are collected; nothing fails fast.
type Report struct {
	Valid  bool    `json:"valid"`
	Errors []Issue `json:"errors,omitempty"`
}

// Check runs the entity-level checks: blank IDs, duplicate IDs per
// collection, and connection endpoints that reference no component.
//
// Layer references cannot be verified from a snapshot alone because the
// layer list is document-level data; use CheckDocument when it is at hand.
func Check(snap model.Snapshot) Report {
	return CheckDocument(snap, nil)
}

// CheckDocument runs Check plus layer reference validation. A component
// naming a layer that layers does not declare is an unknown_layer issue;
// components with an empty layer field are always fine. Passing nil skips
// the layer check entirely.
func CheckDocument(snap model.Snapshot, layers []model.Layer) Report {
	var errs []Issue

	var layerIDs map[string]bool
	if layers != nil {
		layerIDs = make(map[string]bool, len(layers))
		for _, l := range layers {
			layerIDs[l.ID] = true
		}
	}

	componentIDs := make(map[string]bool, len(snap.Components))
	for i, c := range snap.Components {
		if c.ID == "" {
			errs = append(errs, Issue{
				Code:       CodeEmptyID,
				Collection: "components",
				Field:      "id",
				Message:    fmt.Sprintf("components[%d] has an empty id", i),
			})
			continue
		}
		if componentIDs[c.ID] {
			errs = append(errs, Issue{
				Code:       CodeDuplicateID,
				Collection: "components",
				ID:         c.ID,
				Field:      "id",
				Message:    fmt.Sprintf("duplicate component id %q", c.ID),
			})
		}
		componentIDs[c.ID] = true

		if layerIDs != nil && c.Layer != "" && !layerIDs[c.Layer] {
			errs = append(errs, Issue{
				Code:       CodeUnknownLayer,
				Collection: "components",
				ID:         c.ID,
				Field:      "layer",
				Message:    fmt.Sprintf("component %q references undeclared layer %q", c.ID, c.Layer),
			})
		}
	}

	connectionIDs := make(map[string]bool, len(snap.Connections))
	for i, c := range snap.Connections {
		if c.ID == "" {
			errs = append(errs, Issue{
				Code:       CodeEmptyID,
				Collection: "connections",
				Field:      "id",
				Message:    fmt.Sprintf("connections[%d] has an empty id", i),
			})
			continue
		}
		if connectionIDs[c.ID] {
			errs = append(errs, Issue{
				Code:       CodeDuplicateID,
				Collection: "connections",
				ID:         c.ID,
				Field:      "id",
				Message:    fmt.Sprintf("duplicate connection id %q", c.ID),
			})
		}
		connectionIDs[c.ID] = true

		if !componentIDs[c.SourceID] {
			errs = append(errs, Issue{
				Code:       CodeMissingSource,
				Collection: "connections",
				ID:         c.ID,
				Field:      "sourceId",
				Message:    fmt.Sprintf("connection %q source %q references no component", c.ID, c.SourceID),
			})
		}
		if !componentIDs[c.TargetID] {
			errs = append(errs, Issue{
				Code:       CodeMissingTarget,
				Collection: "connections",
				ID:         c.ID,
				Field:      "targetId",
				Message:    fmt.Sprintf("connection %q target %q references no component", c.ID, c.TargetID),
			})
		}
	}

	cardIDs := make(map[string]bool, len(snap.InfoCards))
	for i, c := range snap.InfoCards {
		if c.ID == "" {
			errs = append(errs, Issue{
				Code:       CodeEmptyID,
				Collection: "infoCards",
				Field:      "id",
				Message:    fmt.Sprintf("infoCards[%d] has an empty id", i),
			})
			continue
		}
		if cardIDs[c.ID] {
			errs = append(errs, Issue{
				Code:       CodeDuplicateID,
				Collection: "infoCards",
				ID:         c.ID,
				Field:      "id",
				Message:    fmt.Sprintf("duplicate info card id %q", c.ID),
			})
		}
		cardIDs[c.ID] = true
	}

	return Report{Valid: len(errs) == 0, Errors: errs}
}
