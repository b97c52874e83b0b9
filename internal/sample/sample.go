// Package sample provides the built-in example canvas used by first runs,
// demos and tests. Every id and position is fixed so the document encodes
// to the same canonical bytes on every call.
package sample

import (
	"github.com/easelhq/easel/internal/docstore"
	"github.com/easelhq/easel/internal/model"
)

// DocumentID is the id the sample document is saved under.
const DocumentID = "sample"

// Document returns the example canvas: a small web stack with a frontend,
// an API gateway, a database and an auth service, wired the way the
// services depend on each other.
func Document() docstore.Document {
	return docstore.Document{
		SchemaVersion: docstore.CurrentSchemaVersion,
		Components: []model.Component{
			{
				ID:    "user-interface",
				Type:  "frontend",
				X:     100,
				Y:     100,
				Layer: "application",
				Properties: map[string]any{
					"description": "React-based user interface",
					"framework":   "React",
					"language":    "TypeScript",
					"status":      "in-progress",
				},
			},
			{
				ID:    "api-gateway",
				Type:  "api",
				X:     400,
				Y:     100,
				Layer: "application",
				Properties: map[string]any{
					"description": "RESTful API for handling client requests",
					"status":      "done",
				},
			},
			{
				ID:    "database",
				Type:  "database",
				X:     700,
				Y:     100,
				Layer: "data",
				Properties: map[string]any{
					"description": "PostgreSQL database for data persistence",
					"status":      "done",
				},
			},
			{
				ID:    "auth-service",
				Type:  "service",
				X:     400,
				Y:     300,
				Layer: "application",
				Properties: map[string]any{
					"description": "JWT-based authentication and authorization",
					"status":      "testing",
				},
			},
		},
		Connections: []model.Connection{
			{
				ID:        "ui-gateway",
				SourceID:  "user-interface",
				TargetID:  "api-gateway",
				Type:      "depends-on",
				Label:     "REST",
				Direction: model.DirectionEnd,
			},
			{
				ID:        "gateway-db",
				SourceID:  "api-gateway",
				TargetID:  "database",
				Type:      "depends-on",
				Label:     "SQL",
				Direction: model.DirectionEnd,
			},
			{
				ID:        "auth-db",
				SourceID:  "auth-service",
				TargetID:  "database",
				Type:      "depends-on",
				Label:     "SQL",
				Direction: model.DirectionEnd,
			},
		},
		InfoCards: []model.InfoCard{
			{
				ID:      "welcome",
				X:       100,
				Y:       320,
				Content: "Sample architecture. Edit freely, the original is one `easel init --sample` away.",
			},
		},
		Layers: []model.Layer{
			{ID: "application", Name: "Application", Visible: true, Order: 1},
			{ID: "data", Name: "Data", Visible: true, Order: 2},
		},
		GridConfig: model.GridConfig{
			Spacing:     100,
			Visible:     true,
			SnapEnabled: true,
		},
		Metadata: map[string]any{
			"title":       "Sample Architecture",
			"description": "A sample project demonstrating the canvas",
		},
	}
}
