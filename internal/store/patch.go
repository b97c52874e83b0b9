package store

import "github.com/easelhq/easel/internal/model"

// ComponentPatch updates a subset of a component's fields. Nil fields are
// left untouched; Properties, when non-nil, replaces the whole map rather
// than merging keys.
type ComponentPatch struct {
	Type       *string
	X          *float64
	Y          *float64
	Width      *float64
	Height     *float64
	Layer      *string
	Group      *string
	Properties map[string]any
}

// applyTo returns c with the patch applied. c is the caller's private
// copy; patch maps are cloned so the patch can be reused safely.
func (p ComponentPatch) applyTo(c model.Component) model.Component {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.X != nil {
		c.X = *p.X
	}
	if p.Y != nil {
		c.Y = *p.Y
	}
	if p.Width != nil {
		c.Width = *p.Width
	}
	if p.Height != nil {
		c.Height = *p.Height
	}
	if p.Layer != nil {
		c.Layer = *p.Layer
	}
	if p.Group != nil {
		c.Group = *p.Group
	}
	if p.Properties != nil {
		c.Properties = model.CloneProperties(p.Properties)
	}
	return c
}

// ConnectionPatch updates a subset of a connection's fields. Endpoint
// changes are validated against the current components.
type ConnectionPatch struct {
	SourceID   *string
	TargetID   *string
	Type       *string
	Label      *string
	Style      *string
	Direction  *model.Direction
	Properties map[string]any
}

func (p ConnectionPatch) applyTo(c model.Connection) model.Connection {
	if p.SourceID != nil {
		c.SourceID = *p.SourceID
	}
	if p.TargetID != nil {
		c.TargetID = *p.TargetID
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Label != nil {
		c.Label = *p.Label
	}
	if p.Style != nil {
		c.Style = *p.Style
	}
	if p.Direction != nil {
		c.Direction = *p.Direction
	}
	if p.Properties != nil {
		c.Properties = model.CloneProperties(p.Properties)
	}
	return c
}

// InfoCardPatch updates a subset of an info card's fields.
type InfoCardPatch struct {
	X       *float64
	Y       *float64
	Content *string
}

func (p InfoCardPatch) applyTo(c model.InfoCard) model.InfoCard {
	if p.X != nil {
		c.X = *p.X
	}
	if p.Y != nil {
		c.Y = *p.Y
	}
	if p.Content != nil {
		c.Content = *p.Content
	}
	return c
}

// Partial is a partial snapshot for UpdateCanvasData. Nil fields leave
// that part of the canvas untouched; a non-nil empty slice or map clears
// it.
type Partial struct {
	Components  []model.Component
	Connections []model.Connection
	InfoCards   []model.InfoCard
	Layers      []model.Layer
	Grid        *model.GridConfig
	Metadata    map[string]any
}
