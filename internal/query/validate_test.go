package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func warningsMention(r ValidationResult, substr string) bool {
	for _, w := range r.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidate_IndexedQuery(t *testing.T) {
	result := Validate(Select{From: Components, Where: ByType{Type: "service"}})

	assert.True(t, result.Indexed)
	assert.Empty(t, result.Warnings)
}

func TestValidate_PointerFilters(t *testing.T) {
	result := Validate(Select{From: Connections, Where: &And{Filters: []Filter{
		&BySource{ComponentID: "api"},
	}}})

	assert.True(t, result.Indexed)
	assert.Empty(t, result.Warnings)
}

func TestValidate_MatchAllWarns(t *testing.T) {
	result := Validate(Select{From: Components})

	assert.False(t, result.Indexed)
	assert.True(t, warningsMention(result, "no filter"), "warnings: %v", result.Warnings)
}

func TestValidate_ComponentRectNotIndexed(t *testing.T) {
	result := Validate(Select{From: Components, Where: WithinRect{MaxX: 500, MaxY: 200}})

	assert.False(t, result.Indexed)
	assert.True(t, warningsMention(result, "spatial index"), "warnings: %v", result.Warnings)
}

func TestValidate_InfoCardRectIndexed(t *testing.T) {
	result := Validate(Select{From: InfoCards, Where: WithinRect{MaxX: 500, MaxY: 200}})

	assert.True(t, result.Indexed)
	assert.Empty(t, result.Warnings)
}

func TestValidate_MixedFiltersStillIndexed(t *testing.T) {
	// The rectangle cannot seed components, but the type filter can.
	result := Validate(Select{From: Components, Where: And{Filters: []Filter{
		WithinRect{MaxX: 500, MaxY: 200},
		ByType{Type: "service"},
	}}})

	assert.True(t, result.Indexed)
	assert.True(t, warningsMention(result, "spatial index"), "warnings: %v", result.Warnings)
}

func TestValidate_EmptyKeys(t *testing.T) {
	cases := []struct {
		name string
		q    Select
		want string
	}{
		{"empty type", Select{From: Components, Where: ByType{}}, "empty type"},
		{"empty layer", Select{From: Components, Where: ByLayer{}}, "empty layer"},
		{"empty source", Select{From: Connections, Where: BySource{}}, "empty source"},
		{"empty target", Select{From: Connections, Where: ByTarget{}}, "empty target"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.q)
			assert.True(t, warningsMention(result, tc.want), "warnings: %v", result.Warnings)
		})
	}
}

func TestValidate_InvertedRect(t *testing.T) {
	result := Validate(Select{From: InfoCards, Where: WithinRect{MinX: 10, MaxX: 0, MaxY: 5}})

	assert.True(t, warningsMention(result, "inverted"), "warnings: %v", result.Warnings)
}

func TestValidate_MisappliedFilter(t *testing.T) {
	result := Validate(Select{From: Connections, Where: ByLayer{Layer: "data"}})

	assert.False(t, result.Indexed)
	assert.True(t, warningsMention(result, "does not apply"), "warnings: %v", result.Warnings)
}

func TestValidate_UnknownCollection(t *testing.T) {
	result := Validate(Select{From: "widgets"})

	assert.False(t, result.Indexed)
	assert.True(t, warningsMention(result, "unknown collection"), "warnings: %v", result.Warnings)
}
