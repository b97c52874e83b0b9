// Package schema validates canvas document files against an embedded CUE
// schema before they are imported. It checks shape: field types, allowed
// enum values, version range and unknown fields. Referential rules
// between entities live in the integrity package; this one never looks
// across entities.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed document.cue
var documentCUE string

// Issue is one schema violation found in a document file.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) Error() string {
	if i.Path != "" {
		return fmt.Sprintf("%s: %s", i.Path, i.Message)
	}
	return i.Message
}

// ValidateDocument checks raw document JSON against the embedded schema
// and returns one issue per violation. A nil issue slice means the
// document conforms.
//
// A non-nil error means validation could not run at all: the input was
// not JSON, or the embedded schema itself failed to compile.
func ValidateDocument(data []byte) ([]Issue, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(documentCUE)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("lookup document definition: %w", err)
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("build document value: %w", err)
	}

	// Concrete forces missing required fields to surface; without it a
	// component lacking "type" would unify to an incomplete value and
	// pass silently.
	unified := def.Unify(doc)
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil, nil
	}

	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		issues = append(issues, Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: bareMessage(e),
		})
	}
	return issues, nil
}

// bareMessage renders one CUE error without the path and position
// prefixes its Error() string would carry.
func bareMessage(e cueerrors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}
