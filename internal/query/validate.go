package query

import "fmt"

// ValidationResult contains static analysis of a query.
//
// Validation never blocks execution: a query with warnings still runs
// and returns correct results. Warnings flag patterns that are legal
// but probably not what the author meant, or that force a full scan.
type ValidationResult struct {
	// Indexed indicates the query can seed its candidates from a
	// secondary index instead of scanning the whole collection.
	Indexed bool

	// Warnings lists suspicious patterns found in the query.
	Warnings []string
}

// Validate analyzes a query without executing it. It is a pure function
// and never touches a state version.
func Validate(q Select) ValidationResult {
	v := &validator{warnings: []string{}}

	if !ValidCollection(q.From) {
		v.addWarning("unknown collection %q", q.From)
		return ValidationResult{Warnings: v.warnings}
	}

	filters, err := flatten(q.Where)
	if err != nil {
		v.addWarning("%v", err)
		return ValidationResult{Warnings: v.warnings}
	}

	indexed := false
	for _, f := range filters {
		if err := checkApplies(q.From, f); err != nil {
			v.addWarning("%v", err)
			continue
		}
		v.checkFilter(q.From, f)
		if indexable(q.From, f) {
			indexed = true
		}
	}

	if len(filters) == 0 {
		v.addWarning("no filter - every %s entity matches", q.From)
	}

	return ValidationResult{Indexed: indexed, Warnings: v.warnings}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) checkFilter(from Collection, f Filter) {
	switch fv := f.(type) {
	case ByType:
		if fv.Type == "" {
			v.addWarning("empty type matches nothing")
		}
	case ByLayer:
		if fv.Layer == "" {
			v.addWarning("empty layer matches nothing")
		}
	case BySource:
		if fv.ComponentID == "" {
			v.addWarning("empty source component matches nothing")
		}
	case ByTarget:
		if fv.ComponentID == "" {
			v.addWarning("empty target component matches nothing")
		}
	case WithinRect:
		if fv.Empty() {
			v.addWarning("inverted rectangle matches nothing")
		}
		if from == Components {
			v.addWarning("components have no spatial index - rectangle is checked per candidate")
		}
	}
}

// indexable reports whether a filter can seed candidates from an index
// on the collection. The static twin of the planner's seed function.
func indexable(from Collection, f Filter) bool {
	switch f.(type) {
	case ByType:
		return from == Components || from == Connections
	case ByLayer:
		return from == Components
	case BySource, ByTarget:
		return from == Connections
	case WithinRect:
		return from == InfoCards
	default:
		return false
	}
}
