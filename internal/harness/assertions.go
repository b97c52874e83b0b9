package harness

import (
	"fmt"
	"strings"

	"github.com/easelhq/easel/internal/store"
)

// AssertionError is returned when an assertion fails. It includes the
// full trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s applied=%v version=%d\n",
			event.Seq, event.Op, event.Applied, event.Version)
	}

	return buf.String()
}

// AssertionContext provides store access for assertions that read
// transient or history state not captured in the final snapshot.
type AssertionContext struct {
	Store *store.Store
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions. The actx
// parameter provides store access for selection, history and guard
// assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertComponentCount, AssertConnectionCount, AssertInfoCardCount:
			err = assertCount(result, assertion)
		case AssertHasComponent, AssertHasConnection, AssertHasInfoCard:
			err = assertPresence(result, assertion)
		case AssertVersion:
			err = assertVersion(result, assertion)
		case AssertSelection:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertions[%d]: %s requires store context", i, assertion.Type)
			} else {
				err = assertSelection(actx.Store, result, assertion)
			}
		case AssertCanUndo, AssertCanRedo, AssertGuardBlocked:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertions[%d]: %s requires store context", i, assertion.Type)
			} else {
				err = assertFlag(actx.Store, result, assertion)
			}
		case AssertHistoryDepth:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertions[%d]: %s requires store context", i, assertion.Type)
			} else {
				err = assertHistoryDepth(actx.Store, result, assertion)
			}
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertCount checks an entity count in the final snapshot.
func assertCount(result *Result, assertion Assertion) error {
	components, connections, infoCards := result.Final.Counts()

	var got int
	var noun string
	switch assertion.Type {
	case AssertComponentCount:
		got, noun = components, "components"
	case AssertConnectionCount:
		got, noun = connections, "connections"
	case AssertInfoCardCount:
		got, noun = infoCards, "info cards"
	}

	if got != assertion.Count {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%d %s", assertion.Count, noun),
			Actual:   fmt.Sprintf("%d %s", got, noun),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertPresence checks whether an entity exists in the final snapshot.
// Absent inverts the check.
func assertPresence(result *Result, assertion Assertion) error {
	var found bool
	var noun string

	switch assertion.Type {
	case AssertHasComponent:
		noun = "component"
		for _, c := range result.Final.Components {
			if c.ID == assertion.ID {
				found = true
				break
			}
		}
	case AssertHasConnection:
		noun = "connection"
		for _, c := range result.Final.Connections {
			if c.ID == assertion.ID {
				found = true
				break
			}
		}
	case AssertHasInfoCard:
		noun = "info card"
		for _, c := range result.Final.InfoCards {
			if c.ID == assertion.ID {
				found = true
				break
			}
		}
	}

	if found == assertion.Absent {
		expected := fmt.Sprintf("%s %q present", noun, assertion.ID)
		actual := "absent"
		if assertion.Absent {
			expected = fmt.Sprintf("%s %q absent", noun, assertion.ID)
			actual = "present"
		}
		return &AssertionError{
			Type:     assertion.Type,
			Expected: expected,
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertVersion checks the store version after the final step.
func assertVersion(result *Result, assertion Assertion) error {
	if result.Version != assertion.Version {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("version %d", assertion.Version),
			Actual:   fmt.Sprintf("version %d", result.Version),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertSelection checks the transient selection. An empty ID asserts
// that nothing is selected.
func assertSelection(st *store.Store, result *Result, assertion Assertion) error {
	got := st.SelectedComponent()
	if got != assertion.ID {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("selection %q", assertion.ID),
			Actual:   fmt.Sprintf("selection %q", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFlag checks a boolean store property against Expect.
func assertFlag(st *store.Store, result *Result, assertion Assertion) error {
	var got bool
	switch assertion.Type {
	case AssertCanUndo:
		got = st.CanUndo()
	case AssertCanRedo:
		got = st.CanRedo()
	case AssertGuardBlocked:
		got = st.GuardBlocked()
	}

	if got != assertion.Expect {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%v", assertion.Expect),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHistoryDepth checks the undo/redo stack depths.
func assertHistoryDepth(st *store.Store, result *Result, assertion Assertion) error {
	past, future := st.HistoryLengths()
	if past != assertion.Past || future != assertion.Future {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("past=%d future=%d", assertion.Past, assertion.Future),
			Actual:   fmt.Sprintf("past=%d future=%d", past, future),
			Trace:    result.Trace,
		}
	}
	return nil
}
