// Package history implements the bounded undo/redo stacks behind the store.
//
// Entries are normalized state values. States are copy-on-write: pushing one
// retains the pointer, and unchanged collection tables stay shared between
// neighbouring entries, so retention cost tracks what each edit touched
// rather than total document size.
package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/easelhq/easel/internal/normalize"
)

// DefaultLimit is the default capacity of each stack.
const DefaultLimit = 50

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "easel_history_operations_total",
	Help: "History operations by kind (push, undo, redo).",
}, []string{"op"})

// History holds the past and future stacks for one store.
//
// Overflow discards the oldest entry. Undo moves the current state onto
// future and returns the top of past; Redo is the mirror image. A mutation
// push clears future, so a redo branch never survives a new edit.
//
// The owning store serializes all calls; History itself is not safe for
// concurrent use.
type History struct {
	limit  int
	past   []*normalize.State
	future []*normalize.State
}

// New creates a history with the given per-stack capacity.
//
// A non-positive limit falls back to DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Push records the pre-mutation state and clears the redo branch.
func (h *History) Push(pre *normalize.State) {
	if pre == nil {
		return
	}
	h.past = push(h.past, pre, h.limit)
	h.future = h.future[:0]
	operationsTotal.WithLabelValues("push").Inc()
}

// Undo returns the most recent past state, moving current onto future.
//
// Reports false, with a nil state, when there is nothing to undo; current
// is untouched in that case.
func (h *History) Undo(current *normalize.State) (*normalize.State, bool) {
	if len(h.past) == 0 {
		return nil, false
	}
	top := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = push(h.future, current, h.limit)
	operationsTotal.WithLabelValues("undo").Inc()
	return top, true
}

// Redo returns the most recently undone state, moving current back onto
// past.
//
// Reports false, with a nil state, when there is nothing to redo.
func (h *History) Redo(current *normalize.State) (*normalize.State, bool) {
	if len(h.future) == 0 {
		return nil, false
	}
	top := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = push(h.past, current, h.limit)
	operationsTotal.WithLabelValues("redo").Inc()
	return top, true
}

// Lengths returns the current stack depths.
func (h *History) Lengths() (past, future int) {
	return len(h.past), len(h.future)
}

// CanUndo reports whether an Undo would succeed.
func (h *History) CanUndo() bool {
	return len(h.past) > 0
}

// CanRedo reports whether a Redo would succeed.
func (h *History) CanRedo() bool {
	return len(h.future) > 0
}

// Clear empties both stacks.
//
// Used on project reset and after loading a document.
func (h *History) Clear() {
	h.past = h.past[:0]
	h.future = h.future[:0]
}

// push appends onto a bounded stack, discarding the oldest entry when full.
func push(stack []*normalize.State, s *normalize.State, limit int) []*normalize.State {
	if len(stack) >= limit {
		n := copy(stack, stack[len(stack)-limit+1:])
		stack = stack[:n]
	}
	return append(stack, s)
}
