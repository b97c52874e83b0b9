package normalize

import (
	"errors"
	"fmt"
)

// DuplicateIDError reports an id appearing more than once within a single
// collection, which would make byId lossy.
type DuplicateIDError struct {
	Collection string
	ID         string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %q in %s", e.ID, e.Collection)
}

// IsDuplicateIDError reports whether err is a DuplicateIDError.
func IsDuplicateIDError(err error) bool {
	var target *DuplicateIDError
	return errors.As(err, &target)
}

// EmptyIDError reports an entity arriving without an id when id generation
// was not requested. An empty id cannot be keyed or referenced.
type EmptyIDError struct {
	Collection string
}

func (e *EmptyIDError) Error() string {
	return fmt.Sprintf("entity in %s has no id (enable id generation or supply one)", e.Collection)
}

// IsEmptyIDError reports whether err is an EmptyIDError.
func IsEmptyIDError(err error) bool {
	var target *EmptyIDError
	return errors.As(err, &target)
}

// NotFoundError reports an operation against an id the collection does not
// contain. Store callers treat it as a benign no-op; direct callers can
// inspect it.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s id %q not found", e.Collection, e.ID)
}

// IsNotFoundError reports whether err is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// EndpointError reports a connection referencing a component id that does
// not exist. Accepting it would break referential integrity, so the
// mutation carrying it is rejected.
type EndpointError struct {
	ConnectionID string
	Field        string // "sourceId" or "targetId"
	ComponentID  string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("connection %q %s references missing component %q",
		e.ConnectionID, e.Field, e.ComponentID)
}

// IsEndpointError reports whether err is an EndpointError.
func IsEndpointError(err error) bool {
	var target *EndpointError
	return errors.As(err, &target)
}

// MismatchError reports that denormalize(normalize(x)) diverged from x.
// This is a programming defect in the normalizer or its indexes, caught by
// tests, never a runtime condition to recover from.
type MismatchError struct {
	Detail string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("normalization round trip mismatch: %s", e.Detail)
}

// IsMismatchError reports whether err is a MismatchError.
func IsMismatchError(err error) bool {
	var target *MismatchError
	return errors.As(err, &target)
}
