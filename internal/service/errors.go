// Package service implements the reservation workflows on top of the
// repository layer: availability and requirements checks, request admission
// and the reviewer status transitions.  Services depend on narrow store
// interfaces so tests can exercise the workflows without a database.
package service

import (
	"fmt"

	"github.com/ucampus/lab-reservation/internal/model"
)

// ValidationError reports a rejected input field.  Admission returns it
// before touching any store, so a request that fails field validation never
// causes a query.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError is returned when the requested window collides with
// existing calendar slots.  Handlers translate it into HTTP 409 and include
// the conflicting slots in the response body.
type ConflictError struct {
	Conflicts []model.SlotConflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("window not available: %d conflicting slot(s)", len(e.Conflicts))
}

// StateError reports an operation that is valid in form but not in the
// current state of the target: an inactive lab, a resource out of service,
// a status move the lifecycle graph does not allow.  Maps to HTTP 400.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }
