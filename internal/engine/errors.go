// Package engine coordinates the reservation ledger and the per-date
// occupancy documents.  Error values below are the whole failure
// vocabulary callers see; handlers translate them into HTTP codes and
// stable reason strings.
package engine

import "errors"

// ErrUnavailable means the requested party cannot be seated on the
// requested date.  An expected outcome, not retryable.
var ErrUnavailable = errors.New("unavailable")

// ErrContention means an optimistic transaction could not commit within
// its retry budget.  The caller may retry the whole operation.
var ErrContention = errors.New("contention")

// ErrNotFound means no active reservation exists for the given ID.
var ErrNotFound = errors.New("reservation not found")

// ErrPermissionDenied means the requesting user neither owns the
// reservation nor holds the admin override.
var ErrPermissionDenied = errors.New("permission denied")

// ErrInvalidInput means a malformed date, time or party size.
var ErrInvalidInput = errors.New("invalid input")

// ErrStorageUnavailable wraps faults from the backing store.  Fatal to
// the request; the engine does not retry them.
var ErrStorageUnavailable = errors.New("storage unavailable")
