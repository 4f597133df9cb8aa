// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrInvalidState indicates a status transition attempted from a status that
// does not permit it. The prior decision is left untouched.
var ErrInvalidState = errors.New("invalid state for requested transition")

// ErrAlreadyExpired indicates a signal whose expiry has passed; it can no
// longer be resolved even if the sweep has not flipped it yet.
var ErrAlreadyExpired = errors.New("signal already expired")

// ErrUndoNotAvailable indicates an undo attempted outside the grace window or
// on a resolution type that does not support it.
var ErrUndoNotAvailable = errors.New("undo not available")

// ErrCollaborator indicates a downstream collaborator call failed. The
// originating action records the failure; retry is a human decision.
var ErrCollaborator = errors.New("collaborator call failed")

// ErrValidation indicates invalid caller input.
var ErrValidation = errors.New("validation failed")
