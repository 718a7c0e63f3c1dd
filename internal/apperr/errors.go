// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrStale means a checkbox identity no longer exists in the document.
	ErrStale = errors.New("stale checkbox")
	// ErrSuppressed means a checkbox exists but has no live overlay.
	ErrSuppressed   = errors.New("overlay suppressed")
	ErrInvalidRange = errors.New("invalid range")
)
