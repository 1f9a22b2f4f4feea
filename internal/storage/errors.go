package storage

import "errors"

// Sentinel errors shared by every store adapter. Handlers map these onto
// HTTP statuses; not-found takes precedence over forbidden when both apply.
var (
	ErrNotFound  = errors.New("storage: not found")
	ErrForbidden = errors.New("storage: forbidden")
	ErrConflict  = errors.New("storage: conflict")
	ErrInvalid   = errors.New("storage: invalid input")
)
