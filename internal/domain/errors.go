package domain

import "errors"

var (
	// ErrValidation marks inputs rejected before touching storage.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state transitions refused by the current record state.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTimeZone marks an unresolvable IANA zone name. It is fatal
	// to a single calculation only and is caught per record.
	ErrInvalidTimeZone = errors.New("invalid time zone")
)
