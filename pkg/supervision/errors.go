package supervision

import "errors"

var (
	// ErrInvalidLayout is returned when a directory does not encode a session identity
	ErrInvalidLayout = errors.New("invalid session directory layout")

	// ErrTableNotFound is returned when the booking HTML holds no table body
	ErrTableNotFound = errors.New("booking table not found")
)
