package domain

import "errors"

var (
	ErrInvalidTenant = errors.New("tenant id is required")
	ErrInvalidDraft  = errors.New("asset draft must carry a name")
	ErrNotFound      = errors.New("asset not found")

	// ErrConstraintViolation signals the store rejected a write that the
	// resolver expected to succeed. Unreachable on the serial path, which
	// rides the native constraint; possible on the nameless path under an
	// external concurrent writer.
	ErrConstraintViolation = errors.New("asset uniqueness constraint violated")
)
