package domain

import "errors"

var (
	ErrInvalidName        = errors.New("tenant name is required")
	ErrInvalidExternalOrg = errors.New("external org id is required")
	ErrNotFound      = errors.New("tenant not found")
	ErrSlugTaken     = errors.New("tenant slug already in use")
	ErrAlreadyMapped = errors.New("tenant already mapped to an external organization")
)
