package domain

import "errors"

// Sentinel errors returned by services and repositories. Controllers map
// these to client-error responses; anything else is a server error.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)
