// Package apperr holds the sentinel errors shared by the service layers.
// Handlers map them to HTTP status codes with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
)
