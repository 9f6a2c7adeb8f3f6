// Package apperr defines the sentinel errors shared across service layers.
// Transport code maps them to status codes; everything below returns them
// wrapped.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("invalid path")
	ErrInvalidInput  = errors.New("invalid input")
)
