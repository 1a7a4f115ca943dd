package service

import (
	"errors"

	"consultdesk/internal/domain"
)

// Error kinds. Callers test with errors.Is; the HTTP layer maps each kind to a
// status code.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrNotFound           = domain.ErrNotFound
)

// Error carries a caller-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
