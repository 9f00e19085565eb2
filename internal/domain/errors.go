package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthRequired       = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicate          = errors.New("duplicate identity")
	ErrNotFound           = errors.New("not found")
	ErrUpstream           = errors.New("upstream provider error")
	ErrExhausted          = errors.New("resource exhausted")
)

// Error carries a client-facing message on top of one of the sentinels above.
type Error struct {
	Err     error
	Message string
	Field   string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

func Validation(field, msg string) *Error {
	return &Error{Err: ErrValidation, Message: msg, Field: field}
}

func InvalidCredentials() *Error {
	return &Error{Err: ErrInvalidCredentials, Message: "invalid email or password"}
}

func AuthRequired() *Error {
	return &Error{Err: ErrAuthRequired, Message: "authentication required"}
}

func Forbidden(msg string) *Error { return &Error{Err: ErrForbidden, Message: msg} }

func Duplicate(field string) *Error {
	return &Error{Err: ErrDuplicate, Message: fmt.Sprintf("%s already in use", field), Field: field}
}

func NotFound(resource string) *Error {
	return &Error{Err: ErrNotFound, Message: resource + " not found"}
}

// Upstream wraps a failed call to an identity provider. cause is kept for logs only.
func Upstream(provider string, cause error) *Error {
	return &Error{
		Err:     fmt.Errorf("%w: %s: %w", ErrUpstream, provider, cause),
		Message: provider + " sign-in failed",
	}
}

// DuplicateKeyError is returned by stores when a unique index rejects a write.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string { return "duplicate key on " + e.Field }
func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicate }

func DuplicateField(err error) (string, bool) {
	var dk *DuplicateKeyError
	if errors.As(err, &dk) {
		return dk.Field, true
	}
	return "", false
}

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidCredentials
	KindAuthRequired
	KindForbidden
	KindDuplicate
	KindNotFound
	KindUpstream
	KindExhausted
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrAuthRequired):
		return KindAuthRequired
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, ErrExhausted):
		return KindExhausted
	}
	return KindInternal
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAuthRequired:
		return "authentication_required"
	case KindForbidden:
		return "forbidden"
	case KindDuplicate:
		return "duplicate_identity"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_provider_error"
	case KindExhausted:
		return "resource_exhausted"
	}
	return "internal_error"
}
