// Package apperror defines the domain error taxonomy shared by the service,
// repository and handler layers.
//
// Every error kind is a sentinel. Specific kinds wrap a broader parent, so
// errors.Is(err, ErrConflict) matches both a duplicate user and a duplicate
// package name, while errors.Is(err, ErrDuplicateName) matches only the latter:
//
//	ErrConflict     ← ErrDuplicateUser, ErrDuplicateName
//	ErrUnauthorized ← ErrInvalidCredentials, ErrInvalidToken ← ErrExpiredToken
//
// Anything that is not an *AppError is treated as a persistence failure by the
// HTTP layer and reported as a generic 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream unavailable")

	ErrDuplicateUser      = fmt.Errorf("duplicate user: %w", ErrConflict)
	ErrDuplicateName      = fmt.Errorf("duplicate package name: %w", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid token: %w", ErrUnauthorized)
	ErrExpiredToken       = fmt.Errorf("expired token: %w", ErrInvalidToken)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// DuplicateUser reports that an account with the given email already exists.
func DuplicateUser(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateUser,
		Message: fmt.Sprintf("user with email %s already exists", email),
		Field:   "email",
	}
}

// DuplicateName reports that a favorite with the given package name already exists.
func DuplicateName(name string) *AppError {
	return &AppError{
		Err:     ErrDuplicateName,
		Message: fmt.Sprintf("package %s is already saved", name),
		Field:   "name",
	}
}

// InvalidCredentials is returned when the password does not match the stored hash.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid email or password",
	}
}

// InvalidToken covers malformed, forged and revoked session tokens.
func InvalidToken(reason string) *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: reason,
	}
}

// ExpiredToken is an InvalidToken whose only fault is its age.
func ExpiredToken() *AppError {
	return &AppError{
		Err:     ErrExpiredToken,
		Message: "session token has expired",
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Upstream reports that a third-party service (the package registry) failed
// or returned something unusable.
func Upstream(message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
	}
}
