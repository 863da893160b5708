// Package apperror defines the application's error taxonomy.
//
// Services return these typed errors; the HTTP layer maps them to status
// codes with errors.Is/As. Nothing in here retries; every failure
// propagates to the calling boundary.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrInvalidCode         = errors.New("invalid authorization code")
	ErrProviderUnavailable = errors.New("auth provider unavailable")
)

type AppError struct {
	Err     error  // sentinel from the list above
	Message string // human-readable error message
	Field   string // optional: field causing a validation error
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

func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s: %s", resource, message),
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// QuotaExceeded signals that a user's remaining letter allowance is zero.
// The quota decrement is a precondition, never clamped.
func QuotaExceeded(userID string) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: fmt.Sprintf("user %s has no remaining letter quota", userID),
	}
}

// InvalidCode signals that the OAuth provider rejected the authorization code.
func InvalidCode() *AppError {
	return &AppError{
		Err:     ErrInvalidCode,
		Message: "authorization code was rejected by the provider",
	}
}

// ProviderUnavailable signals that the OAuth provider could not be reached or
// returned a malformed response. The caller may retry; we do not.
func ProviderUnavailable(detail string) *AppError {
	return &AppError{
		Err:     ErrProviderUnavailable,
		Message: fmt.Sprintf("auth provider unavailable: %s", detail),
	}
}
