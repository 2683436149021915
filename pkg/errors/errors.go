package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to the HTTP status the error middleware
// should respond with.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation, ErrUnknownAudience:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrUnknownAudience
	ErrTransport
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewValidation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NewUnknownAudience marks an unrecognized target audience during resolution.
// Fatal to that dispatch only; the scheduler must not crash on it.
func NewUnknownAudience(audience string) *AppError {
	return &AppError{
		Code:    ErrUnknownAudience,
		Message: fmt.Sprintf("unknown target audience %q", audience),
	}
}

// NewTransport wraps a push-gateway transport failure. Dispatch records these
// in aggregate counters instead of propagating them.
func NewTransport(err error) *AppError {
	return &AppError{
		Code:    ErrTransport,
		Message: "push gateway transport error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func Validation(message string, err error) *AppError {
	return NewValidation(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(err error) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "forbidden",
		Err:     err,
	}
}

// IsNotFound reports whether err wraps a not-found AppError.
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound)
}

// IsValidation reports whether err wraps a validation AppError.
func IsValidation(err error) bool {
	return hasCode(err, ErrValidation)
}

// IsUnauthorized reports whether err wraps an unauthorized AppError.
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrUnauthorized)
}

// IsForbidden reports whether err wraps a forbidden AppError.
func IsForbidden(err error) bool {
	return hasCode(err, ErrForbidden)
}

// IsUnknownAudience reports whether err wraps an unknown-audience AppError.
func IsUnknownAudience(err error) bool {
	return hasCode(err, ErrUnknownAudience)
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
