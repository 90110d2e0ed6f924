// Package apperror defines the domain error kinds shared by every layer.
//
// Services return these, repositories produce some of them (NotFound,
// UserExists, WriteConflict), and the handler package maps them to HTTP
// status codes. Callers match on the sentinels with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserExists         = errors.New("user exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWriteConflict      = errors.New("write conflict")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // safe to show to the user
	Field   string // optional: form field causing the error
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

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means no valid session was presented.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// UserExists reports a registration attempt for an email that already has
// an account. The message is shown to the user on the login page.
func UserExists(email string) *AppError {
	return &AppError{
		Err:     ErrUserExists,
		Message: "User already exists, please log in.",
		Field:   "email",
	}
}

// InvalidCredentials is deliberately identical for "no such email" and
// "wrong password".
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid email or password.",
	}
}

// WriteConflict reports an insert that collided with an existing row. The
// storage layer converts it into an update; it never reaches a user.
func WriteConflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrWriteConflict,
		Message: fmt.Sprintf("%s already exists for key %s", resource, key),
	}
}
