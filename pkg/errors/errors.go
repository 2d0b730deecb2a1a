package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents a standardized application error. Payload, when set,
// is rendered as the response body instead of {"error": Message}.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Payload any    `json:"-"`
	Err     error  `json:"-"` // Internal error for logging
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Body returns the value a handler should render for this error.
func (e *AppError) Body() any {
	if e.Payload != nil {
		return e.Payload
	}
	return map[string]any{"error": e.Message}
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithPayload wraps err with a status and a structured body.
func WithPayload(code int, payload any, err error) *AppError {
	return &AppError{Code: code, Message: http.StatusText(code), Payload: payload, Err: err}
}

// NotFound creates a 404 error
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

// BadRequest creates a 400 error
func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

// Internal creates a 500 error
func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Internal Server Error", err)
}

// Unauthorized creates a 401 error
func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, message, nil)
}

// Forbidden creates a 403 error
func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message, nil)
}

// TooManyRequests creates a 429 error
func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, message, nil)
}

// From returns err as an AppError, treating anything else as internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
