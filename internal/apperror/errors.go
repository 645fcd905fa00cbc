// Package apperror defines the error taxonomy shared by all services.
// Every error raised below the HTTP layer is (or wraps into) an
// *AppError carrying a stable code and the HTTP status it maps to, so
// handlers translate failures uniformly and nothing below the request
// boundary crashes the process.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeForbidden    = "FORBIDDEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeUnavailable  = "DEPENDENCY_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is the single error type exchanged between layers.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetails attaches structured context that is safe to expose to
// callers (conflicting booking ids, field names, etc).
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// Validation signals malformed or illegal input (400).
func Validation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFound signals an absent referenced entity (404).
func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

// Conflict signals an overlap, duplicate or already-terminal state (409).
func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// Forbidden signals an insufficient role (403).
func Forbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// Unauthorized signals missing or failed authentication (401).
func Unauthorized(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Unavailable signals an open circuit or a failed downstream call (503).
func Unavailable(service string) *AppError {
	return &AppError{Code: CodeUnavailable, Message: service + " is temporarily unavailable", HTTPStatus: http.StatusServiceUnavailable}
}

// Internal wraps an unexpected failure (500). The wrapped error stays
// out of the response body; only the generic message is surfaced.
func Internal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// As extracts an *AppError from an error chain, normalizing anything
// unclassified into a generic internal error.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("an unexpected error occurred", err)
}
