// Package apperror defines the error categories surfaced by the matching
// engine. Handlers and the CLI map categories to status codes.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Category groups errors by how a caller should react to them.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryInternal   Category = "internal"
)

// Error is the application error type.
type Error struct {
	Category Category `json:"category"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Cause    error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports a malformed or missing caller input.
func Validation(code, message string) *Error {
	return &Error{Category: CategoryValidation, Code: code, Message: message}
}

// NotFound reports a missing entity.
func NotFound(resource, id string) *Error {
	return &Error{
		Category: CategoryNotFound,
		Code:     resource + "_not_found",
		Message:  fmt.Sprintf("%s %s not found", resource, id),
	}
}

// Conflict reports a write that cannot be applied to the current state.
func Conflict(code, message string) *Error {
	return &Error{Category: CategoryConflict, Code: code, Message: message}
}

// Internal wraps an unexpected failure, keeping a stack trace on the cause.
// A nil err yields a nil error.
func Internal(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Category: CategoryInternal,
		Code:     "internal_error",
		Message:  message,
		Cause:    errors.WithStack(err),
	}
}

// CategoryOf returns the category of err, or CategoryInternal when err is
// not an *Error.
func CategoryOf(err error) Category {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategoryInternal
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, c Category) bool {
	return err != nil && CategoryOf(err) == c
}

// CodeOf returns the code of err, or "internal_error".
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "internal_error"
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
