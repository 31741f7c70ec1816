// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"

	"minimalgym/internal/apperror"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string            `json:"detail"`
	Kind   string            `json:"kind,omitempty"`
	Items  []apperror.Detail `json:"items,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// FromError maps a service error to its HTTP status and envelope. Errors that
// are not *apperror.Error are reported as a generic 500.
func FromError(err error) (int, *APIError) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, New("internal server error")
	}
	body := &APIError{Detail: appErr.Message, Kind: appErr.Kind.String(), Items: appErr.Details}
	switch appErr.Kind {
	case apperror.KindValidation:
		return http.StatusUnprocessableEntity, body
	case apperror.KindConflict:
		return http.StatusConflict, body
	case apperror.KindNotFound:
		return http.StatusNotFound, body
	default:
		return http.StatusInternalServerError, body
	}
}
