// Package apierror provides the error taxonomy shared by services and the
// canonical response envelope returned to clients. Internal details (stack
// traces, DB errors) never reach the wire — services wrap them into one of
// the kinds below and handlers translate the kind into an HTTP status.
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for both the caller and the HTTP layer.
type Kind int

const (
	// KindInternal is the fallback for unexpected failures.
	KindInternal Kind = iota
	// KindValidation: bad input shape or values — recoverable by fixing input.
	KindValidation
	// KindStateConflict: operation invalid for the entity's current state
	// (sale not pending, session already open or absent).
	KindStateConflict
	// KindNotFound: referenced product/sale/session/lot does not exist.
	KindNotFound
	// KindUnauthorized: missing or invalid credentials.
	KindUnauthorized
	// KindForbidden: role-gated operation attempted by the wrong role.
	KindForbidden
)

// Error carries a user-visible message plus its kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func StateConflict(msg string) *Error { return &Error{Kind: KindStateConflict, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func Unauthorized(msg string) *Error  { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error     { return &Error{Kind: KindForbidden, Message: msg} }
func Internal(msg string) *Error      { return &Error{Kind: KindInternal, Message: msg} }

// Status maps an error to its HTTP status code. Unknown errors are 500.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindStateConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors from DTO validation.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}
