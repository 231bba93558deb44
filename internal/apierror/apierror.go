// Package apierror provides the typed application errors and the standardized
// error response structure for the API. All errors returned to clients go
// through this package so that internal details (DB errors, stack traces) are
// never leaked.
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindAuthentication
	KindConflict
	KindNotFound
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	default:
		return "unexpected"
	}
}

// Error is an application error carrying its Kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error     { return &Error{Kind: KindValidation, Message: msg} }
func Authentication(msg string) error { return &Error{Kind: KindAuthentication, Message: msg} }
func Conflict(msg string) error       { return &Error{Kind: KindConflict, Message: msg} }
func NotFound(msg string) error       { return &Error{Kind: KindNotFound, Message: msg} }

// Storage wraps a backing-store failure.
func Storage(msg string, err error) error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// KindOf returns the Kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Is reports whether err is an application error of the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Error: msg}
}

func WithDetails(msg, details string) *APIError {
	return &APIError{Error: msg, Details: details}
}

// Response builds the client-facing body for err. Server-side failures get a
// generic message; the cause stays in the logs.
func Response(err error) *APIError {
	var e *Error
	if !errors.As(err, &e) {
		return WithDetails("Internal server error", "unexpected error")
	}
	switch e.Kind {
	case KindStorage:
		return WithDetails("Internal server error", e.Message)
	case KindUnexpected:
		return WithDetails("Internal server error", "unexpected error")
	default:
		return New(e.Message)
	}
}
