// Package apperr defines the error taxonomy shared by every engine.
//
// Managers return *Error values (usually package-level sentinels) so the HTTP
// layer can map any failure to a stable machine-readable kind without knowing
// which package produced it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of where it happened.
type Kind int

const (
	Internal Kind = iota
	Unauthorized
	BadRequest
	NotFound
	Forbidden
	Validation
	Conflict
)

var kindNames = map[Kind]string{
	Internal:     "internal_error",
	Unauthorized: "unauthorized",
	BadRequest:   "bad_request",
	NotFound:     "not_found",
	Forbidden:    "forbidden",
	Validation:   "validation_error",
	Conflict:     "conflict",
}

// String returns the machine-readable name used in API error bodies.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Internal]
}

// Error is a classified domain error.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The wrapped error is kept for logging
// and errors.Is checks but its text is never sent to callers.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// PublicMessage returns the message that may be shown to a caller.
// Internal failures always collapse to a generic message.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a kind to its response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case BadRequest, Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
