// Package apperror defines the closed set of domain failure kinds returned
// by every component in this module. internal/httpserver is the single place
// that translates an *apperror.Error into an HTTP Problem-Details response.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of failure categories. Every domain package
// returns errors wrapped in one of these kinds rather than raw strings, so
// the HTTP layer can map them to status codes in one place.
type Kind string

const (
	KindValidation    Kind = "validation_error"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindOrgRequired   Kind = "org_required"
	KindPlanLimit     Kind = "plan_limit"
	KindSlotTaken     Kind = "slot_taken"
	KindRateLimited   Kind = "rate_limited"
	KindUpstream      Kind = "upstream_error"
	KindInternal      Kind = "internal_error"
	KindReadOnly      Kind = "read_only_mode"
)

// statusByKind maps a Kind to its HTTP status code.
var statusByKind = map[Kind]int{
	KindValidation:   422,
	KindNotFound:     404,
	KindConflict:     409,
	KindUnauthorized: 401,
	KindForbidden:    403,
	KindOrgRequired:  422,
	KindPlanLimit:    402,
	KindSlotTaken:    409,
	KindRateLimited:  429,
	KindUpstream:     502,
	KindInternal:     500,
	KindReadOnly:     409,
}

// Error is the typed failure returned by domain components.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // optional field-level validation detail
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return 500
}

// New creates an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error of the given kind, preserving cause for logs.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// NotFound is a convenience constructor for the common not-found case.
func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found")
}

// Validation builds a validation error carrying field-level detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// As extracts an *Error from err, returning nil if err isn't one.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
