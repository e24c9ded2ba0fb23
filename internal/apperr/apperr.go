// Package apperr classifies failures so handlers can map them to HTTP
// statuses without inspecting collaborator internals.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a failure class.
type Kind int

const (
	// Validation is bad input shape or range; never retried.
	Validation Kind = iota
	// Unauthenticated is a missing or invalid credential.
	Unauthenticated
	// Forbidden is an ownership or role violation.
	Forbidden
	// NotFound is a missing record.
	NotFound
	// Transient is a collaborator hiccup surfaced after any retries.
	Transient
	// Config is a fatal startup misconfiguration, never per-request.
	Config
)

// Error carries a kind plus a user-safe message. The wrapped cause, if
// any, is for logs only and must not reach response bodies.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// KindOf extracts the kind of err, defaulting to Transient for
// unclassified failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the user-safe message for err. Unclassified errors
// collapse to a generic message so internals never leak.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
