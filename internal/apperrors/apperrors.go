// Package apperrors defines the error taxonomy shared by services and
// handlers. Services return an *Error carrying a machine-readable Kind;
// the HTTP layer maps the kind to a status code without inspecting
// message text.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindForbidden             Kind = "forbidden"
	KindBadRequest            Kind = "bad_request"
	KindConflict              Kind = "conflict"
	KindInsufficientInventory Kind = "insufficient_inventory"
	KindInternal              Kind = "internal"
)

// Error is a domain error with a machine-readable kind and a human message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing booking, edit, refund or room.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports an ownership or permission violation.
func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// BadRequest reports an invalid state transition or malformed input.
func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports conflicting state such as a duplicate pending edit.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InsufficientInventory reports an allocation under-supply.
func InsufficientInventory(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInsufficientInventory, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure (database, broker, ...).
func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to the status code the API layer returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest, KindInsufficientInventory:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
