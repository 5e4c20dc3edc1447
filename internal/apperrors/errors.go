package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies an error for HTTP status mapping. The kind name is never
// exposed to API callers, only the message and the mapped status code.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindNotFound
	KindForbidden
	KindInvalidState
	KindInternal
)

// Error is the service-level error type. Services return it (optionally
// wrapped with fmt.Errorf("...: %w", ...)); handlers unwrap it to build the
// response envelope.
type Error struct {
	Kind    Kind
	Message string
	// Details carries optional diagnostic payload echoed back to the caller,
	// e.g. attempted and allowed domain lists on a scope violation.
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func BadRequest(message string) *Error   { return New(KindBadRequest, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func InvalidState(message string) *Error { return New(KindInvalidState, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }

// WithDetails attaches diagnostic fields to the error and returns it.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// HTTPStatus maps an error to its response status code. Unknown errors map
// to 500.
func HTTPStatus(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindBadRequest, KindInvalidState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for an error. Wrapping context
// added by services is not exposed; unknown errors get a generic message.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

// Details returns the diagnostic payload of an error, if any.
func Details(err error) map[string]interface{} {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}
