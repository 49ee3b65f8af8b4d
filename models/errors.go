package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category shared by both surfaces.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindDuplicate          Kind = "duplicate"
	KindUnauthorized       Kind = "unauthorized"
	KindCatalogUnavailable Kind = "catalog_unavailable"
	KindConfiguration      Kind = "configuration"
	KindInternal           Kind = "internal"
)

// HTTPStatus returns the status code a surface should respond with for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindCatalogUnavailable:
		return http.StatusBadGateway
	case KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying a kind and a user-presentable message.
// Business-rule failures are raised at the service layer as *Error and
// caught once at the surface boundary.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same kind, so callers can compare against
// the sentinel constructors with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus returns the HTTP status for this error's kind.
func (e *Error) HTTPStatus() int { return e.Kind.HTTPStatus() }

// ErrKind builds an error of the given kind with a formatted message.
func ErrKind(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return ErrKind(KindValidation, format, args...)
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return ErrKind(KindNotFound, format, args...)
}

// Duplicatef builds a duplicate-entry error.
func Duplicatef(format string, args ...any) *Error {
	return ErrKind(KindDuplicate, format, args...)
}

// Unauthorizedf builds an unauthorized error.
func Unauthorizedf(format string, args ...any) *Error {
	return ErrKind(KindUnauthorized, format, args...)
}

// CatalogUnavailable wraps an upstream catalog failure.
func CatalogUnavailable(cause error) *Error {
	return &Error{Kind: KindCatalogUnavailable, Message: "movie catalog is unavailable", cause: cause}
}

// Configurationf builds a configuration error, e.g. a missing credential.
func Configurationf(format string, args ...any) *Error {
	return ErrKind(KindConfiguration, format, args...)
}

// Internal wraps an unexpected failure so raw persistence errors never leak
// to a surface.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf extracts the user-presentable message from err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
