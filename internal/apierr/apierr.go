// Package apierr provides the transport-neutral error taxonomy shared by
// every protocol adapter (HTTP, WebSocket, the gRPC-framed streaming
// protocol, and the binary driver protocol).
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of error kinds the service layer returns.
// Transport adapters map a Kind to their own wire form.
type Kind string

const (
	KindBadRequest       Kind = "bad_request"
	KindSessionNotFound  Kind = "session_not_found"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindTimeout          Kind = "timeout"
	KindUnauthorized     Kind = "unauthorized"
	KindTooManyRequests  Kind = "too_many_requests"
	KindInternal         Kind = "internal"
)

// httpStatusByKind mirrors the status table in spec §6.
var httpStatusByKind = map[Kind]int{
	KindBadRequest:      http.StatusBadRequest,
	KindSessionNotFound: http.StatusNotFound,
	KindNotFound:        http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindTimeout:         http.StatusRequestTimeout,
	KindUnauthorized:    http.StatusUnauthorized,
	KindTooManyRequests: http.StatusTooManyRequests,
	KindInternal:        http.StatusInternalServerError,
}

// ServiceError is the error type every service-layer operation returns.
// It carries enough information for any transport to render its own
// error body without re-deriving the HTTP status or message.
type ServiceError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// HTTPStatus returns the status code this error maps to over HTTP.
func (e *ServiceError) HTTPStatus() int {
	if status, ok := httpStatusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newErr(kind Kind, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

func wrapErr(kind Kind, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

// BadRequest covers parse errors, invalid parameter shapes, disabled
// languages, and invalid names.
func BadRequest(message string) *ServiceError { return newErr(KindBadRequest, message) }

// BadRequestf is BadRequest with fmt.Sprintf-style formatting.
func BadRequestf(format string, args ...any) *ServiceError {
	return newErr(KindBadRequest, fmt.Sprintf(format, args...))
}

// SessionNotFound reports a missing or expired transaction session handle.
func SessionNotFound() *ServiceError {
	return newErr(KindSessionNotFound, "session not found or expired")
}

// NotFound reports a missing database or other named resource.
func NotFound(message string) *ServiceError { return newErr(KindNotFound, message) }

// NotFoundf is NotFound with fmt.Sprintf-style formatting.
func NotFoundf(format string, args ...any) *ServiceError {
	return newErr(KindNotFound, fmt.Sprintf(format, args...))
}

// Conflict reports a name collision (e.g. database already exists).
func Conflict(message string) *ServiceError { return newErr(KindConflict, message) }

// Timeout reports a per-query timeout that elapsed before the engine call
// returned.
func Timeout() *ServiceError {
	return newErr(KindTimeout, "query execution timed out")
}

// Unauthorized reports missing or invalid credentials on a protected
// endpoint.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "unauthorized"
	}
	return newErr(KindUnauthorized, message)
}

// TooManyRequests reports a rate-limited client.
func TooManyRequests() *ServiceError {
	return newErr(KindTooManyRequests, "too many requests")
}

// Internal wraps an unexpected failure: engine failure, spawn failure,
// I/O error inside the core.
func Internal(message string, err error) *ServiceError {
	return wrapErr(KindInternal, message, err)
}

// As extracts a *ServiceError from an error chain, if present.
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HTTPStatusOf returns the HTTP status an arbitrary error should map to,
// defaulting to 500 when it isn't a *ServiceError.
func HTTPStatusOf(err error) int {
	if se, ok := As(err); ok {
		return se.HTTPStatus()
	}
	return http.StatusInternalServerError
}
