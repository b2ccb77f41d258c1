// Package apperr defines the stable error taxonomy surfaced by the API.
// Every error carries a human-readable message, a machine-readable code and
// an HTTP-equivalent status; raw provider payloads never cross this boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeNotFound          Code = "not_found"
	CodeNoRoute           Code = "no_route"
	CodeExclusionTooLarge Code = "exclusion_too_large"
	CodeUpstream          Code = "upstream_error"
	CodeEngineUnreachable Code = "engine_unreachable"
	CodeEngineTimeout     Code = "engine_timeout"
	CodeInternal          Code = "internal_error"
)

// Error is the single error shape seen by the dispatch layer.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a malformed request, caught before any outbound call.
func Validation(format string, args ...any) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf(format, args...),
		Status:  http.StatusBadRequest,
	}
}

// NotFound reports an absent referenced resource.
func NotFound(format string, args ...any) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf(format, args...),
		Status:  http.StatusNotFound,
	}
}

// Upstream reports a rejection by the active routing engine, already mapped
// to a stable code and message.
func Upstream(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  http.StatusBadGateway,
	}
}

// Network reports a failure to reach a routing engine at all.
func Network(err error) *Error {
	return &Error{
		Code:    CodeEngineUnreachable,
		Message: "routing engine unreachable",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// Timeout reports a rate-limited engine call that exceeded its allotted
// wait plus execution time.
func Timeout(message string) *Error {
	return &Error{
		Code:    CodeEngineTimeout,
		Message: message,
		Status:  http.StatusGatewayTimeout,
	}
}

// Internal wraps an unexpected failure. The wrapped error is for logs only.
func Internal(err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// From classifies an arbitrary error into the taxonomy. Errors that are not
// already an *Error become a generic internal error so stack detail is never
// exposed to callers.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
