// Package domainerrors provides coded errors that cross service boundaries.
//
// Services return these so transport layers can translate them into HTTP
// responses and callers can branch on the machine-readable code without
// string matching. Messages aimed at the applicant are Spanish; codes are
// stable English identifiers consumed by the registration flow and audit
// pipeline.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a domain error.
type Code string

const (
	// Verification error kinds surfaced to the registration flow.
	CodeInvalidData         Code = "invalid_data"
	CodeNetworkError        Code = "network_error"
	CodeServerError         Code = "server_error"
	CodeSessionExpired      Code = "session_expired"
	CodeRateLimited         Code = "rate_limit_exceeded"
	CodeSuspiciousActivity  Code = "suspicious_activity"
	CodeComplianceViolation Code = "compliance_violation"
	CodeUnknown             Code = "unknown_error"

	// Transport and lifecycle codes.
	CodeInvalidState Code = "invalid_state"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeBadRequest   Code = "bad_request"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. The zero value is not valid; construct with
// New or Wrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a domain code and message.
// The cause remains reachable via errors.Unwrap / errors.Is.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the domain code from err, walking the wrap chain.
// Returns CodeUnknown when err carries no domain code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

// MessageOf extracts the user-facing message from err. Falls back to a
// generic message so raw internals never leak to the applicant.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Ha ocurrido un error inesperado. Por favor, intente nuevamente."
}

// HTTPStatus maps a domain code to the HTTP status the transport layer
// should respond with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidData, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeSuspiciousActivity, CodeComplianceViolation:
		return http.StatusForbidden
	case CodeSessionExpired:
		return http.StatusGone
	case CodeNetworkError, CodeServerError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
