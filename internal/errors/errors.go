// Package errors defines the service error type shared by handlers and
// middleware, mapping failures onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of service failure.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeInvalidToken  Code = "INVALID_TOKEN"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeRateLimited   Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeMFARequired   Code = "MFA_REQUIRED"
	CodeNotConfigured Code = "NOT_CONFIGURED"
)

// ServiceError carries an error code, a caller-facing message and the HTTP
// status it maps to.
type ServiceError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	cause      error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a key/value detail and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code Code, message string, status int, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, cause: cause}
}

// Validation reports a malformed or invalid request.
func Validation(message string) *ServiceError {
	return newError(CodeValidation, message, http.StatusBadRequest, nil)
}

// Unauthorized reports a missing or failed authentication.
func Unauthorized(message string) *ServiceError {
	return newError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// InvalidToken reports a token that failed verification.
func InvalidToken(cause error) *ServiceError {
	return newError(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized, cause)
}

// Forbidden reports an authorization failure.
func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, message, http.StatusForbidden, nil)
}

// MFARequired reports that the admin must complete 2FA verification first.
func MFARequired() *ServiceError {
	return newError(CodeMFARequired, "MFA verification required", http.StatusForbidden, nil)
}

// NotFound reports a missing resource.
func NotFound(resource string) *ServiceError {
	return newError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

// Conflict reports a uniqueness or state conflict.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, message, http.StatusConflict, nil)
}

// RateLimitExceeded reports that the caller exhausted its request budget.
func RateLimitExceeded(limit int, window string) *ServiceError {
	e := newError(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests, nil)
	return e.WithDetails("limit", limit).WithDetails("window", window)
}

// Internal reports an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	return newError(CodeInternal, message, http.StatusInternalServerError, cause)
}

// Unavailable reports a dependency that could not be reached.
func Unavailable(message string, cause error) *ServiceError {
	return newError(CodeUnavailable, message, http.StatusServiceUnavailable, cause)
}

// NotConfigured reports an external gateway that has no credentials.
func NotConfigured(service string) *ServiceError {
	return newError(CodeNotConfigured, fmt.Sprintf("%s is not configured", service), http.StatusNotImplemented, nil)
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus returns the mapped status for err, defaulting to 500.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
