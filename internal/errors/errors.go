// Package errors defines the service error type every HTTP response is
// normalised into.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Kind tags the variant of a ServiceError.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindUpload       Kind = "upload"
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// Code is a machine readable error code.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidToken      Code = "INVALID_TOKEN"
	CodeInvalidCSRFToken  Code = "EBADCSRFTOKEN"
	CodeForbidden         Code = "FORBIDDEN"
	CodeConflict          Code = "CONFLICT"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Titles shared by the normalizer.
const (
	TitleNotFound   = "Resource Not Found"
	TitleValidation = "Validation error"
	TitleUpload     = "File upload error"
	TitleServer     = "Server Error"

	MessageNotFound = "The requested resource couldn't be found."
)

// ServiceError is the single error shape handlers return. Errors holds either
// a []string or a map[string]string of field messages.
type ServiceError struct {
	Kind       Kind
	Code       Code
	HTTPStatus int
	Title      string
	Message    string
	Errors     interface{}
	Details    map[string]interface{}

	cause error
	stack error
}

func (e *ServiceError) Error() string {
	if e.cause != nil && e.cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// WithDetails attaches a key/value detail and returns the same error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithErrors replaces the field error payload.
func (e *ServiceError) WithErrors(errs interface{}) *ServiceError {
	e.Errors = errs
	return e
}

// WithCause records the error this one was derived from.
func (e *ServiceError) WithCause(cause error) *ServiceError {
	e.cause = cause
	return e
}

// StackTrace renders the stack recorded when the error was created, or the
// cause's own stack when it carries one.
func (e *ServiceError) StackTrace() string {
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	var st stackTracer
	if e.cause != nil && stderrors.As(e.cause, &st) {
		return fmt.Sprintf("%s%+v", e.Error(), st.StackTrace())
	}
	if e.stack != nil {
		return fmt.Sprintf("%s%+v", e.Error(), e.stack.(stackTracer).StackTrace())
	}
	return e.Error()
}

func newError(kind Kind, code Code, status int, title, message string, cause error) *ServiceError {
	return &ServiceError{
		Kind:       kind,
		Code:       code,
		HTTPStatus: status,
		Title:      title,
		Message:    message,
		cause:      cause,
		stack:      pkgerrors.New(message),
	}
}

// NotFound is the synthetic error for unmatched routes and missing records.
func NotFound(message string) *ServiceError {
	if message == "" {
		message = MessageNotFound
	}
	return newError(KindNotFound, CodeNotFound, http.StatusNotFound, TitleNotFound, message, nil).
		WithErrors([]string{message})
}

// Validation reports one message per failed field.
func Validation(messages []string, cause error) *ServiceError {
	msg := "Validation error"
	if len(messages) > 0 {
		msg = messages[0]
	}
	return newError(KindValidation, CodeValidation, http.StatusBadRequest, TitleValidation, msg, cause).
		WithErrors(messages)
}

// Upload reports a rejected file upload for the given form field.
func Upload(field, message string, cause error) *ServiceError {
	return newError(KindUpload, CodeBadRequest, http.StatusBadRequest, TitleUpload, message, cause).
		WithErrors(map[string]string{field: message})
}

// BadRequest reports a malformed request.
func BadRequest(message string, cause error) *ServiceError {
	return newError(KindBadRequest, CodeBadRequest, http.StatusBadRequest, "Bad Request", message, cause)
}

// Unauthorized reports a missing or failed authentication.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Authentication required"
	}
	return newError(KindUnauthorized, CodeUnauthorized, http.StatusUnauthorized, "Unauthorized", message, nil).
		WithErrors([]string{message})
}

// InvalidCredentials is returned on a failed login.
func InvalidCredentials() *ServiceError {
	return newError(KindUnauthorized, CodeUnauthorized, http.StatusUnauthorized, "Login failed",
		"The provided credentials were invalid.", nil).
		WithErrors([]string{"The provided credentials were invalid."})
}

// InvalidToken reports an unusable session token.
func InvalidToken(cause error) *ServiceError {
	return newError(KindUnauthorized, CodeInvalidToken, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", cause)
}

// Forbidden reports an authenticated caller acting outside its permissions.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "Forbidden"
	}
	return newError(KindForbidden, CodeForbidden, http.StatusForbidden, "Forbidden", message, nil).
		WithErrors([]string{message})
}

// InvalidCSRFToken is raised before routing when a state-changing request
// lacks a valid CSRF token.
func InvalidCSRFToken() *ServiceError {
	return newError(KindForbidden, CodeInvalidCSRFToken, http.StatusForbidden, "Forbidden", "invalid csrf token", nil).
		WithErrors([]string{"invalid csrf token"})
}

// Conflict reports a uniqueness violation.
func Conflict(message string, cause error) *ServiceError {
	return newError(KindConflict, CodeConflict, http.StatusConflict, "Conflict", message, cause).
		WithErrors([]string{message})
}

// RateLimitExceeded reports a throttled caller.
func RateLimitExceeded(limit int, window string) *ServiceError {
	msg := fmt.Sprintf("Rate limit exceeded: %d requests per %s", limit, window)
	return newError(KindRateLimited, CodeRateLimitExceeded, http.StatusTooManyRequests, "Too Many Requests", msg, nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return newError(KindInternal, CodeInternal, http.StatusInternalServerError, TitleServer, message, cause)
}

// Wrap converts any error into a ServiceError, keeping ServiceErrors as-is.
// Unrecognised errors become a 500 carrying the error's own message.
func Wrap(err error) *ServiceError {
	if err == nil {
		return nil
	}
	if se := GetServiceError(err); se != nil {
		return se
	}
	return Internal(err.Error(), pkgerrors.WithStack(err))
}

// GetServiceError extracts a ServiceError from err's chain.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	se := GetServiceError(err)
	return se != nil && se.Kind == kind
}
