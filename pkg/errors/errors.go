// Package errors defines the application error type shared by every layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeDatabase    ErrorType = "DATABASE"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
)

// AppError carries a classification, a client-safe message and an optional cause.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode sets a machine readable code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails attaches structured details, typically field errors.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause records the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func newError(t ErrorType, status int, message string) *AppError {
	return &AppError{Type: t, Message: message, HTTPStatus: status}
}

// NewValidationError reports bad input.
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message).WithCode("VALIDATION_ERROR")
}

// NewNotFoundError reports a missing resource, e.g. NewNotFoundError("import").
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource)).WithCode("NOT_FOUND")
}

// NewConflictError reports a state transition that is not allowed.
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, http.StatusConflict, message).WithCode("CONFLICT")
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message).WithCode("INTERNAL_ERROR")
}

// NewTimeoutError reports an operation that ran out of time.
func NewTimeoutError(operation string) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, fmt.Sprintf("operation '%s' timed out", operation)).WithCode("TIMEOUT")
}

// NewServiceUnavailableError reports a dependency that cannot take work right now.
func NewServiceUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable, fmt.Sprintf("service '%s' is unavailable", service)).WithCode("SERVICE_UNAVAILABLE")
}

// NewDatabaseError wraps a storage failure.
func NewDatabaseError(operation string, err error) *AppError {
	return newError(ErrorTypeDatabase, http.StatusInternalServerError, fmt.Sprintf("database operation '%s' failed", operation)).
		WithCode("DATABASE_ERROR").
		WithCause(err)
}

// NewExternalError wraps a failure of an upstream service such as the language model.
func NewExternalError(service string, err error) *AppError {
	return newError(ErrorTypeExternal, http.StatusBadGateway, fmt.Sprintf("external service '%s' error", service)).
		WithCode("EXTERNAL_ERROR").
		WithCause(err)
}

// GetAppError extracts the first AppError in the chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool   { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }
func IsConflict(err error) bool   { return IsType(err, ErrorTypeConflict) }

// HTTPStatus maps any error to a response status; non-AppErrors are 500.
func HTTPStatus(err error) int {
	if appErr := GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Wrap adds context to err. AppErrors keep their type; anything else becomes internal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		wrapped := *appErr
		wrapped.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return &wrapped
	}
	return NewInternalError(message).WithCause(err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
