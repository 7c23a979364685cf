// Package errors provides the error taxonomy shared by the services and the
// HTTP layer. Each DomainError carries the status it is rendered with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeTimeout      = "TIMEOUT"
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	// Err is logged but never rendered.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

func newError(code string, status int, message, details string, cause error) *DomainError {
	return &DomainError{
		Code:       code,
		Message:    message,
		Details:    details,
		HTTPStatus: status,
		Err:        cause,
	}
}

// NewNotFoundError reports a missing resource; identifier goes to Details.
func NewNotFoundError(resource, identifier string) *DomainError {
	return newError(ErrCodeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource), identifier, nil)
}

// NewValidationError reports a malformed request.
func NewValidationError(message string, details string) *DomainError {
	return newError(ErrCodeValidation, http.StatusBadRequest, message, details, nil)
}

// NewForbiddenError reports access to a resource owned by someone else.
func NewForbiddenError(message string) *DomainError {
	return newError(ErrCodeForbidden, http.StatusForbidden, message, "", nil)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, err error) *DomainError {
	return newError(ErrCodeInternal, http.StatusInternalServerError, message, "", err)
}

// NewTimeoutError reports an operation that gave up waiting.
func NewTimeoutError(operation string, err error) *DomainError {
	return newError(ErrCodeTimeout, http.StatusGatewayTimeout, fmt.Sprintf("%s timed out", operation), "", err)
}

// GetDomainError extracts the domain error from an error chain.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

func hasCode(err error, code string) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == code
}
