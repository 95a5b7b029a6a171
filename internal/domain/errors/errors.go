package errors

import (
	"errors"
	"fmt"
)

var (
	// Payment errors
	ErrInvalidCorrelationID = errors.New("invalid correlation id")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrRetriesExhausted     = errors.New("retry budget exhausted")

	// Provider errors
	ErrProviderTimeout     = errors.New("provider request timeout")
	ErrProviderRejected    = errors.New("payment rejected by provider")
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// Queue errors
	ErrQueueUnavailable = errors.New("retry queue unavailable")

	// Reporting errors
	ErrInvalidDateRange = errors.New("invalid date range")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
