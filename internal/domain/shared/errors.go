package shared

import (
	"errors"
	"fmt"
)

// Error codes raised by the domain layer. The HTTP layer maps them to status codes.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeAmountOutOfRange    = "AMOUNT_OUT_OF_RANGE"
	CodeOverReceipt         = "OVER_RECEIPT"
	CodeCurrencyMismatch    = "CURRENCY_MISMATCH"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvariantViolation  = "INVARIANT_VIOLATION"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors.Is works with the sentinels below
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Operation not allowed in current state")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrAmountOutOfRange    = NewDomainError(CodeAmountOutOfRange, "Amount is outside the approval range")
	ErrOverReceipt         = NewDomainError(CodeOverReceipt, "Received quantity exceeds the remaining quantity")
	ErrCurrencyMismatch    = NewDomainError(CodeCurrencyMismatch, "Amounts use inconsistent currencies")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)

// ErrorCode returns the code of a wrapped DomainError, or "" for any other error
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsCode reports whether err is a DomainError with the given code
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
