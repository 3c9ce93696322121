package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeIPBlocked         = "IP_BLOCKED"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewRateLimitedError signals that an IP exceeded the submission window
func NewRateLimitedError() error {
	return &DomainError{
		Code:    ErrCodeRateLimited,
		Message: "Too many contact form submissions. Please wait a few minutes and try again.",
	}
}

// NewIPBlockedError signals that the source IP carries an active block
func NewIPBlockedError(ip string) error {
	return &DomainError{
		Code:    ErrCodeIPBlocked,
		Message: "Submissions from this address are not accepted.",
		Err:     fmt.Errorf("ip %s is blocked", ip),
	}
}

// NewInvalidTransitionError signals a status change the lifecycle graph forbids
func NewInvalidTransitionError(from, to string) error {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition submission from %q to %q", from, to),
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsRateLimited checks if the error is a rate limit rejection
func IsRateLimited(err error) bool { return hasCode(err, ErrCodeRateLimited) }

// IsIPBlocked checks if the error is a block list rejection
func IsIPBlocked(err error) bool { return hasCode(err, ErrCodeIPBlocked) }

// IsInvalidTransition checks if the error is a forbidden status change
func IsInvalidTransition(err error) bool { return hasCode(err, ErrCodeInvalidTransition) }

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// GetErrorMessage extracts the user-facing message from a domain error
func GetErrorMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "An internal error occurred"
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}
