package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidStatus        = NewDomainError(ErrCodeValidation, "invalid request status")
	ErrInvalidPriority      = NewDomainError(ErrCodeValidation, "invalid request priority")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrRequestNotFound        = NewDomainError(ErrCodeNotFound, "help request not found")
	ErrKnowledgeEntryNotFound = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
)

// State errors
var (
	ErrRequestAlreadyTerminal = NewDomainError(ErrCodeInvalidState, "help request already reached a terminal state")
	ErrRequestNotTerminal     = NewDomainError(ErrCodeInvalidState, "help request has no terminal resolution yet")
)

// Conflict errors
var (
	ErrQuestionTaken = NewDomainError(ErrCodeConflict, "question already owned by another knowledge entry")
	ErrAlreadyLinked = NewDomainError(ErrCodeConflict, "request already linked to knowledge entry")
)

// Storage errors
var (
	ErrStorageUnavailable = NewDomainError(ErrCodeStorageUnavailable, "persistence layer unavailable")
)
