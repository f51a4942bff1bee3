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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Rejection reasons returned by the submission pipeline. These are policy
// outcomes communicated to the caller, not system failures.
const (
	RejectionReasonGambling  = "gambling"
	RejectionReasonViolation = "violation"
	RejectionReasonRateLimit = "rate_limit"
)

// RestrictionCodeGuest is returned when a guest identity attempts an
// interaction that requires a verified account.
const RestrictionCodeGuest = "guest_restriction"

// Validation errors
var (
	ErrEmptyMessage          = NewDomainError(ErrCodeValidation, "message cannot be empty")
	ErrEmptyDescription      = NewDomainError(ErrCodeValidation, "report description is required")
	ErrEmptyAnswer           = NewDomainError(ErrCodeValidation, "knowledge answer is required")
	ErrInvalidChunkCategory  = NewDomainError(ErrCodeValidation, "invalid knowledge category")
	ErrInvalidReportType     = NewDomainError(ErrCodeValidation, "invalid report type")
	ErrInvalidReportCategory = NewDomainError(ErrCodeValidation, "invalid report category")
	ErrInvalidReactionType   = NewDomainError(ErrCodeValidation, "invalid reaction type")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrChunkNotFound   = NewDomainError(ErrCodeNotFound, "knowledge chunk not found")
	ErrReportNotFound  = NewDomainError(ErrCodeNotFound, "report not found")
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")
)

// Already exists errors
var (
	ErrChunkAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "knowledge chunk with this answer already exists")
	ErrSlugAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "report slug already exists")
)

// Authorization errors
var (
	ErrInvalidSession  = NewDomainError(ErrCodeUnauthorized, "invalid or expired session")
	ErrGuestRestricted = NewDomainError(ErrCodeForbidden, "guest accounts cannot perform this action")
)

// Infrastructure errors
var (
	ErrOracleUnavailable = NewDomainError(ErrCodeInternalError, "scoring oracle unavailable")
	ErrStorageFailure    = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
