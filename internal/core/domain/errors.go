package domain

import (
	"errors"
	"fmt"
)

// DomainError is a registry error carrying a stable error code.
// Codes have the form CL-<AREA>-<NNNN>; the last four digits follow
// HTTP status semantics so transports can map them without a table.
type DomainError struct {
	Code    string // Error code (e.g., "CL-CLAIM-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += " (" + e.Cause.Error() + ")"
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the outermost error code from an error.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Issuance errors.
var (
	// ErrUnauthorized indicates a mint attempted by an identity other than the authority.
	ErrUnauthorized = NewDomainError("CL-AUTH-4030", "caller is not the issuance authority")

	// ErrRegistryNotInitialized indicates the registry has no authority yet.
	ErrRegistryNotInitialized = NewDomainError("CL-REG-4090", "registry not initialized")

	// ErrAuthorityAlreadySet indicates an attempt to re-create the registry with another authority.
	ErrAuthorityAlreadySet = NewDomainError("CL-REG-4091", "registry authority already set")
)

// Claim errors.
var (
	// ErrInvalidOwner indicates a malformed identity handle.
	ErrInvalidOwner = NewDomainError("CL-ARG-4001", "invalid owner address")

	// ErrTokenNotFound indicates a query against a nonexistent token id.
	ErrTokenNotFound = NewDomainError("CL-CLAIM-4040", "claim token not found")

	// ErrMalformedMetadata indicates claim data that could not be parsed as structured metadata.
	// Decoding never returns it; it is used when a caller explicitly requires structure.
	ErrMalformedMetadata = NewDomainError("CL-CLAIM-4220", "malformed claim metadata")
)

// Submission errors.
var (
	// ErrSubmissionFailed indicates the commit substrate rejected a submitted command.
	ErrSubmissionFailed = NewDomainError("CL-SUBM-5020", "submission failed")

	// ErrSubmissionNotFound indicates an unknown or expired submission id.
	ErrSubmissionNotFound = NewDomainError("CL-SUBM-4040", "submission not found")

	// ErrNotLeader indicates this node cannot accept writes.
	ErrNotLeader = NewDomainError("CL-SUBM-5030", "node is not the write leader")
)

// Access errors.
var (
	// ErrAPIKeyMissing indicates no API key was provided.
	ErrAPIKeyMissing = NewDomainError("CL-AUTH-4010", "api key not provided")

	// ErrAPIKeyInvalid indicates the API key is unknown or the secret does not match.
	ErrAPIKeyInvalid = NewDomainError("CL-AUTH-4011", "invalid api key")

	// ErrPermissionDenied indicates the key's role does not allow the operation.
	ErrPermissionDenied = NewDomainError("CL-AUTH-4031", "permission denied")
)

// System errors.
var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("CL-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("CL-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("CL-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("CL-SYS-4290", "too many requests")
)
