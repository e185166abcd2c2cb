// Package errors provides structured error handling for the Defender console client
package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes errors by which layer of the pipeline produced them
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypeEnvelope   ErrorType = "envelope"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Authentication errors
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeBadCredentials   ErrorCode = "BAD_CREDENTIALS"
	ErrCodeChallengeExpired ErrorCode = "CHALLENGE_EXPIRED"
	ErrCodeNoChallenge      ErrorCode = "NO_PENDING_CHALLENGE"

	// Envelope errors (application-level failure inside an HTTP 200)
	ErrCodeRequestFailed ErrorCode = "REQUEST_FAILED"

	// Transport errors
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"

	// Storage errors
	ErrCodeStorageCorrupt ErrorCode = "STORAGE_CORRUPT"
	ErrCodeStorageIO      ErrorCode = "STORAGE_IO"
)

// DefenderError is the structured error carried through the request
// pipeline and auth flow. Message is the normalized human-readable text
// every screen reports; Code and Type let callers branch on the cause.
type DefenderError struct {
	Type    ErrorType `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *DefenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *DefenderError) Unwrap() error {
	return e.Cause
}

// New creates a new DefenderError
func New(errType ErrorType, code ErrorCode, message string) *DefenderError {
	return &DefenderError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new DefenderError with a cause
func Wrap(errType ErrorType, code ErrorCode, message string, cause error) *DefenderError {
	return &DefenderError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DefenderError {
	return New(ErrorTypeValidation, ErrCodeValidation, message)
}

// NewRequestFailedError creates an envelope-level failure carrying the
// message resolved from the error/message/fallback precedence.
func NewRequestFailedError(message string) *DefenderError {
	return New(ErrorTypeEnvelope, ErrCodeRequestFailed, message)
}

// NewUnauthorizedError creates an authorization-expiry error
func NewUnauthorizedError(message string) *DefenderError {
	return New(ErrorTypeAuth, ErrCodeUnauthorized, message)
}

// NewNetworkError creates a transport-level failure
func NewNetworkError(message string, cause error) *DefenderError {
	return Wrap(ErrorTypeTransport, ErrCodeNetwork, message, cause)
}

// NewStorageCorruptError marks a persisted entry that could not be decoded
func NewStorageCorruptError(key string, cause error) *DefenderError {
	return Wrap(ErrorTypeStorage, ErrCodeStorageCorrupt, fmt.Sprintf("corrupt persisted entry %q", key), cause)
}

// IsCode reports whether err is a DefenderError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var derr *DefenderError
	if errors.As(err, &derr) {
		return derr.Code == code
	}
	return false
}

// MessageOf extracts the normalized user-facing message from err. For a
// DefenderError that is the Message field; anything else falls back to
// the plain Error() text.
func MessageOf(err error) string {
	var derr *DefenderError
	if errors.As(err, &derr) {
		return derr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
