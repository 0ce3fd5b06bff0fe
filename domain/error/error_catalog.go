package error

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Credential Errors (1xxx) - recovered locally, surfaced to the caller
	ErrCodeInvalidCredentials ErrorCode = "CRED_1001"
	ErrCodeLoginUnavailable   ErrorCode = "CRED_1002"

	// Decode Errors (2xxx) - malformed access token, fatal for the session
	ErrCodeTokenMalformed     ErrorCode = "DECODE_2001"
	ErrCodeTokenMissingClaims ErrorCode = "DECODE_2002"

	// Refresh Errors (3xxx) - any of these forces a logout with broadcast
	ErrCodeRefreshNetwork  ErrorCode = "REFRESH_3001"
	ErrCodeRefreshRejected ErrorCode = "REFRESH_3002"
	ErrCodeRefreshExpired  ErrorCode = "REFRESH_3003"

	// Logout Errors (4xxx) - best-effort revocation, logged not thrown
	ErrCodeLogoutNetwork ErrorCode = "LOGOUT_4001"

	// Restore Errors (5xxx) - silently discarded at startup
	ErrCodeRestoreCorrupt        ErrorCode = "RESTORE_5001"
	ErrCodeRestoreRefreshExpired ErrorCode = "RESTORE_5002"

	// Validation Errors (6xxx)
	ErrCodeInvalidEmail    ErrorCode = "VALID_6001"
	ErrCodeMissingPassword ErrorCode = "VALID_6002"

	// Storage Errors (7xxx)
	ErrCodeStoreRead  ErrorCode = "STORE_7001"
	ErrCodeStoreWrite ErrorCode = "STORE_7002"

	// Broadcast Errors (8xxx)
	ErrCodeBroadcastUnavailable ErrorCode = "CAST_8001"
	ErrCodeBroadcastPublish     ErrorCode = "CAST_8002"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without an underlying cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code from err, or empty when err is not an
// AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
