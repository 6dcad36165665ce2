package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrInternal ErrorCode = "INTERNAL"
	ErrIO       ErrorCode = "IO"

	// Configuration errors (missing key, bad interpolation, depth overflow)
	ErrConfig ErrorCode = "CONFIG"

	// External command errors (could not start, non-zero exit)
	ErrRun ErrorCode = "RUN"

	// Build summary errors (missing file, mtime/size mismatch, bad grammar)
	ErrIntegrity ErrorCode = "INTEGRITY"

	// Domain-rule errors
	ErrDuplicateBuild ErrorCode = "DUPLICATE_BUILD"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNameMismatch   ErrorCode = "NAME_MISMATCH"
)

// Process exit codes per error category. The non-obvious values (101, 102,
// 127) are the wire-compatible codes of the original bot and are relied on
// by wrapper scripts.
const (
	ExitOK       = 0
	ExitConfig   = 1
	ExitIO       = 2
	ExitError    = 101
	ExitRun      = 102
	ExitInternal = 127
)

// RpmbotError represents a structured error with code, hint and details
type RpmbotError struct {
	Code    ErrorCode
	Message string
	// Hint, when set, tells the user how to recover (check config files,
	// pass -f, run build first and so on).
	Hint    string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RpmbotError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RpmbotError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *RpmbotError) Is(target error) bool {
	var targetErr *RpmbotError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new RpmbotError with the given code and message
func New(code ErrorCode, message string) *RpmbotError {
	return &RpmbotError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RpmbotError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RpmbotError {
	return &RpmbotError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a RpmbotError
func Wrap(err error, code ErrorCode, message string) *RpmbotError {
	if err == nil {
		return nil
	}
	return &RpmbotError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RpmbotError {
	if err == nil {
		return nil
	}
	return &RpmbotError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithHint attaches a recovery hint to the error
func (e *RpmbotError) WithHint(hint string) *RpmbotError {
	e.Hint = hint
	return e
}

// WithDetail adds a detail to the error
func (e *RpmbotError) WithDetail(key string, value interface{}) *RpmbotError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var botErr *RpmbotError
	if errors.As(err, &botErr) {
		return botErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a RpmbotError
func GetErrorCode(err error) ErrorCode {
	var botErr *RpmbotError
	if errors.As(err, &botErr) {
		return botErr.Code
	}
	return ErrUnknown
}

// GetHint returns the recovery hint carried by an error, if any
func GetHint(err error) string {
	var botErr *RpmbotError
	if errors.As(err, &botErr) {
		return botErr.Hint
	}
	return ""
}

// GetDetail returns a single detail value from an error, or nil
func GetDetail(err error, key string) interface{} {
	var botErr *RpmbotError
	if errors.As(err, &botErr) {
		return botErr.Details[key]
	}
	return nil
}

// ExitCode maps an error to the process exit code for the CLI boundary
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var botErr *RpmbotError
	if !errors.As(err, &botErr) {
		// Untyped errors (flag parsing, usage) are general failures.
		return ExitError
	}
	switch botErr.Code {
	case ErrConfig:
		return ExitConfig
	case ErrIO:
		return ExitIO
	case ErrRun:
		return ExitRun
	case ErrInternal, ErrUnknown:
		return ExitInternal
	default:
		return ExitError
	}
}
