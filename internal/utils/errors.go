package utils

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/dbxmirror/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired = 10
	ExitAuthExpired  = 11
	ExitAuthInvalid  = 12
	// File operation errors (20-29)
	ExitFileNotFound     = 20
	ExitPermissionDenied = 21
	ExitLocalIO          = 26
	// Network errors (30-39)
	ExitNetworkError = 30
	ExitTimeout      = 31
	ExitRateLimited  = 32
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	// Batch errors
	ExitBatchPartialFailure = 60
	// Interrupted by the user
	ExitCancelled = 130
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired        = "AUTH_REQUIRED"
	ErrCodeAuthExpired         = "AUTH_EXPIRED"
	ErrCodeAuthInvalid         = "AUTH_INVALID"
	ErrCodeFileNotFound        = "FILE_NOT_FOUND"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeLocalIO             = "LOCAL_IO"
	ErrCodeNetworkError        = "NETWORK_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInvalidArgument     = "INVALID_ARGUMENT"
	ErrCodeInvalidPath         = "INVALID_PATH"
	ErrCodeBatchPartialFailure = "BATCH_PARTIAL_FAILURE"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeUnknown             = "UNKNOWN"
)

// RetryAfterKey is the CLIError context key holding a server-supplied
// retry delay in seconds
const RetryAfterKey = "retryAfterSeconds"

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithAPIReason(reason string) *CLIErrorBuilder {
	b.err.APIReason = reason
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:        ExitAuthRequired,
		ErrCodeAuthExpired:         ExitAuthExpired,
		ErrCodeAuthInvalid:         ExitAuthInvalid,
		ErrCodeFileNotFound:        ExitFileNotFound,
		ErrCodePermissionDenied:    ExitPermissionDenied,
		ErrCodeLocalIO:             ExitLocalIO,
		ErrCodeNetworkError:        ExitNetworkError,
		ErrCodeTimeout:             ExitTimeout,
		ErrCodeRateLimited:         ExitRateLimited,
		ErrCodeInvalidArgument:     ExitInvalidArgument,
		ErrCodeInvalidPath:         ExitInvalidPath,
		ErrCodeBatchPartialFailure: ExitBatchPartialFailure,
		ErrCodeCancelled:           ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
	cause    error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// Unwrap returns the underlying error, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WrapAppError creates an AppError that keeps cause for errors.Is/As
func WrapAppError(cliErr types.CLIError, cause error) *AppError {
	return &AppError{CLIError: cliErr, cause: cause}
}

// ErrorCode extracts the error code from err, or ErrCodeUnknown
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.CLIError.Code
	}
	return ErrCodeUnknown
}

// IsRetryable reports whether err is an AppError marked retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.CLIError.Retryable
	}
	return false
}

// IsAuthError reports whether err invalidates the credential for the whole run
func IsAuthError(err error) bool {
	return IsAuthCode(ErrorCode(err))
}

// IsAuthCode reports whether code is one of the AUTH_* codes
func IsAuthCode(code string) bool {
	switch code {
	case ErrCodeAuthRequired, ErrCodeAuthExpired, ErrCodeAuthInvalid:
		return true
	}
	return false
}

// IsNotFound reports whether err is a missing remote path
func IsNotFound(err error) bool {
	return ErrorCode(err) == ErrCodeFileNotFound
}

// LocalIOError wraps a local filesystem failure
func LocalIOError(op, path string, err error) *AppError {
	return WrapAppError(NewCLIError(ErrCodeLocalIO, fmt.Sprintf("%s %s: %v", op, path, err)).
		WithContext("op", op).
		WithContext("path", path).
		Build(), err)
}
