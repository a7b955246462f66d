package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the bot.
type ErrorCode string

// Generation error codes
const (
	ErrValidation          ErrorCode = "VALIDATION"
	ErrTransientTransport  ErrorCode = "TRANSIENT_TRANSPORT"
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTaskFailure ErrorCode = "UPSTREAM_TASK_FAILURE"
	ErrPollingTimeout      ErrorCode = "POLLING_TIMEOUT"
	ErrEmptyResponse       ErrorCode = "EMPTY_RESPONSE"
)

// Gate / ledger / delivery error codes
const (
	ErrCooldown       ErrorCode = "COOLDOWN"
	ErrContentBlocked ErrorCode = "CONTENT_BLOCKED"
	ErrQuotaExceeded  ErrorCode = "QUOTA_EXCEEDED"
	ErrDeliveryFailed ErrorCode = "DELIVERY_FAILED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// UserMessage renders err as a single human-readable line for chat users.
// Structured errors expose only their message; the cause stays in the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	e, ok := AsError(err)
	if !ok {
		return err.Error()
	}
	switch e.Code {
	case ErrPollingTimeout:
		return "the image service did not finish in time: " + e.Message
	case ErrUpstreamTaskFailure:
		return "the image service rejected the task: " + e.Message
	case ErrTransientTransport:
		return "the image service is unreachable right now: " + e.Message
	}
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.HTTPStatus)
	}
	return e.Message
}
