package mcpws

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorConnection
	ErrorNotConnected
	ErrorClosed
	ErrorInvalidConfig
	ErrorSerialization
	ErrorHeartbeatTimeout
	ErrorMaxAttempts
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorConnection:
		return "connection_error"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorClosed:
		return "client_closed"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorHeartbeatTimeout:
		return "heartbeat_timeout"
	case ErrorMaxAttempts:
		return "max_reconnect_attempts"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ClientError is a structured error with code and context.
type ClientError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ClientError) Unwrap() error {
	return e.Wrapped
}

// Is matches two ClientErrors by code.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a ClientError with the given code and message.
func NewError(code ErrorCode, message string) *ClientError {
	return &ClientError{Code: code, Message: message}
}

// WrapError wraps an existing error with a ClientError.
func WrapError(code ErrorCode, message string, err error) *ClientError {
	return &ClientError{Code: code, Message: message, Wrapped: err}
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrNotConnected     = NewError(ErrorNotConnected, "not connected")
	ErrClosed           = NewError(ErrorClosed, "client is closed")
	ErrHeartbeatTimeout = NewError(ErrorHeartbeatTimeout, "no pong before heartbeat timeout")
)

// IsConnectionError reports whether err is a connection-level failure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorConnection || ce.Code == ErrorNotConnected || ce.Code == ErrorHeartbeatTimeout
}
