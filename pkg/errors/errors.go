package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"

	// Device errors: recovered locally by degrading local media state,
	// never fatal to the session
	ErrCodeDeviceNotFound         ErrorCode = "DEVICE_NOT_FOUND"
	ErrCodeDevicePermissionDenied ErrorCode = "DEVICE_PERMISSION_DENIED"
	ErrCodeDeviceBusy             ErrorCode = "DEVICE_BUSY"

	// Screen share errors
	ErrCodeShareCancelled         ErrorCode = "SHARE_CANCELLED"
	ErrCodeShareAcquisitionFailed ErrorCode = "SHARE_ACQUISITION_FAILED"
	ErrCodeShareAlreadyActive     ErrorCode = "SHARE_ALREADY_ACTIVE"
	ErrCodeShareNotActive         ErrorCode = "SHARE_NOT_ACTIVE"

	// Negotiation errors: reported per-connection, no rollback
	ErrCodeSubstitutionFailed ErrorCode = "SUBSTITUTION_FAILED"
	ErrCodeTrackAlreadyBound  ErrorCode = "TRACK_ALREADY_BOUND"
	ErrCodePeerNotFound       ErrorCode = "PEER_NOT_FOUND"

	// Session usage errors: surfaced immediately, no retry
	ErrCodeSessionAlreadyActive ErrorCode = "SESSION_ALREADY_ACTIVE"
	ErrCodeSessionNotActive     ErrorCode = "SESSION_NOT_ACTIVE"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewAppErrorf creates a new application error with formatting
func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err is an AppError carrying the given code
func HasCode(err error, code ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsDeviceError reports whether err belongs to the device error family
func IsDeviceError(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case ErrCodeDeviceNotFound, ErrCodeDevicePermissionDenied, ErrCodeDeviceBusy:
		return true
	default:
		return false
	}
}

// WrapError wraps a standard error as an AppError
func WrapError(code ErrorCode, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}
