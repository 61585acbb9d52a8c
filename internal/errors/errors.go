package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a slicerbridge error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"        // 400
	ErrUnknownPlasticType  ErrorCode = "UNKNOWN_PLASTIC_TYPE"   // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"              // 404
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"         // 404
	ErrBaseProfileNotFound ErrorCode = "BASE_PROFILE_NOT_FOUND" // 404
	ErrInputTooLarge       ErrorCode = "INPUT_TOO_LARGE"        // 413
	ErrReadFailed          ErrorCode = "READ_FAILED"            // 422
	ErrCancelled           ErrorCode = "CANCELLED"              // 499
	ErrInternal            ErrorCode = "INTERNAL"               // 500
)

// BridgeError represents a structured error with code, status, and details.
type BridgeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *BridgeError {
	return &BridgeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnknownPlasticType creates a 400 error for a plastic type without a base profile.
func NewUnknownPlasticType(plastic string) *BridgeError {
	return &BridgeError{
		Code:    ErrUnknownPlasticType,
		Status:  400,
		Message: fmt.Sprintf("unknown plastic type: %s", plastic),
		Details: map[string]any{"plastic_type": plastic},
	}
}

// NewNotFound creates a 404 error for a missing conversion batch.
func NewNotFound(identifier string) *BridgeError {
	return &BridgeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("batch not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing input file.
func NewFileNotFound(path string) *BridgeError {
	return &BridgeError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewBaseProfileNotFound creates a 404 error when a base profile cannot be loaded.
func NewBaseProfileNotFound(path string) *BridgeError {
	return &BridgeError{
		Code:    ErrBaseProfileNotFound,
		Status:  404,
		Message: fmt.Sprintf("base profile not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInputTooLarge creates a 413 error when an input exceeds the size limit.
func NewInputTooLarge(max, actual int64) *BridgeError {
	return &BridgeError{
		Code:    ErrInputTooLarge,
		Status:  413,
		Message: fmt.Sprintf("input exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewReadFailed creates a 422 error for an input that exists but cannot be read or decoded.
func NewReadFailed(path string, err error) *BridgeError {
	msg := fmt.Sprintf("failed to read %s", path)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &BridgeError{
		Code:    ErrReadFailed,
		Status:  422,
		Message: msg,
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error when the caller gave up.
func NewCancelled(operation string) *BridgeError {
	return &BridgeError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *BridgeError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &BridgeError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a BridgeError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BridgeError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}
