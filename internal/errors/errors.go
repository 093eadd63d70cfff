package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an Arkiv error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrQueryRejected  ErrorCode = "QUERY_REJECTED"  // 400
	ErrEncoding       ErrorCode = "ENCODING"        // 400
	ErrReadOnly       ErrorCode = "READ_ONLY"       // 403
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// ArkivError represents a structured error with code, status, and details.
type ArkivError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ArkivError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ArkivError {
	return &ArkivError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewQueryRejected creates a 400 error for statements the read-only query
// surface refuses, carrying the underlying engine message when there is one.
func NewQueryRejected(reason string) *ArkivError {
	return &ArkivError{
		Code:    ErrQueryRejected,
		Status:  400,
		Message: fmt.Sprintf("query rejected: %s", reason),
	}
}

// NewEncoding creates a 400 error for input that is not valid UTF-8 text.
func NewEncoding(path string) *ArkivError {
	return &ArkivError{
		Code:    ErrEncoding,
		Status:  400,
		Message: fmt.Sprintf("file is not valid UTF-8 text (is it a binary file?): %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewReadOnly creates a 403 error for mutations attempted on a read-only store.
func NewReadOnly(operation string) *ArkivError {
	return &ArkivError{
		Code:    ErrReadOnly,
		Status:  403,
		Message: fmt.Sprintf("database opened read-only; %s requires a writable handle", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewNotFound creates a 404 error for a file or database that does not exist.
func NewNotFound(path string) *ArkivError {
	return &ArkivError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInternal creates a 500 error for unexpected internal errors. The
// original error is kept in Details for logging; the message stays generic.
func NewInternal(err error) *ArkivError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ArkivError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) an ArkivError with the given code.
func Is(err error, code ErrorCode) bool {
	var aErr *ArkivError
	if stderrors.As(err, &aErr) {
		return aErr.Code == code
	}
	return false
}
