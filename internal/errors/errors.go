package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a textcap error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrDocument       ErrorCode = "DOCUMENT"        // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// TextcapError represents a structured error with code, status, and details.
type TextcapError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *TextcapError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TextcapError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TextcapError {
	return &TextcapError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing session or entry.
func NewNotFound(kind, identifier string) *TextcapError {
	return &TextcapError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *TextcapError {
	return &TextcapError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *TextcapError {
	return &TextcapError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewCancelled creates an error for an operation stopped by context cancellation.
func NewCancelled(op string) *TextcapError {
	return &TextcapError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewDocument creates a 500 error for a failure opening or saving a capture document.
func NewDocument(path string, err error) *TextcapError {
	msg := fmt.Sprintf("document %s", path)
	if err != nil {
		msg = fmt.Sprintf("document %s: %v", path, err)
	}
	return &TextcapError{
		Code:    ErrDocument,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TextcapError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TextcapError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a TextcapError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TextcapError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}
