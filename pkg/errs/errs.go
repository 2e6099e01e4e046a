// Package errs defines coded application errors shared across the pipeline.
package errs

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class for logging and batch summaries.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"
	ErrDatabase ErrorCode = "DATABASE_ERROR"

	// Pipeline errors
	ErrSourceFetch     ErrorCode = "SOURCE_FETCH_FAILED"
	ErrNormalization   ErrorCode = "NORMALIZATION_FAILED"
	ErrDedupConflict   ErrorCode = "DEDUP_CONFLICT"
	ErrUploadIntegrity ErrorCode = "UPLOAD_INTEGRITY"
	ErrIndexProjection ErrorCode = "INDEX_PROJECTION_FAILED"
	ErrCursorPersist   ErrorCode = "CURSOR_PERSIST_FAILED"
)

// AppError carries an error code, a human message and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError without a cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and message to an existing error.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the error code, defaulting to ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}
