package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeProvider        ErrorCode = "PROVIDER_ERROR"
	ErrCodeProviderUnavail ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeTransport       ErrorCode = "TRANSPORT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError is an error with a code, a client-facing message and an HTTP status.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"error"`
	StatusCode int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Wrap wraps err with a code, message and status.
func Wrap(code ErrorCode, message string, statusCode int, err error) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode, Err: err}
}

func InvalidInput(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message, StatusCode: http.StatusBadRequest}
}

func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message, StatusCode: http.StatusNotFound}
}

func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, StatusCode: http.StatusInternalServerError}
}

// As extracts an AppError from err, wrapping anything else as an internal error
// that keeps err's text.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	ae := Internal(err.Error())
	ae.Err = err
	return ae
}
