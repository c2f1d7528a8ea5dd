// Package apperrors defines the error taxonomy shared by the billing service.
package apperrors

import (
	"errors"
	"fmt"
)

// Re-export the standard helpers so callers only import one errors package.
var (
	Is = errors.Is
	As = errors.As
)

// AppError carries a taxonomy code alongside the message so the HTTP layer can
// map it to a status without string matching.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

func newError(code, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// Validation marks input that can never succeed on retry (missing field,
// unparseable payload, unsupported combination).
func Validation(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

func Validationf(format string, args ...interface{}) *AppError {
	return newError(CodeValidation, fmt.Sprintf(format, args...), nil)
}

// Authorization marks a failed signature check or a transaction re-verification
// mismatch. Callers must not act on the payload after receiving one.
func Authorization(message string) *AppError {
	return newError(CodeAuthorization, message, nil)
}

// Unauthenticated marks a request without a usable identity.
func Unauthenticated(message string) *AppError {
	return newError(CodeUnauthenticated, message, nil)
}

// NotFound marks an event that references a subscription code we have no row for.
func NotFound(message string) *AppError {
	return newError(CodeNotFound, message, nil)
}

func NotFoundf(format string, args ...interface{}) *AppError {
	return newError(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

// RateLimited marks a request rejected by the per-IP limiter.
func RateLimited(message string) *AppError {
	return newError(CodeRateLimited, message, nil)
}

// Internal marks misconfiguration or hard-dependency failure. Providers will
// redeliver webhooks answered with it.
func Internal(message string, err error) *AppError {
	return newError(CodeInternal, message, err)
}

// Wrap keeps the code of an existing AppError while adding context, and
// classifies everything else as internal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return newError(appErr.Code(), message, err)
	}
	return newError(CodeInternal, message, err)
}

// CodeOf returns the taxonomy code of err, or CodeInternal for plain errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return CodeInternal
}
