package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Wrap adds context to err. An *Error in the chain keeps its code, signature
// and path; anything else gets a code inferred from the cause. Nil stays nil.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var inner *Error
	if errors.As(err, &inner) {
		wrapped := &Error{
			code:      inner.code,
			category:  inner.category,
			message:   message,
			cause:     err,
			metadata:  inner.Metadata(),
			signature: inner.signature,
			path:      inner.path,
			at:        inner.at,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	opts = append(opts, WithCause(err))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return New(ErrCodeNotFound, message, opts...)
	case errors.Is(err, os.ErrPermission):
		return New(ErrCodeStoreWrite, message, opts...)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return New(ErrCodeLockFailed, message, opts...)
	}
	return New(ErrCodeInternal, message, opts...)
}

// WrapWithCode wraps err under a specific code. Nil stays nil.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// Is reports whether the outermost *Error in the chain has code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.code == code
	}
	return false
}

// IsRetryable reports whether err is an *Error in a retryable category.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// Code extracts the error code, or "" when err carries none.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message, WithMetadata("panic_type", fmt.Sprintf("%T", recovered)))
}
