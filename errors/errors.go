package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Error is a failure inside the engine itself. It carries a code, the
// category derived from it and, when known, the signature and state path
// involved.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	signature string
	path      string
	at        time.Time
}

var _ json.Marshaler = (*Error)(nil)

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable reports whether repeating the operation may succeed.
func (e *Error) Retryable() bool {
	return e.category.IsRetryable()
}

// Metadata returns a copy of the error metadata.
func (e *Error) Metadata() map[string]string {
	out := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		out[k] = v
	}
	return out
}

func (e *Error) Unwrap() error {
	return e.cause
}

// report is the JSON form written by the CLI's --json error paths.
type report struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Cause     string            `json:"cause,omitempty"`
	Signature string            `json:"signature,omitempty"`
	Path      string            `json:"path,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Retryable bool              `json:"retryable"`
	At        string            `json:"at,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	r := report{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Signature: e.signature,
		Path:      e.path,
		Metadata:  e.metadata,
		Retryable: e.Retryable(),
	}
	if e.cause != nil {
		r.Cause = e.cause.Error()
	}
	if !e.at.IsZero() {
		r.At = e.at.UTC().Format(time.RFC3339)
	}
	return json.Marshal(r)
}

// Option configures an Error.
type Option func(*Error)

// WithMetadata adds a key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithSignature names the failure signature being processed.
func WithSignature(sig string) Option {
	return func(e *Error) { e.signature = sig }
}

// WithPath names the state file or directory involved.
func WithPath(path string) Option {
	return func(e *Error) { e.path = path }
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) { e.cause = cause }
}

// New creates an Error whose category follows from code.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:     code,
		category: code.DefaultCategory(),
		message:  message,
		at:       time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NotFound creates a not found error.
func NotFound(message string, opts ...Option) *Error {
	return New(ErrCodeNotFound, message, opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// Corrupted reports a state file that failed to decode.
func Corrupted(path string, cause error, opts ...Option) *Error {
	opts = append([]Option{WithPath(path), WithCause(cause)}, opts...)
	return New(ErrCodeCorruption, fmt.Sprintf("decode %s", path), opts...)
}

// From returns the outermost *Error in err's chain, or wraps err as an
// internal error. It returns nil for a nil err.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(ErrCodeInternal, err.Error())
}
