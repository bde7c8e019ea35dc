package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: lock held by another session, file briefly unavailable.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, unknown signature.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion.
	// Examples: disk full, permission denied on the state directory.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors, bugs, or corrupted state.
	CategoryInternal ErrorCategory = "internal"
)

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for engine failures.
const (
	// Transient errors
	ErrCodeLockFailed ErrorCode = "LOCK_FAILED" // Could not acquire the state lock
	ErrCodeStoreRead  ErrorCode = "STORE_READ"  // Persisted state could not be read

	// Permanent errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"     // No record for the key
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Malformed event or config

	// Resource errors
	ErrCodeStoreWrite     ErrorCode = "STORE_WRITE"     // Persisted state could not be written
	ErrCodeRecorderFailed ErrorCode = "RECORDER_FAILED" // Failure memory append failed

	// Internal errors
	ErrCodeInternal   ErrorCode = "INTERNAL"   // Unexpected internal error
	ErrCodeCorruption ErrorCode = "CORRUPTION" // Persisted state failed to decode
	ErrCodePanic      ErrorCode = "PANIC"      // Recovered from panic
)

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeLockFailed, ErrCodeStoreRead:
		return CategoryTransient
	case ErrCodeNotFound, ErrCodeInvalidInput:
		return CategoryPermanent
	case ErrCodeStoreWrite, ErrCodeRecorderFailed:
		return CategoryResource
	case ErrCodeInternal, ErrCodeCorruption, ErrCodePanic:
		return CategoryInternal
	default:
		return CategoryInternal
	}
}
