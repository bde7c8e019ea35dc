// Package errors provides the structured error taxonomy used inside recoverkit.
// These are the engine's own failures (a retry file that cannot be read, a
// memory append that fails), not the tool failures the engine classifies.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: Temporary failures where retry may succeed (lock contention, busy files)
//   - Permanent: Failures where retry will not help (invalid input, not found)
//   - Resource: Resource exhaustion (disk full, too many open files)
//   - Internal: Unexpected errors indicating bugs or corrupted state
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeStoreWrite, "write retry file")
//
// Wrap an existing error with context:
//
//	wrapped := errors.WrapWithCode(err, errors.ErrCodeStoreRead, "load record",
//	    errors.WithSignature(sig))
//
// Decide how to degrade:
//
//	if errors.Is(err, errors.ErrCodeStoreRead) {
//	    // treat as a fresh signature
//	}
//
// Retry only what may succeed the second time:
//
//	if errors.IsRetryable(err) {
//	    // try again before degrading
//	}
//
// Report any error as JSON:
//
//	json.NewEncoder(w).Encode(map[string]interface{}{"error": errors.From(err)})
//
// Convert a recovered panic:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = errors.RecoverPanic(r)
//	    }
//	}()
package errors
