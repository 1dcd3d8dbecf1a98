package graph

import "errors"

var (
	// ErrInvalidInput indicates malformed or empty required input, such as an
	// empty user story or a case node without an id. Not retryable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates an explicit lookup by id for a node the caller
	// expected to exist. Traversal and query operations return empty results
	// instead of this error.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable indicates the durable backend could not be
	// reached. Propagated to the caller without retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError wraps a backend failure so callers can match
// ErrStorageUnavailable with errors.Is while still unwrapping the cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}
