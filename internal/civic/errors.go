package civic

import "errors"

// Sentinel errors for the synchronous operation surface. Callers match
// with errors.Is; operations that fail with any of these perform no
// writes.
var (
	// ErrNotFound means a referenced entity id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated means no actor identity was supplied.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrValidation means caller-supplied data violates a field constraint.
	ErrValidation = errors.New("validation failed")
)
