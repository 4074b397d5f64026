package core

import (
	"errors"
	"fmt"
)

// Store condition errors. Store implementations return these (possibly
// wrapped) so the service can tell a failed precondition from an outage.
var (
	// ErrRecordNotFound is returned by Store.Get when no record has the id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrConditionFailed is returned by Store.ConditionalPut when the
	// existence precondition does not hold.
	ErrConditionFailed = errors.New("conditional write failed")

	// ErrBarcodeTaken is returned by Store.ConditionalPut when another
	// record already owns the barcode.
	ErrBarcodeTaken = errors.New("barcode already owned by another record")

	// ErrInvalidPageToken is returned by list queries for a token the
	// store did not issue.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// ConflictError reports a uniqueness or optimistic-concurrency violation.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string { return e.Message }

// NotFoundError reports that the referenced record does not exist.
type NotFoundError struct {
	Message string
}

func (e NotFoundError) Error() string { return e.Message }

// CollaboratorError wraps an infrastructure failure from a store, blob
// store or other dependency. It is surfaced as is and never retried here.
type CollaboratorError struct {
	Op  string // e.g. "store.get"
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func collaborator(op string, err error) error {
	return &CollaboratorError{Op: op, Err: err}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var ne NotFoundError
	return errors.As(err, &ne)
}
