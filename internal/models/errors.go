package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when an import session id is unknown
	ErrSessionNotFound = errors.New("import session not found")
	// ErrInvalidTransition is returned for an illegal session state change
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrUnknownUnit is returned when a request names a unit that is not configured
	ErrUnknownUnit = errors.New("unknown unit")
)

// ValidationError rejects a snapshot that produced no usable rows
type ValidationError struct {
	Message string       `json:"message"`
	Issues  []ParseIssue `json:"issues,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError reports a failed chunk commit. Chunks before the failed
// one stay committed.
type PersistenceError struct {
	ChunksCommitted int
	TotalChunks     int
	Err             error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chunk %d of %d failed after %d committed: %v",
		e.ChunksCommitted+1, e.TotalChunks, e.ChunksCommitted, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
