// Package storage persists extraction progress and attempt history.
package storage

import (
	"errors"
	"fmt"
	"time"
)

const lockPollInterval = 10 * time.Millisecond

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrStateCorrupt indicates the persisted progress state could not be
	// decoded or failed validation. Callers must abort rather than reset.
	ErrStateCorrupt = errors.New("storage: progress state corrupt")
	// ErrLockTimeout indicates a timeout acquiring the state file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s: %v\n", storErr.Op, storErr.Entity, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("load", "save", "append", "lock").
	Op string
	// Entity is the entity type ("progress", "attempt_log").
	Entity string
	// Path is the file path involved, if applicable.
	Path string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.Path, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }
