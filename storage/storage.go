// Package storage persists crawl output as newline-delimited JSON and ships
// finished files to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates an unreadable record was found in an output file.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("storage: store closed")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("open", "scan", "append", "upload", "lock").
	Op string
	// Entity is the entity type ("file", "record", "object").
	Entity string
	// ID is the path, record id or object key if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// RecordStore is an append-only sink of crawl records keyed by item id.
// Implementations need not be safe for concurrent use.
type RecordStore interface {
	// Done reports whether a record for id was already written.
	Done(id string) bool
	// Append writes one record and marks id done.
	Append(id string, record any) error
	// Close flushes and releases the store.
	Close() error
}

// Uploader copies a finished output file to remote storage.
type Uploader interface {
	// Upload stores the file at path and returns its remote location.
	Upload(ctx context.Context, path string) (string, error)
}
