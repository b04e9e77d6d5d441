// Package storage is the object-storage capability used by the job pipeline:
// put bytes, get bytes, get a JSON document. Locations are bucket + key pairs;
// nothing above this package assumes a particular backend.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by StorageError when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the object-storage capability consumed by the pipeline.
// Reads are side-effect free and safe to retry.
type Store interface {
	// Put writes data to loc, replacing any existing object.
	Put(ctx context.Context, loc Location, data []byte, contentType string) error

	// Get reads the whole object at loc.
	Get(ctx context.Context, loc Location) ([]byte, error)

	// GetJSON reads the object at loc and decodes it into v.
	GetJSON(ctx context.Context, loc Location, v any) error
}

// StorageError wraps a read/write failure at the object-storage boundary.
type StorageError struct {
	Op       string // "put", "get", "decode"
	Location Location
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Location.URI(), e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func newStorageError(op string, loc Location, err error) error {
	return &StorageError{Op: op, Location: loc, Err: err}
}
