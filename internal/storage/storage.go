package storage

import (
	"context"
	"io"
	"time"
)

// StoredFile represents a file held in a backup destination
type StoredFile struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Storage defines the interface for backup destinations
type Storage interface {
	// Store saves data under the given key
	Store(ctx context.Context, key string, reader io.Reader) error

	// List returns all stored files whose key starts with prefix
	List(ctx context.Context, prefix string) ([]StoredFile, error)

	// Delete removes a stored file. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Get retrieves a stored file for reading
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Backend creates Storage instances from pool configuration.
// Each destination type implements this to provide factory functionality.
type Backend interface {
	// Name returns the type identifier ("local", "s3", etc.)
	Name() string

	// Create instantiates storage from pool configuration options
	Create(poolName string, options map[string]string) (Storage, error)
}
