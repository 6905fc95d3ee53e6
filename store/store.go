// Package store provides the persistence layer as a small key-value blob
// store. Callers serialize their documents to JSON and read/write them whole
// under well-known keys; the package offers a local file backend and a
// PostgreSQL backend behind the same interface.
package store

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Get when no value has been stored under a key.
var ErrNotExist = errors.New("store: key does not exist")

// Store is a strongly consistent key-value blob store. A Get issued after a
// successful Put observes that Put's value. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Close releases any resources held by the store.
	Close() error
}
