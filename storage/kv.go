// Package storage persists configuration in a key-value store.
//
// The core packages never touch a database: they receive plain records.
// This package provides the store interface, an in-memory and a SQLite
// implementation, and the model settings record built on top of them.

package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// KVStore is a byte-valued key-value store.
type KVStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
