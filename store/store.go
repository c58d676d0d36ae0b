// Package store defines the persisted key-value capability the engine writes
// its save state to, plus the classification of every key the engine owns.
package store

import (
	"context"
)

// Store is the durable scalar key-value capability backing one save slot.
//
// Getters return def when the key is absent or holds a value of another kind.
// Every write is durable when the call returns; there is no separate flush.
type Store interface {
	// Scalar reads
	GetInt(ctx context.Context, key string, def int64) (int64, error)
	GetFloat(ctx context.Context, key string, def float64) (float64, error)
	GetString(ctx context.Context, key string, def string) (string, error)
	Has(ctx context.Context, key string) (bool, error)

	// Scalar writes
	SetInt(ctx context.Context, key string, v int64) error
	SetFloat(ctx context.Context, key string, v float64) error
	SetString(ctx context.Context, key string, v string) error

	// Apply writes every staged operation of b atomically: either all of
	// them are durable afterwards or none are.
	Apply(ctx context.Context, b *Batch) error

	// Keys lists the stored keys starting with prefix, sorted ascending.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
