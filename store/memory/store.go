// Package memory is an in-process store.Store for tests and ephemeral saves.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xraph/embers"
	"github.com/xraph/embers/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type value struct {
	kind store.Kind
	i    int64
	f    float64
	s    string
}

// Store keeps every key in a map guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	values map[string]value
	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]value)}
}

func (s *Store) get(key string) (value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return value{}, false, embers.ErrStoreClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// GetInt returns the int at key, or def when it is missing or not an int.
func (s *Store) GetInt(_ context.Context, key string, def int64) (int64, error) {
	v, ok, err := s.get(key)
	if err != nil || !ok || v.kind != store.KindInt {
		return def, err
	}
	return v.i, nil
}

// GetFloat returns the float at key, or def when it is missing or not a float.
func (s *Store) GetFloat(_ context.Context, key string, def float64) (float64, error) {
	v, ok, err := s.get(key)
	if err != nil || !ok || v.kind != store.KindFloat {
		return def, err
	}
	return v.f, nil
}

// GetString returns the string at key, or def when it is missing or not a string.
func (s *Store) GetString(_ context.Context, key, def string) (string, error) {
	v, ok, err := s.get(key)
	if err != nil || !ok || v.kind != store.KindString {
		return def, err
	}
	return v.s, nil
}

// Has reports whether key holds a value.
func (s *Store) Has(_ context.Context, key string) (bool, error) {
	_, ok, err := s.get(key)
	return ok, err
}

// SetInt writes an int.
func (s *Store) SetInt(ctx context.Context, key string, v int64) error {
	return s.Apply(ctx, store.NewBatch().SetInt(key, v))
}

// SetFloat writes a float.
func (s *Store) SetFloat(ctx context.Context, key string, v float64) error {
	return s.Apply(ctx, store.NewBatch().SetFloat(key, v))
}

// SetString writes a string.
func (s *Store) SetString(ctx context.Context, key, v string) error {
	return s.Apply(ctx, store.NewBatch().SetString(key, v))
}

// Apply holds the write lock for the whole batch, so readers never observe
// a partially applied batch.
func (s *Store) Apply(_ context.Context, b *store.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return embers.ErrStoreClosed
	}
	for _, op := range b.Ops() {
		if op.Delete {
			delete(s.values, op.Key)
			continue
		}
		s.values[op.Key] = value{kind: op.Kind, i: op.Int, f: op.Float, s: op.String}
	}
	return nil
}

// Keys returns the keys starting with prefix, sorted.
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, embers.ErrStoreClosed
	}
	keys := make([]string, 0)
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return embers.ErrStoreClosed
	}
	return nil
}

// Close rejects every later call with embers.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
