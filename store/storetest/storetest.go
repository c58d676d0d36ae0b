// Package storetest holds helpers shared by store backend and engine tests:
// a behavioural suite every backend must pass and a Store wrapper that fails
// writes on demand.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/embers/store"
)

// ErrInjected is the error Failing returns for armed writes.
var ErrInjected = errors.New("storetest: injected write failure")

// Failing wraps a Store and rejects writes while armed. Reads pass through.
type Failing struct {
	store.Store

	mu    sync.Mutex
	armed bool
	after int
}

var _ store.Store = (*Failing)(nil)

// NewFailing wraps s.
func NewFailing(s store.Store) *Failing { return &Failing{Store: s} }

// FailWrites makes every subsequent write fail.
func (f *Failing) FailWrites() { f.FailAfter(0) }

// FailAfter lets n more writes through, then fails the rest.
func (f *Failing) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = true
	f.after = n
}

// Heal stops failing writes.
func (f *Failing) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = false
}

func (f *Failing) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.armed {
		return nil
	}
	if f.after > 0 {
		f.after--
		return nil
	}
	return ErrInjected
}

func (f *Failing) SetInt(ctx context.Context, key string, v int64) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.Store.SetInt(ctx, key, v)
}

func (f *Failing) SetFloat(ctx context.Context, key string, v float64) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.Store.SetFloat(ctx, key, v)
}

func (f *Failing) SetString(ctx context.Context, key, v string) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.Store.SetString(ctx, key, v)
}

func (f *Failing) Apply(ctx context.Context, b *store.Batch) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.Store.Apply(ctx, b)
}

// Run exercises the Store contract against stores produced by newStore.
// Each subtest gets a fresh, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	fresh := func(t *testing.T) store.Store {
		t.Helper()
		s := newStore(t)
		require.NoError(t, s.Migrate(context.Background()))
		return s
	}

	t.Run("Defaults", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		i, err := s.GetInt(ctx, "missing", 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), i)

		f, err := s.GetFloat(ctx, "missing", 1.5)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, f, 0)

		str, err := s.GetString(ctx, "missing", "def")
		require.NoError(t, err)
		assert.Equal(t, "def", str)

		ok, err := s.Has(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetGet", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		require.NoError(t, s.SetInt(ctx, "i", 42))
		require.NoError(t, s.SetFloat(ctx, "f", 12.25))
		require.NoError(t, s.SetString(ctx, "s", "fox"))
		require.NoError(t, s.SetInt(ctx, "i", 43))

		i, err := s.GetInt(ctx, "i", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(43), i)

		f, err := s.GetFloat(ctx, "f", 0)
		require.NoError(t, err)
		assert.InDelta(t, 12.25, f, 1e-9)

		str, err := s.GetString(ctx, "s", "")
		require.NoError(t, err)
		assert.Equal(t, "fox", str)

		ok, err := s.Has(ctx, "i")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("KindMismatchReturnsDefault", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		require.NoError(t, s.SetString(ctx, "k", "text"))
		i, err := s.GetInt(ctx, "k", -1)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), i)
	})

	t.Run("ApplyBatch", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		require.NoError(t, s.SetInt(ctx, "gone", 1))
		b := store.NewBatch().
			SetInt("a", 10).
			SetFloat("b", 0.5).
			SetString("c", "x").
			Delete("gone")
		require.NoError(t, s.Apply(ctx, b))

		a, err := s.GetInt(ctx, "a", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(10), a)

		ok, err := s.Has(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Apply(ctx, store.NewBatch()))
	})

	t.Run("Keys", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		require.NoError(t, s.Apply(ctx, store.NewBatch().
			SetInt("upgrade_tier_b", 1).
			SetInt("upgrade_tier_a", 2).
			SetInt("bank_balance", 3)))

		keys, err := s.Keys(ctx, "upgrade_tier_")
		require.NoError(t, err)
		assert.Equal(t, []string{"upgrade_tier_a", "upgrade_tier_b"}, keys)

		all, err := s.Keys(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("Ping", func(t *testing.T) {
		s := fresh(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
