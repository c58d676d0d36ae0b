package upgrade

import (
	"context"

	"github.com/xraph/embers/store"
)

// DefaultStoreUnlockCost is the price of opening the upgrade store.
const DefaultStoreUnlockCost = 25

// Shop tracks the one-way store_unlocked flag. The flag is cycle-scoped, so
// a prestige locks the store again.
type Shop struct {
	store store.Store
	cost  int64
}

// NewShop creates a Shop charging cost to unlock.
func NewShop(s store.Store, cost int64) *Shop {
	return &Shop{store: s, cost: cost}
}

// Cost returns the unlock price.
func (s *Shop) Cost() int64 { return s.cost }

// Unlocked reports whether the store is open.
func (s *Shop) Unlocked(ctx context.Context) (bool, error) {
	v, err := s.store.GetInt(ctx, store.KeyStoreUnlocked, 0)
	return v != 0, err
}

// Unlock opens the store, charging the unlock price once. Unlocking an open
// store succeeds without charging.
func (s *Shop) Unlock(ctx context.Context, debiter Debiter) (bool, error) {
	open, err := s.Unlocked(ctx)
	if err != nil || open {
		return open, err
	}
	return debiter.TryDebitWith(ctx, s.cost, store.NewBatch().SetInt(store.KeyStoreUnlocked, 1))
}
