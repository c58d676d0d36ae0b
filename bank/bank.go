// Package bank owns the spendable currency balance and the per-run earnings
// accumulator. Credit and debit are the only ways the balance moves.
package bank

import (
	"context"
	"math"
	"sync"

	"github.com/xraph/embers/store"
	"github.com/xraph/embers/types"
)

// EarningsRecorder receives every amount earned during a run.
type EarningsRecorder interface {
	AddLifetimeCurrency(ctx context.Context, amount int64) error
}

// Change describes one committed balance movement.
type Change struct {
	Balance int64
	Delta   int64
}

// Observer is notified synchronously after a balance change is durable.
type Observer func(ctx context.Context, c Change)

// Bank is safe for concurrent use; every read-modify-write holds mu.
type Bank struct {
	mu        sync.Mutex
	store     store.Store
	earnings  EarningsRecorder
	observers []Observer

	runActive   bool
	accumulator int64
}

// New creates a Bank persisting to s and reporting run earnings to rec.
func New(s store.Store, rec EarningsRecorder) *Bank {
	return &Bank{store: s, earnings: rec}
}

// OnChange registers an observer. Register observers before use.
func (b *Bank) OnChange(fn Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

func (b *Bank) notify(ctx context.Context, c Change) {
	b.mu.Lock()
	obs := append([]Observer(nil), b.observers...)
	b.mu.Unlock()

	for _, fn := range obs {
		fn(ctx, c)
	}
}

// Balance reads the persisted balance.
func (b *Bank) Balance(ctx context.Context) (int64, error) {
	return b.store.GetInt(ctx, store.KeyBankBalance, 0)
}

// Credit adds amount to the balance. Non-positive amounts are ignored.
func (b *Bank) Credit(ctx context.Context, amount int64) error {
	return b.CreditWith(ctx, amount, nil)
}

// CreditWith credits amount and writes extra in the same atomic batch. extra
// is applied even when amount is not positive.
func (b *Bank) CreditWith(ctx context.Context, amount int64, extra *store.Batch) error {
	b.mu.Lock()
	c, err := b.creditLocked(ctx, amount, extra)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if c.Delta != 0 {
		b.notify(ctx, c)
	}
	return nil
}

func (b *Bank) creditLocked(ctx context.Context, amount int64, extra *store.Batch) (Change, error) {
	if amount < 0 {
		amount = 0
	}
	if amount == 0 && extra.Len() == 0 {
		return Change{}, nil
	}

	cur, err := b.Balance(ctx)
	if err != nil {
		return Change{}, err
	}
	next := cur
	if amount > 0 {
		if cur > math.MaxInt64-amount {
			next = math.MaxInt64
		} else {
			next = cur + amount
		}
	}

	batch := store.NewBatch().Merge(extra)
	if next != cur {
		batch.SetInt(store.KeyBankBalance, next)
	}
	if err := b.store.Apply(ctx, batch); err != nil {
		return Change{}, err
	}
	return Change{Balance: next, Delta: next - cur}, nil
}

// TryDebit removes amount from the balance if it is covered. Non-positive
// amounts succeed without touching the balance.
func (b *Bank) TryDebit(ctx context.Context, amount int64) (bool, error) {
	return b.TryDebitWith(ctx, amount, nil)
}

// TryDebitWith debits amount and writes extra in the same atomic batch.
// When the balance does not cover amount nothing is written.
func (b *Bank) TryDebitWith(ctx context.Context, amount int64, extra *store.Batch) (bool, error) {
	if amount < 0 {
		amount = 0
	}

	b.mu.Lock()
	cur, err := b.Balance(ctx)
	if err != nil {
		b.mu.Unlock()
		return false, err
	}
	if amount > cur {
		b.mu.Unlock()
		return false, nil
	}

	batch := store.NewBatch().Merge(extra)
	if amount > 0 {
		batch.SetInt(store.KeyBankBalance, cur-amount)
	}
	if batch.Len() > 0 {
		if err := b.store.Apply(ctx, batch); err != nil {
			b.mu.Unlock()
			return false, err
		}
	}
	b.mu.Unlock()

	if amount > 0 {
		b.notify(ctx, Change{Balance: cur - amount, Delta: -amount})
	}
	return true, nil
}

// ──────────────────────────────────────────────────
// Run accumulation
// ──────────────────────────────────────────────────

// BeginRun opens the earnings gate and zeroes the accumulator.
func (b *Bank) BeginRun() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runActive = true
	b.accumulator = 0
}

// EndRun closes the earnings gate. The accumulator is kept for SettleRun.
func (b *Bank) EndRun() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runActive = false
}

// RunActive reports whether earnings are currently accepted.
func (b *Bank) RunActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runActive
}

// RunEarnings returns the unsettled amount earned this run.
func (b *Bank) RunEarnings() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accumulator
}

// AddRunEarnings scales base by multiplier, adds the result to the run
// accumulator and the lifetime earned stat, and returns it. Earnings outside
// a run are dropped.
func (b *Bank) AddRunEarnings(ctx context.Context, base int64, multiplier float64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.runActive || base <= 0 {
		return 0, nil
	}
	final := types.Amount(base).Scale(types.Multiplier(multiplier)).Int64()

	b.accumulator += final
	if b.earnings != nil {
		if err := b.earnings.AddLifetimeCurrency(ctx, final); err != nil {
			b.accumulator -= final
			return 0, err
		}
	}
	return final, nil
}

// SettleRun credits the accumulator into the balance and zeroes it. A second
// call settles 0. On a failed write the accumulator is kept intact.
func (b *Bank) SettleRun(ctx context.Context) (int64, error) {
	b.mu.Lock()
	amount := b.accumulator
	if amount == 0 {
		b.mu.Unlock()
		return 0, nil
	}
	c, err := b.creditLocked(ctx, amount, nil)
	if err != nil {
		b.mu.Unlock()
		return 0, err
	}
	b.accumulator = 0
	b.mu.Unlock()

	b.notify(ctx, c)
	return amount, nil
}
