// Package stats maintains the lifetime counters and best-ever records of a
// save. Every mutator only ever raises a value, and nothing here is touched by
// a prestige reset.
package stats

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/xraph/embers/store"
)

// Snapshot is a read-only projection of every lifetime stat.
type Snapshot struct {
	LifetimeDistance float64          `json:"lifetime_distance"`
	LifetimeEarned   int64            `json:"lifetime_earned"`
	RunsPlayed       int64            `json:"runs_played"`
	ModifierRuns     map[string]int64 `json:"modifier_runs"`

	HighScore      float64 `json:"high_score"`
	BestDistance   float64 `json:"best_distance"`
	BestFlipsInRun float64 `json:"best_flips_in_run"`
	BestNoHit      float64 `json:"best_nohit_distance"`
	BestHardMode   float64 `json:"best_hardmode_distance"`
}

// Aggregator is the only writer of stat_* and best_* keys.
type Aggregator struct {
	store store.Store
}

// New creates an Aggregator over s.
func New(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// AddLifetimeDistance adds meters to the lifetime distance. Non-positive or
// non-finite input is ignored.
func (a *Aggregator) AddLifetimeDistance(ctx context.Context, meters float64) error {
	if !positive(meters) {
		return nil
	}
	cur, err := a.store.GetFloat(ctx, store.KeyStatLifetimeDistance, 0)
	if err != nil {
		return err
	}
	return a.store.SetFloat(ctx, store.KeyStatLifetimeDistance, cur+meters)
}

// AddLifetimeCurrency adds amount to the lifetime earned counter.
func (a *Aggregator) AddLifetimeCurrency(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return nil
	}
	cur, err := a.store.GetInt(ctx, store.KeyStatLifetimeEarned, 0)
	if err != nil {
		return err
	}
	return a.store.SetInt(ctx, store.KeyStatLifetimeEarned, cur+amount)
}

// RecordRunStarted counts one run plus one run per enabled modifier, in a
// single write. A repeated name counts once.
func (a *Aggregator) RecordRunStarted(ctx context.Context, modifiers ...string) error {
	b := store.NewBatch()
	if err := a.stageIncrement(ctx, b, store.KeyStatRunsPlayed); err != nil {
		return err
	}
	seen := make(map[string]bool, len(modifiers))
	for _, name := range modifiers {
		if !store.ValidKeyPart(name) {
			return fmt.Errorf("stats: invalid modifier name %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := a.stageIncrement(ctx, b, store.ModifierRunsKey(name)); err != nil {
			return err
		}
	}
	return a.store.Apply(ctx, b)
}

func (a *Aggregator) stageIncrement(ctx context.Context, b *store.Batch, key string) error {
	if op, ok := b.Lookup(key); ok {
		b.SetInt(key, op.Int+1)
		return nil
	}
	cur, err := a.store.GetInt(ctx, key, 0)
	if err != nil {
		return err
	}
	b.SetInt(key, cur+1)
	return nil
}

// RecordBest raises the best_* record at key to value if value is larger and
// reports whether it did.
func (a *Aggregator) RecordBest(ctx context.Context, key string, value float64) (bool, error) {
	if !strings.HasPrefix(key, store.PrefixBest) {
		return false, fmt.Errorf("stats: %q is not a best-ever key", key)
	}
	if !positive(value) {
		return false, nil
	}
	cur, err := a.store.GetFloat(ctx, key, 0)
	if err != nil {
		return false, err
	}
	if value <= cur {
		return false, nil
	}
	if err := a.store.SetFloat(ctx, key, value); err != nil {
		return false, err
	}
	return true, nil
}

// Snapshot reads every stat.
func (a *Aggregator) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	floats := []struct {
		key string
		dst *float64
	}{
		{store.KeyStatLifetimeDistance, &s.LifetimeDistance},
		{store.KeyBestHighScore, &s.HighScore},
		{store.KeyBestDistance, &s.BestDistance},
		{store.KeyBestFlipsInRun, &s.BestFlipsInRun},
		{store.KeyBestNoHitDistance, &s.BestNoHit},
		{store.KeyBestHardModeDistance, &s.BestHardMode},
	}
	for _, f := range floats {
		if *f.dst, err = a.store.GetFloat(ctx, f.key, 0); err != nil {
			return Snapshot{}, err
		}
	}
	if s.LifetimeEarned, err = a.store.GetInt(ctx, store.KeyStatLifetimeEarned, 0); err != nil {
		return Snapshot{}, err
	}
	if s.RunsPlayed, err = a.store.GetInt(ctx, store.KeyStatRunsPlayed, 0); err != nil {
		return Snapshot{}, err
	}

	keys, err := a.store.Keys(ctx, store.PrefixStatModRuns)
	if err != nil {
		return Snapshot{}, err
	}
	s.ModifierRuns = make(map[string]int64, len(keys))
	for _, k := range keys {
		n, err := a.store.GetInt(ctx, k, 0)
		if err != nil {
			return Snapshot{}, err
		}
		s.ModifierRuns[strings.TrimPrefix(k, store.PrefixStatModRuns)] = n
	}
	return s, nil
}
