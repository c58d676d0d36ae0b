package achievement

import (
	"context"
	"sort"

	"github.com/xraph/embers/store"
)

// Crediter pays a reward and writes the staged claimed flag atomically.
type Crediter interface {
	CreditWith(ctx context.Context, amount int64, extra *store.Batch) error
}

// Engine evaluates and claims achievements of one catalog.
type Engine struct {
	store   store.Store
	catalog *Catalog
}

// New creates an Engine over s for catalog c.
func New(s store.Store, c *Catalog) *Engine {
	return &Engine{store: s, catalog: c}
}

// Catalog returns the catalog this engine evaluates.
func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) flag(ctx context.Context, key string) (bool, error) {
	v, err := e.store.GetInt(ctx, key, 0)
	return v == 1, err
}

// IsUnlocked reports whether id has been unlocked.
func (e *Engine) IsUnlocked(ctx context.Context, id string) (bool, error) {
	return e.flag(ctx, store.AchievementUnlockedKey(id))
}

// IsClaimed reports whether id's reward has been paid.
func (e *Engine) IsClaimed(ctx context.Context, id string) (bool, error) {
	return e.flag(ctx, store.AchievementClaimedKey(id))
}

// Evaluate unlocks every not-yet-unlocked definition whose progress meets
// its target, in one write, and returns them in id order. Call it exactly
// once per run end.
func (e *Engine) Evaluate(ctx context.Context, m Metrics) ([]Definition, error) {
	var unlocked []Definition
	b := store.NewBatch()
	for _, def := range e.catalog.defs {
		done, err := e.IsUnlocked(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}
		if ProgressFor(def.ProgressType, m) >= def.Target {
			b.SetInt(store.AchievementUnlockedKey(def.ID), 1)
			unlocked = append(unlocked, def)
		}
	}
	if b.Len() == 0 {
		return nil, nil
	}
	if err := e.store.Apply(ctx, b); err != nil {
		return nil, err
	}
	return unlocked, nil
}

// TryClaim pays the reward of an unlocked, unclaimed achievement and marks it
// claimed. It returns false for unknown, locked or already claimed ids.
func (e *Engine) TryClaim(ctx context.Context, id string, crediter Crediter) (bool, error) {
	def, ok := e.catalog.Get(id)
	if !ok {
		return false, nil
	}
	unlocked, err := e.IsUnlocked(ctx, id)
	if err != nil || !unlocked {
		return false, err
	}
	claimed, err := e.IsClaimed(ctx, id)
	if err != nil || claimed {
		return false, err
	}

	staged := store.NewBatch().SetInt(store.AchievementClaimedKey(id), 1)
	if err := crediter.CreditWith(ctx, def.Reward, staged); err != nil {
		return false, err
	}
	return true, nil
}

// List returns every achievement with its progress, ordered by sort order
// then id.
func (e *Engine) List(ctx context.Context, m Metrics) ([]Progress, error) {
	out := make([]Progress, 0, len(e.catalog.defs))
	for _, def := range e.catalog.defs {
		unlocked, err := e.IsUnlocked(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		claimed, err := e.IsClaimed(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Progress{
			Definition: def,
			Progress:   ProgressFor(def.ProgressType, m),
			Unlocked:   unlocked,
			Claimed:    claimed && unlocked,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Definition.SortOrder < out[j].Definition.SortOrder
	})
	return out, nil
}
