// Package sanitize repairs out-of-range values in a loaded save.
package sanitize

import (
	"context"
	"math"

	"github.com/xraph/embers/store"
	"github.com/xraph/embers/upgrade"
)

// CurrentSaveVersion is stamped on every sanitized save.
const CurrentSaveVersion = 1

// Limits bound the values a save may hold.
type Limits struct {
	MaxPrestigeLevel int64   `json:"max_prestige_level" yaml:"max_prestige_level" env:"MAX_PRESTIGE_LEVEL"`
	MaxBalance       int64   `json:"max_balance" yaml:"max_balance" env:"MAX_BALANCE"`
	MaxBestDistance  float64 `json:"max_best_distance" yaml:"max_best_distance" env:"MAX_BEST_DISTANCE"`
}

// DefaultLimits returns the shipped bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxPrestigeLevel: 999,
		MaxBalance:       2_000_000_000,
		MaxBestDistance:  1_000_000,
	}
}

// Report lists the keys a Run rewrote, in the order they were checked.
type Report struct {
	Changed []string `json:"changed"`
}

// Dirty reports whether anything was rewritten.
func (r Report) Dirty() bool { return len(r.Changed) > 0 }

// Sanitizer clamps a save against a catalog and a set of limits.
type Sanitizer struct {
	store   store.Store
	catalog *upgrade.Catalog
	limits  Limits
}

// New returns a Sanitizer. A nil catalog skips tier clamping.
func New(s store.Store, c *upgrade.Catalog, limits Limits) *Sanitizer {
	return &Sanitizer{store: s, catalog: c, limits: limits}
}

// Run checks every bounded key and writes the repaired values in one batch.
// Keys that are absent stay absent, except save_version which is always set.
func (z *Sanitizer) Run(ctx context.Context) (Report, error) {
	var rep Report
	b := store.NewBatch()

	ver, err := z.store.GetInt(ctx, store.KeySaveVersion, 0)
	if err != nil {
		return Report{}, err
	}
	if ver != CurrentSaveVersion {
		b.SetInt(store.KeySaveVersion, CurrentSaveVersion)
		rep.Changed = append(rep.Changed, store.KeySaveVersion)
	}

	ints := []struct {
		key string
		hi  int64
	}{
		{store.KeyPrestigeLevel, z.limits.MaxPrestigeLevel},
		{store.KeyBankBalance, z.limits.MaxBalance},
	}
	if z.catalog != nil {
		for _, def := range z.catalog.All() {
			hi := int64(def.MaxTier)
			if hi < 1 {
				hi = 1
			}
			ints = append(ints, struct {
				key string
				hi  int64
			}{store.UpgradeTierKey(def.ID), hi})
		}
	}
	for _, c := range ints {
		changed, err := z.clampInt(ctx, b, c.key, c.hi)
		if err != nil {
			return Report{}, err
		}
		if changed {
			rep.Changed = append(rep.Changed, c.key)
		}
	}

	for _, key := range []string{store.KeyBestDistance, store.KeyPrestigeBestDistance} {
		changed, err := z.clampFloat(ctx, b, key, z.limits.MaxBestDistance)
		if err != nil {
			return Report{}, err
		}
		if changed {
			rep.Changed = append(rep.Changed, key)
		}
	}

	if b.Len() == 0 {
		return rep, nil
	}
	if err := z.store.Apply(ctx, b); err != nil {
		return Report{}, err
	}
	return rep, nil
}

func (z *Sanitizer) clampInt(ctx context.Context, b *store.Batch, key string, hi int64) (bool, error) {
	ok, err := z.store.Has(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	v, err := z.store.GetInt(ctx, key, 0)
	if err != nil {
		return false, err
	}
	clamped := min(max(v, 0), hi)
	if clamped == v {
		return false, nil
	}
	b.SetInt(key, clamped)
	return true, nil
}

func (z *Sanitizer) clampFloat(ctx context.Context, b *store.Batch, key string, hi float64) (bool, error) {
	ok, err := z.store.Has(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	v, err := z.store.GetFloat(ctx, key, 0)
	if err != nil {
		return false, err
	}
	clamped := v
	switch {
	case math.IsNaN(v), math.IsInf(v, 0), v < 0:
		clamped = 0
	case v > hi:
		clamped = hi
	}
	if clamped == v {
		return false, nil
	}
	b.SetFloat(key, clamped)
	return true, nil
}
