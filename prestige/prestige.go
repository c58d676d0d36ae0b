// Package prestige implements the soft reset: once the cycle's best distance
// reaches the requirement, the player trades every cycle-scoped key for a
// permanent multiplier level.
package prestige

import (
	"context"
	"math"

	"github.com/xraph/embers/store"
)

// Defaults for the prestige curve.
const (
	DefaultRequirement = 200.0
	DefaultScaleFactor = 1.5
)

// Config tunes the prestige curve.
type Config struct {
	Requirement float64
	ScaleFactor float64
}

// DefaultConfig returns the stock prestige curve.
func DefaultConfig() Config {
	return Config{Requirement: DefaultRequirement, ScaleFactor: DefaultScaleFactor}
}

// Status is a display snapshot of the prestige cycle.
type Status struct {
	Level          int     `json:"level"`
	BestDistance   float64 `json:"best_distance"`
	Requirement    float64 `json:"requirement"`
	Eligible       bool    `json:"eligible"`
	Multiplier     float64 `json:"multiplier"`
	NextMultiplier float64 `json:"next_multiplier"`
}

// Cycle owns prestige_level and prestige_best_distance and performs resets.
type Cycle struct {
	store store.Store
	cfg   Config
}

// New creates a Cycle over s.
func New(s store.Store, cfg Config) *Cycle {
	if cfg.ScaleFactor <= 0 || math.IsNaN(cfg.ScaleFactor) {
		cfg.ScaleFactor = DefaultScaleFactor
	}
	return &Cycle{store: s, cfg: cfg}
}

// Config returns the active configuration.
func (c *Cycle) Config() Config { return c.cfg }

// Level returns the prestige level, never below 0.
func (c *Cycle) Level(ctx context.Context) (int, error) {
	v, err := c.store.GetInt(ctx, store.KeyPrestigeLevel, 0)
	if err != nil {
		return 0, err
	}
	return int(max(v, 0)), nil
}

// BestDistance returns the best distance of the current cycle.
func (c *Cycle) BestDistance(ctx context.Context) (float64, error) {
	return c.store.GetFloat(ctx, store.KeyPrestigeBestDistance, 0)
}

// RecordRunDistance raises the cycle best to distance if it is larger.
func (c *Cycle) RecordRunDistance(ctx context.Context, distance float64) error {
	if distance <= 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return nil
	}
	best, err := c.BestDistance(ctx)
	if err != nil || distance <= best {
		return err
	}
	return c.store.SetFloat(ctx, store.KeyPrestigeBestDistance, distance)
}

// CanPrestige reports whether the cycle best meets the requirement.
func (c *Cycle) CanPrestige(ctx context.Context) (bool, error) {
	best, err := c.BestDistance(ctx)
	if err != nil {
		return false, err
	}
	return best >= c.cfg.Requirement, nil
}

// Multiplier returns scaleFactor^level.
func (c *Cycle) Multiplier(level int) float64 {
	return math.Pow(c.cfg.ScaleFactor, float64(max(level, 0)))
}

// ScoreMultiplier returns the score multiplier at the current level.
func (c *Cycle) ScoreMultiplier(ctx context.Context) (float64, error) {
	level, err := c.Level(ctx)
	if err != nil {
		return 0, err
	}
	return c.Multiplier(level), nil
}

// CurrencyMultiplier returns the currency multiplier at the current level.
// It shares the score curve.
func (c *Cycle) CurrencyMultiplier(ctx context.Context) (float64, error) {
	return c.ScoreMultiplier(ctx)
}

// NextMultiplier returns the multiplier one level up.
func (c *Cycle) NextMultiplier(ctx context.Context) (float64, error) {
	level, err := c.Level(ctx)
	if err != nil {
		return 0, err
	}
	return c.Multiplier(level + 1), nil
}

// Status returns everything a display needs in one pass.
func (c *Cycle) Status(ctx context.Context) (Status, error) {
	level, err := c.Level(ctx)
	if err != nil {
		return Status{}, err
	}
	best, err := c.BestDistance(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Level:          level,
		BestDistance:   best,
		Requirement:    c.cfg.Requirement,
		Eligible:       best >= c.cfg.Requirement,
		Multiplier:     c.Multiplier(level),
		NextMultiplier: c.Multiplier(level + 1),
	}, nil
}

// ResetBatch stages the removal of every cycle-scoped key currently stored
// plus the level increment. Permanent keys are never staged.
func (c *Cycle) ResetBatch(ctx context.Context) (*store.Batch, int, error) {
	level, err := c.Level(ctx)
	if err != nil {
		return nil, 0, err
	}

	b := store.NewBatch()
	keys, prefixes := store.CycleScoped()
	for _, k := range keys {
		b.Delete(k)
	}
	for _, p := range prefixes {
		found, err := c.store.Keys(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		for _, k := range found {
			b.Delete(k)
		}
	}
	b.SetInt(store.KeyPrestigeLevel, int64(level+1))
	return b, level + 1, nil
}

// DoPrestige performs the reset in one atomic write and returns the new
// level. It reports false without writing when the player is not eligible.
func (c *Cycle) DoPrestige(ctx context.Context) (bool, int, error) {
	ok, err := c.CanPrestige(ctx)
	if err != nil || !ok {
		return false, 0, err
	}
	b, level, err := c.ResetBatch(ctx)
	if err != nil {
		return false, 0, err
	}
	if err := c.store.Apply(ctx, b); err != nil {
		return false, 0, err
	}
	return true, level, nil
}
