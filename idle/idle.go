// Package idle computes currency owed for wall-clock time spent away from
// the game. Accrual is evaluated lazily; nothing ticks in the background.
package idle

import (
	"context"
	"math"

	"github.com/xraph/embers/clock"
	"github.com/xraph/embers/store"
	"github.com/xraph/embers/upgrade"
)

// Defaults for the accrual curve.
const (
	DefaultBaseCapHours      = 8.0
	DefaultBaseRatePerHour   = 20.0
	DefaultPrestigeRateBonus = 0.05
	MaxCapHours              = 999.0
)

// Upgrades resolves owned upgrade payloads by id.
type Upgrades interface {
	OwnedPayload(ctx context.Context, id string) (upgrade.Payload, error)
}

// PrestigeLevel reports the current prestige level.
type PrestigeLevel interface {
	Level(ctx context.Context) (int, error)
}

// Config tunes the accrual curve.
type Config struct {
	BaseCapHours      float64
	BaseRatePerHour   float64
	PrestigeRateBonus float64
}

// DefaultConfig returns the stock accrual curve.
func DefaultConfig() Config {
	return Config{
		BaseCapHours:      DefaultBaseCapHours,
		BaseRatePerHour:   DefaultBaseRatePerHour,
		PrestigeRateBonus: DefaultPrestigeRateBonus,
	}
}

// Status is a display snapshot of the idle clock.
type Status struct {
	Claimable   int64   `json:"claimable"`
	RatePerHour float64 `json:"rate_per_hour"`
	StoredHours float64 `json:"stored_hours"`
	CapHours    float64 `json:"cap_hours"`
}

// Clock is the idle accrual clock of one save.
type Clock struct {
	store    store.Store
	clock    clock.Clock
	upgrades Upgrades
	prestige PrestigeLevel
	cfg      Config
}

// New creates an idle Clock. upgrades and prestige may be nil, in which case
// they contribute nothing.
func New(s store.Store, c clock.Clock, upgrades Upgrades, prestige PrestigeLevel, cfg Config) *Clock {
	if c == nil {
		c = clock.Real{}
	}
	return &Clock{store: s, clock: c, upgrades: upgrades, prestige: prestige, cfg: cfg}
}

func (c *Clock) now() int64 { return c.clock.Now().Unix() }

// EnsureInitialized stamps the first-run baseline. It never grants
// retroactive credit.
func (c *Clock) EnsureInitialized(ctx context.Context) error {
	ok, err := c.store.Has(ctx, store.KeyIdleLastClaim)
	if err != nil || ok {
		return err
	}
	return c.store.SetInt(ctx, store.KeyIdleLastClaim, c.now())
}

func (c *Clock) upgradeV0(ctx context.Context, id string) (float64, error) {
	if c.upgrades == nil {
		return 0, nil
	}
	p, err := c.upgrades.OwnedPayload(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.V0, nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// EffectiveCapHours is the base cap plus the idle capacity upgrade, clamped
// to [0, MaxCapHours].
func (c *Clock) EffectiveCapHours(ctx context.Context) (float64, error) {
	bonus, err := c.upgradeV0(ctx, upgrade.IDIdleCapacity)
	if err != nil {
		return 0, err
	}
	return math.Min(math.Max(finite(c.cfg.BaseCapHours+bonus), 0), MaxCapHours), nil
}

// EffectiveRatePerHour is the base rate plus the idle rate upgrade, scaled by
// 1 + level*bonus, clamped to at least 0.
func (c *Clock) EffectiveRatePerHour(ctx context.Context) (float64, error) {
	bonus, err := c.upgradeV0(ctx, upgrade.IDIdleRate)
	if err != nil {
		return 0, err
	}
	level := 0
	if c.prestige != nil {
		if level, err = c.prestige.Level(ctx); err != nil {
			return 0, err
		}
	}
	rate := (c.cfg.BaseRatePerHour + bonus) * (1 + float64(level)*c.cfg.PrestigeRateBonus)
	return math.Max(finite(rate), 0), nil
}

func (c *Clock) lastClaim(ctx context.Context) (int64, error) {
	return c.store.GetInt(ctx, store.KeyIdleLastClaim, c.now())
}

// StoredHours is the time since the last claim in hours, clamped to
// [0, EffectiveCapHours]. A clock set backwards yields 0.
func (c *Clock) StoredHours(ctx context.Context) (float64, error) {
	capHours, err := c.EffectiveCapHours(ctx)
	if err != nil {
		return 0, err
	}
	return c.storedHours(ctx, capHours)
}

func (c *Clock) storedHours(ctx context.Context, capHours float64) (float64, error) {
	last, err := c.lastClaim(ctx)
	if err != nil {
		return 0, err
	}
	hours := float64(c.now()-last) / 3600
	return math.Min(math.Max(hours, 0), capHours), nil
}

// Claimable is floor(StoredHours * EffectiveRatePerHour), at least 0.
func (c *Clock) Claimable(ctx context.Context) (int64, error) {
	st, err := c.Status(ctx)
	return st.Claimable, err
}

// Status returns everything a display needs in one pass.
func (c *Clock) Status(ctx context.Context) (Status, error) {
	capHours, err := c.EffectiveCapHours(ctx)
	if err != nil {
		return Status{}, err
	}
	rate, err := c.EffectiveRatePerHour(ctx)
	if err != nil {
		return Status{}, err
	}
	stored, err := c.storedHours(ctx, capHours)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Claimable:   int64(math.Max(0, math.Floor(stored*rate))),
		RatePerHour: rate,
		StoredHours: stored,
		CapHours:    capHours,
	}, nil
}

// Claim resets the last-claim stamp to now and returns the amount that was
// claimable. Any fraction below one whole unit is dropped.
func (c *Clock) Claim(ctx context.Context) (int64, error) {
	return c.ClaimWith(ctx, nil)
}

// Crediter pays out a claim and writes the staged stamp atomically.
type Crediter interface {
	CreditWith(ctx context.Context, amount int64, extra *store.Batch) error
}

// ClaimWith resets the stamp and, when crediter is non-nil, credits the
// claimable amount in the same batch.
func (c *Clock) ClaimWith(ctx context.Context, crediter Crediter) (int64, error) {
	amount, err := c.Claimable(ctx)
	if err != nil {
		return 0, err
	}
	stamp := store.NewBatch().SetInt(store.KeyIdleLastClaim, c.now())
	if crediter == nil {
		err = c.store.Apply(ctx, stamp)
	} else {
		err = crediter.CreditWith(ctx, amount, stamp)
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}
