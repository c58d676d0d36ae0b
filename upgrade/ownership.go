package upgrade

import (
	"context"

	"github.com/xraph/embers/store"
)

// Debiter charges for a purchase and writes the staged ownership change in
// the same atomic batch.
type Debiter interface {
	TryDebitWith(ctx context.Context, amount int64, extra *store.Batch) (bool, error)
}

// Purchase is the outcome of TryPurchase. When OK is false, Reason says why
// and nothing was written.
type Purchase struct {
	OK                bool       `json:"ok"`
	Reason            LockReason `json:"reason,omitempty"`
	MissingDependency string     `json:"missing_dependency,omitempty"`
	UpgradeID         string     `json:"upgrade_id"`
	Tier              int        `json:"tier"`
	Cost              int64      `json:"cost"`
	Payload           Payload    `json:"payload"`
}

// Ownership tracks owned tiers for the upgrades of one catalog.
type Ownership struct {
	store   store.Store
	catalog *Catalog
}

// NewOwnership creates an Ownership over s for catalog c.
func NewOwnership(s store.Store, c *Catalog) *Ownership {
	return &Ownership{store: s, catalog: c}
}

// Catalog returns the catalog this ownership is bound to.
func (o *Ownership) Catalog() *Catalog { return o.catalog }

// Tier returns the owned tier of id clamped to [0, maxTier]. Unknown ids
// report 0.
func (o *Ownership) Tier(ctx context.Context, id string) (int, error) {
	def, ok := o.catalog.Get(id)
	if !ok {
		return 0, nil
	}
	v, err := o.store.GetInt(ctx, store.UpgradeTierKey(id), 0)
	if err != nil {
		return 0, err
	}
	return clampTier(int(v), 0, maxTier(def)), nil
}

// Tiers returns the owned tier of every catalog upgrade.
func (o *Ownership) Tiers(ctx context.Context) (map[string]int, error) {
	tiers := make(map[string]int, o.catalog.Len())
	for _, def := range o.catalog.defs {
		t, err := o.Tier(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		tiers[def.ID] = t
	}
	return tiers, nil
}

// OwnedPayload resolves the payload of id at its owned tier. Unowned or
// unknown upgrades resolve to a zero payload.
func (o *Ownership) OwnedPayload(ctx context.Context, id string) (Payload, error) {
	def, ok := o.catalog.Get(id)
	if !ok {
		return Payload{Effect: EffectNone}, nil
	}
	tier, err := o.Tier(ctx, id)
	if err != nil {
		return Payload{}, err
	}
	if tier == 0 {
		return Payload{Effect: def.Effect}, nil
	}
	return ResolvedPayload(def, tier), nil
}

// TryPurchase buys exactly one tier of def. It fails without writing when
// the upgrade is maxed, locked or unaffordable.
func (o *Ownership) TryPurchase(ctx context.Context, def Definition, debiter Debiter, gatingMetric float64) (Purchase, error) {
	tiers, err := o.Tiers(ctx)
	if err != nil {
		return Purchase{}, err
	}
	owned := tiers[def.ID]
	p := Purchase{UpgradeID: def.ID, Tier: owned}

	if IsMaxed(def, owned) {
		p.Reason = ReasonMaxed
		return p, nil
	}
	lookup := func(id string) int { return tiers[id] }
	if reason, dep := lockReason(def, gatingMetric, lookup); reason != ReasonNone {
		p.Reason, p.MissingDependency = reason, dep
		return p, nil
	}

	next := NextPurchasableTier(def, owned)
	p.Cost = CostForTier(def, next)

	staged := store.NewBatch().SetInt(store.UpgradeTierKey(def.ID), int64(next))
	ok, err := debiter.TryDebitWith(ctx, p.Cost, staged)
	if err != nil {
		return Purchase{}, err
	}
	if !ok {
		p.Reason = ReasonInsufficientFunds
		return p, nil
	}

	p.OK = true
	p.Tier = next
	p.Payload = ResolvedPayload(def, next)
	return p, nil
}
