package upgrade

import "context"

// Quote describes the next tier of one upgrade for display.
type Quote struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	OwnedTier         int        `json:"owned_tier"`
	MaxTier           int        `json:"max_tier"`
	NextTier          int        `json:"next_tier"`
	Cost              int64      `json:"cost"`
	Affordable        bool       `json:"affordable"`
	Maxed             bool       `json:"maxed"`
	Unlocked          bool       `json:"unlocked"`
	Reason            LockReason `json:"reason,omitempty"`
	MissingDependency string     `json:"missing_dependency,omitempty"`
	UnlockDistance    float64    `json:"unlock_distance"`
	Next              Payload    `json:"next"`
}

// Quotes returns a quote for every catalog upgrade in catalog order.
// storeLocked forces every non-maxed upgrade to report ReasonStoreLocked.
func (o *Ownership) Quotes(ctx context.Context, balance int64, gatingMetric float64, storeLocked bool) ([]Quote, error) {
	tiers, err := o.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	lookup := func(id string) int { return tiers[id] }

	quotes := make([]Quote, 0, o.catalog.Len())
	for _, def := range o.catalog.defs {
		owned := tiers[def.ID]
		next := NextPurchasableTier(def, owned)
		q := Quote{
			ID:             def.ID,
			Name:           def.Name,
			Description:    def.Description,
			OwnedTier:      owned,
			MaxTier:        maxTier(def),
			NextTier:       next,
			Cost:           CostForTier(def, next),
			Maxed:          IsMaxed(def, owned),
			UnlockDistance: def.UnlockDistance,
			Next:           ResolvedPayload(def, next),
		}
		reason, dep := lockReason(def, gatingMetric, lookup)
		q.Unlocked = reason == ReasonNone
		q.Affordable = balance >= q.Cost

		switch {
		case q.Maxed:
			q.Reason = ReasonMaxed
		case storeLocked:
			q.Reason = ReasonStoreLocked
		case !q.Unlocked:
			q.Reason, q.MissingDependency = reason, dep
		case !q.Affordable:
			q.Reason = ReasonInsufficientFunds
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}
