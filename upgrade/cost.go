package upgrade

import "math"

// Lookup returns the owned tier of an upgrade id, 0 when unowned.
type Lookup func(id string) int

func clampTier(tier, lo, hi int) int {
	if tier < lo {
		return lo
	}
	if tier > hi {
		return hi
	}
	return tier
}

func maxTier(def Definition) int {
	if def.MaxTier < 1 {
		return 1
	}
	return def.MaxTier
}

// CostForTier returns round(baseCost * costScale^(tier-1)) with tier clamped
// to [1, maxTier]. The result is at least 1.
func CostForTier(def Definition, tier int) int64 {
	tier = clampTier(tier, 1, maxTier(def))
	scale := def.CostScale
	if scale < 1 || math.IsNaN(scale) {
		scale = 1
	}
	cost := math.Round(float64(def.BaseCost) * math.Pow(scale, float64(tier-1)))
	if cost < 1 {
		return 1
	}
	if cost >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(cost)
}

// NextPurchasableTier returns owned+1 clamped to [1, maxTier]. Use IsMaxed
// to tell a maxed upgrade apart from one whose last tier is next.
func NextPurchasableTier(def Definition, owned int) int {
	return clampTier(owned+1, 1, maxTier(def))
}

// IsMaxed reports whether owned has reached the last tier.
func IsMaxed(def Definition, owned int) bool {
	return owned >= maxTier(def)
}

// IsUnlocked reports whether the gating metric meets the unlock distance and
// every dependency is owned at its minimum tier.
func IsUnlocked(def Definition, gatingMetric float64, lookup Lookup) bool {
	reason, _ := lockReason(def, gatingMetric, lookup)
	return reason == ReasonNone
}

func lockReason(def Definition, gatingMetric float64, lookup Lookup) (LockReason, string) {
	if gatingMetric < def.UnlockDistance {
		return ReasonDistance, ""
	}
	for _, dep := range def.Dependencies {
		owned := 0
		if lookup != nil {
			owned = lookup(dep.ID)
		}
		if owned < dep.MinTier {
			return ReasonDependency, dep.ID
		}
	}
	return ReasonNone, ""
}

// ResolvedPayload indexes each payload channel at clamp(tier-1, 0, len-1).
// An empty channel resolves to 0.
func ResolvedPayload(def Definition, tier int) Payload {
	pick := func(vals []float64) float64 {
		if len(vals) == 0 {
			return 0
		}
		return vals[clampTier(tier-1, 0, len(vals)-1)]
	}
	effect := def.Effect
	if effect == "" {
		effect = EffectNone
	}
	return Payload{
		Effect: effect,
		V0:     pick(def.V0),
		V1:     pick(def.V1),
		V2:     pick(def.V2),
	}
}
