// Package upgrade holds the static upgrade catalog, the cost and payload
// curves, and the player's owned tiers.
package upgrade

// Effect tags which gameplay system a resolved payload is meant for. The
// engine never interprets it; gameplay dispatches on it.
type Effect string

const (
	EffectNone                   Effect = "none"
	EffectShield                 Effect = "shield"
	EffectMagnet                 Effect = "magnet"
	EffectSmallerHitbox          Effect = "smaller_hitbox"
	EffectComboBoost             Effect = "combo_boost"
	EffectRunModifierVertical    Effect = "run_modifier_vertical"
	EffectRunModifierProjectiles Effect = "run_modifier_projectiles"
)

// Well-known ids read by the idle clock.
const (
	IDIdleCapacity = "idle_capacity"
	IDIdleRate     = "idle_rate"
)

// Dependency requires another upgrade to be owned at MinTier or above.
type Dependency struct {
	ID      string `yaml:"id" json:"id"`
	MinTier int    `yaml:"min_tier" json:"min_tier"`
}

// Definition is author-time data for one upgrade.
type Definition struct {
	ID             string       `yaml:"id" json:"id"`
	Name           string       `yaml:"name" json:"name"`
	Description    string       `yaml:"description" json:"description"`
	MaxTier        int          `yaml:"max_tier" json:"max_tier"`
	BaseCost       int64        `yaml:"base_cost" json:"base_cost"`
	CostScale      float64      `yaml:"cost_scale" json:"cost_scale"`
	UnlockDistance float64      `yaml:"unlock_distance" json:"unlock_distance"`
	Dependencies   []Dependency `yaml:"dependencies" json:"dependencies,omitempty"`
	V0             []float64    `yaml:"v0" json:"v0,omitempty"`
	V1             []float64    `yaml:"v1" json:"v1,omitempty"`
	V2             []float64    `yaml:"v2" json:"v2,omitempty"`
	Effect         Effect       `yaml:"effect" json:"effect"`
}

// Payload is the resolved per-tier effect values of an upgrade.
type Payload struct {
	Effect Effect  `json:"effect"`
	V0     float64 `json:"v0"`
	V1     float64 `json:"v1"`
	V2     float64 `json:"v2"`
}

// LockReason explains why the next tier cannot be bought.
type LockReason string

const (
	ReasonNone              LockReason = ""
	ReasonMaxed             LockReason = "maxed"
	ReasonDistance          LockReason = "distance"
	ReasonDependency        LockReason = "dependency"
	ReasonStoreLocked       LockReason = "store_locked"
	ReasonInsufficientFunds LockReason = "insufficient_funds"
)
