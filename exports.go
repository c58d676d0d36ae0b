package embers

import (
	"github.com/xraph/embers/achievement"
	"github.com/xraph/embers/cosmetic"
	"github.com/xraph/embers/id"
	"github.com/xraph/embers/idle"
	"github.com/xraph/embers/modifier"
	"github.com/xraph/embers/prestige"
	"github.com/xraph/embers/stats"
	"github.com/xraph/embers/types"
	"github.com/xraph/embers/upgrade"
)

// Re-export the value types callers see most so they don't have to import
// every subpackage.

// ID is the TypeID used for runs and audit events.
type ID = id.ID

// RunID identifies one run (prefix: "run").
type RunID = id.RunID

// Amount is re-exported from types package.
type Amount = types.Amount

// Multiplier is re-exported from types package.
type Multiplier = types.Multiplier

// Query results returned by the Engine.
type (
	IdleStatus          = idle.Status
	PrestigeStatus      = prestige.Status
	UpgradeQuote        = upgrade.Quote
	UpgradePurchase     = upgrade.Purchase
	UpgradePayload      = upgrade.Payload
	AchievementProgress = achievement.Progress
	Achievement         = achievement.Definition
	StatsSnapshot       = stats.Snapshot
	ModifierState       = modifier.State
	SkinState           = cosmetic.SkinState
)
