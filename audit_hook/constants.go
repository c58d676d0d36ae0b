package audithook

// Action constants for audit events.
const (
	// Run actions
	ActionRunStarted = "run.started"
	ActionRunEnded   = "run.ended"

	// Economy actions
	ActionUpgradePurchased = "upgrade.purchased"
	ActionIdleClaimed      = "idle.claimed"

	// Progression actions
	ActionPrestige            = "prestige.reset"
	ActionAchievementUnlocked = "achievement.unlocked"
	ActionAchievementClaimed  = "achievement.claimed"
)

// Resource constants for audit events.
const (
	ResourceRun         = "run"
	ResourceUpgrade     = "upgrade"
	ResourceIdle        = "idle"
	ResourcePrestige    = "prestige"
	ResourceAchievement = "achievement"
)

// Category constants for audit events.
const (
	CategoryGameplay    = "gameplay"
	CategoryEconomy     = "economy"
	CategoryProgression = "progression"
)

// Severity levels for audit events.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
