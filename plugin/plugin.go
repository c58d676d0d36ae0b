// Package plugin provides an extensible plugin system for Embers.
// Plugins hook into progression events to add audit trails, metrics or
// UI refresh without touching the engine.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Event payloads
// ──────────────────────────────────────────────────

// RunStarted describes a run that just began.
type RunStarted struct {
	RunID     string   `json:"run_id"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// RunEnded describes a finished run after it was settled.
type RunEnded struct {
	RunID        string        `json:"run_id"`
	Distance     float64       `json:"distance"`
	Score        int64         `json:"score"`
	Earned       int64         `json:"earned"`
	Duration     time.Duration `json:"duration"`
	NewHighScore bool          `json:"new_high_score"`
	Unlocked     []string      `json:"unlocked,omitempty"`
}

// BalanceChanged is emitted after every committed balance change.
type BalanceChanged struct {
	Balance int64 `json:"balance"`
	Delta   int64 `json:"delta"`
}

// UpgradePurchased describes a successful tier purchase.
type UpgradePurchased struct {
	UpgradeID string `json:"upgrade_id"`
	Tier      int    `json:"tier"`
	Cost      int64  `json:"cost"`
}

// IdleClaimed describes a non-empty idle claim.
type IdleClaimed struct {
	Amount      int64   `json:"amount"`
	StoredHours float64 `json:"stored_hours"`
}

// Prestiged describes a completed prestige reset.
type Prestiged struct {
	Level      int     `json:"level"`
	Multiplier float64 `json:"multiplier"`
}

// AchievementClaimed describes a paid-out achievement reward.
type AchievementClaimed struct {
	AchievementID string `json:"achievement_id"`
	Reward        int64  `json:"reward"`
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Run hooks
// ──────────────────────────────────────────────────

// OnRunStarted is called when a run begins.
type OnRunStarted interface {
	Plugin
	OnRunStarted(ctx context.Context, ev RunStarted) error
}

// OnRunEnded is called once a run has been settled.
type OnRunEnded interface {
	Plugin
	OnRunEnded(ctx context.Context, ev RunEnded) error
}

// ──────────────────────────────────────────────────
// Economy hooks
// ──────────────────────────────────────────────────

// OnBalanceChanged is called after the bank balance changes.
type OnBalanceChanged interface {
	Plugin
	OnBalanceChanged(ctx context.Context, ev BalanceChanged) error
}

// OnUpgradePurchased is called after an upgrade tier is bought.
type OnUpgradePurchased interface {
	Plugin
	OnUpgradePurchased(ctx context.Context, ev UpgradePurchased) error
}

// OnIdleClaimed is called after idle currency is claimed.
type OnIdleClaimed interface {
	Plugin
	OnIdleClaimed(ctx context.Context, ev IdleClaimed) error
}

// ──────────────────────────────────────────────────
// Progression hooks
// ──────────────────────────────────────────────────

// OnPrestige is called after a prestige reset.
type OnPrestige interface {
	Plugin
	OnPrestige(ctx context.Context, ev Prestiged) error
}

// OnAchievementUnlocked is called once per newly unlocked achievement.
type OnAchievementUnlocked interface {
	Plugin
	OnAchievementUnlocked(ctx context.Context, achievementID string) error
}

// OnAchievementClaimed is called after an achievement reward is paid.
type OnAchievementClaimed interface {
	Plugin
	OnAchievementClaimed(ctx context.Context, ev AchievementClaimed) error
}
