// Package observability provides a metrics extension for Embers that records
// progression event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/embers/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnRunStarted          = (*MetricsExtension)(nil)
	_ plugin.OnRunEnded            = (*MetricsExtension)(nil)
	_ plugin.OnBalanceChanged      = (*MetricsExtension)(nil)
	_ plugin.OnUpgradePurchased    = (*MetricsExtension)(nil)
	_ plugin.OnIdleClaimed         = (*MetricsExtension)(nil)
	_ plugin.OnPrestige            = (*MetricsExtension)(nil)
	_ plugin.OnAchievementUnlocked = (*MetricsExtension)(nil)
	_ plugin.OnAchievementClaimed  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide progression metrics.
// Register it as an Embers plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Run metrics
	RunsStarted Counter
	RunsEnded   Counter
	HighScores  Counter
	RunDistance Histogram
	RunEarnings Histogram
	RunDuration Histogram

	// Economy metrics
	CurrencyEarned   Counter
	CurrencySpent    Counter
	UpgradePurchases Counter
	UpgradeSpend     Histogram
	IdleClaims       Counter
	IdleClaimAmount  Histogram

	// Progression metrics
	Prestiges            Counter
	AchievementsUnlocked Counter
	AchievementsClaimed  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		RunsStarted: factory.Counter("embers.run.started"),
		RunsEnded:   factory.Counter("embers.run.ended"),
		HighScores:  factory.Counter("embers.run.high_scores"),
		RunDistance: factory.Histogram("embers.run.distance"),
		RunEarnings: factory.Histogram("embers.run.earnings"),
		RunDuration: factory.Histogram("embers.run.duration_seconds"),

		CurrencyEarned:   factory.Counter("embers.bank.earned"),
		CurrencySpent:    factory.Counter("embers.bank.spent"),
		UpgradePurchases: factory.Counter("embers.upgrade.purchases"),
		UpgradeSpend:     factory.Histogram("embers.upgrade.cost"),
		IdleClaims:       factory.Counter("embers.idle.claims"),
		IdleClaimAmount:  factory.Histogram("embers.idle.claim_amount"),

		Prestiges:            factory.Counter("embers.prestige.resets"),
		AchievementsUnlocked: factory.Counter("embers.achievement.unlocked"),
		AchievementsClaimed:  factory.Counter("embers.achievement.claimed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Run hooks
// ──────────────────────────────────────────────────

// OnRunStarted implements plugin.OnRunStarted.
func (m *MetricsExtension) OnRunStarted(_ context.Context, _ plugin.RunStarted) error {
	m.RunsStarted.Inc()
	return nil
}

// OnRunEnded implements plugin.OnRunEnded.
func (m *MetricsExtension) OnRunEnded(_ context.Context, ev plugin.RunEnded) error {
	m.RunsEnded.Inc()
	if ev.NewHighScore {
		m.HighScores.Inc()
	}
	m.RunDistance.Observe(ev.Distance)
	m.RunEarnings.Observe(float64(ev.Earned))
	m.RunDuration.Observe(ev.Duration.Seconds())
	return nil
}

// ──────────────────────────────────────────────────
// Economy hooks
// ──────────────────────────────────────────────────

// OnBalanceChanged implements plugin.OnBalanceChanged.
func (m *MetricsExtension) OnBalanceChanged(_ context.Context, ev plugin.BalanceChanged) error {
	switch {
	case ev.Delta > 0:
		m.CurrencyEarned.Add(float64(ev.Delta))
	case ev.Delta < 0:
		m.CurrencySpent.Add(float64(-ev.Delta))
	}
	return nil
}

// OnUpgradePurchased implements plugin.OnUpgradePurchased.
func (m *MetricsExtension) OnUpgradePurchased(_ context.Context, ev plugin.UpgradePurchased) error {
	m.UpgradePurchases.Inc()
	m.UpgradeSpend.Observe(float64(ev.Cost))
	return nil
}

// OnIdleClaimed implements plugin.OnIdleClaimed.
func (m *MetricsExtension) OnIdleClaimed(_ context.Context, ev plugin.IdleClaimed) error {
	m.IdleClaims.Inc()
	m.IdleClaimAmount.Observe(float64(ev.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Progression hooks
// ──────────────────────────────────────────────────

// OnPrestige implements plugin.OnPrestige.
func (m *MetricsExtension) OnPrestige(_ context.Context, _ plugin.Prestiged) error {
	m.Prestiges.Inc()
	return nil
}

// OnAchievementUnlocked implements plugin.OnAchievementUnlocked.
func (m *MetricsExtension) OnAchievementUnlocked(_ context.Context, _ string) error {
	m.AchievementsUnlocked.Inc()
	return nil
}

// OnAchievementClaimed implements plugin.OnAchievementClaimed.
func (m *MetricsExtension) OnAchievementClaimed(_ context.Context, _ plugin.AchievementClaimed) error {
	m.AchievementsClaimed.Inc()
	return nil
}
