// Package audithook bridges Embers progression events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on a
// particular audit store. Callers inject a RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/embers/id"
	"github.com/xraph/embers/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnRunStarted          = (*Extension)(nil)
	_ plugin.OnRunEnded            = (*Extension)(nil)
	_ plugin.OnUpgradePurchased    = (*Extension)(nil)
	_ plugin.OnIdleClaimed         = (*Extension)(nil)
	_ plugin.OnPrestige            = (*Extension)(nil)
	_ plugin.OnAchievementUnlocked = (*Extension)(nil)
	_ plugin.OnAchievementClaimed  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	ID         id.AuditEventID `json:"id"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	Category   string          `json:"category"`
	ResourceID string          `json:"resource_id,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Outcome    string          `json:"outcome"`
	Severity   string          `json:"severity"`
	Reason     string          `json:"reason,omitempty"`
	At         time.Time       `json:"at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges engine events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Run hooks
// ──────────────────────────────────────────────────

// OnRunStarted implements plugin.OnRunStarted.
func (e *Extension) OnRunStarted(ctx context.Context, ev plugin.RunStarted) error {
	return e.record(ctx, ActionRunStarted, SeverityInfo, OutcomeSuccess,
		ResourceRun, ev.RunID, CategoryGameplay, "",
		"modifiers", ev.Modifiers,
	)
}

// OnRunEnded implements plugin.OnRunEnded.
func (e *Extension) OnRunEnded(ctx context.Context, ev plugin.RunEnded) error {
	return e.record(ctx, ActionRunEnded, SeverityInfo, OutcomeSuccess,
		ResourceRun, ev.RunID, CategoryGameplay, "",
		"distance", ev.Distance,
		"score", ev.Score,
		"earned", ev.Earned,
		"duration_ms", ev.Duration.Milliseconds(),
		"new_high_score", ev.NewHighScore,
	)
}

// ──────────────────────────────────────────────────
// Economy hooks
// ──────────────────────────────────────────────────

// OnUpgradePurchased implements plugin.OnUpgradePurchased.
func (e *Extension) OnUpgradePurchased(ctx context.Context, ev plugin.UpgradePurchased) error {
	return e.record(ctx, ActionUpgradePurchased, SeverityInfo, OutcomeSuccess,
		ResourceUpgrade, ev.UpgradeID, CategoryEconomy, "",
		"tier", ev.Tier,
		"cost", ev.Cost,
	)
}

// OnIdleClaimed implements plugin.OnIdleClaimed.
func (e *Extension) OnIdleClaimed(ctx context.Context, ev plugin.IdleClaimed) error {
	return e.record(ctx, ActionIdleClaimed, SeverityInfo, OutcomeSuccess,
		ResourceIdle, "", CategoryEconomy, "",
		"amount", ev.Amount,
		"stored_hours", ev.StoredHours,
	)
}

// ──────────────────────────────────────────────────
// Progression hooks
// ──────────────────────────────────────────────────

// OnPrestige implements plugin.OnPrestige. Prestige wipes a whole cycle,
// so it is recorded as a warning.
func (e *Extension) OnPrestige(ctx context.Context, ev plugin.Prestiged) error {
	return e.record(ctx, ActionPrestige, SeverityWarning, OutcomeSuccess,
		ResourcePrestige, fmt.Sprintf("%d", ev.Level), CategoryProgression, "cycle reset",
		"level", ev.Level,
		"multiplier", ev.Multiplier,
	)
}

// OnAchievementUnlocked implements plugin.OnAchievementUnlocked.
func (e *Extension) OnAchievementUnlocked(ctx context.Context, achievementID string) error {
	return e.record(ctx, ActionAchievementUnlocked, SeverityInfo, OutcomeSuccess,
		ResourceAchievement, achievementID, CategoryProgression, "",
	)
}

// OnAchievementClaimed implements plugin.OnAchievementClaimed.
func (e *Extension) OnAchievementClaimed(ctx context.Context, ev plugin.AchievementClaimed) error {
	return e.record(ctx, ActionAchievementClaimed, SeverityInfo, OutcomeSuccess,
		ResourceAchievement, ev.AchievementID, CategoryEconomy, "",
		"reward", ev.Reward,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged and swallowed.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category, reason string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		At:         e.now().UTC(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
