package audithook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/embers/audit_hook"
	"github.com/xraph/embers/id"
	"github.com/xraph/embers/plugin"
)

type sink struct{ events []*audithook.AuditEvent }

func (s *sink) Record(_ context.Context, ev *audithook.AuditEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func TestRecordsThroughRegistry(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &sink{}
	ext := audithook.New(s, audithook.WithNow(func() time.Time { return at }))

	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(ext))

	reg.EmitUpgradePurchased(ctx, plugin.UpgradePurchased{UpgradeID: "shield", Tier: 2, Cost: 75})
	reg.EmitPrestige(ctx, plugin.Prestiged{Level: 1, Multiplier: 1.5})

	require.Len(t, s.events, 2)

	buy := s.events[0]
	assert.Equal(t, audithook.ActionUpgradePurchased, buy.Action)
	assert.Equal(t, "shield", buy.ResourceID)
	assert.Equal(t, 2, buy.Metadata["tier"])
	assert.Equal(t, int64(75), buy.Metadata["cost"])
	assert.Equal(t, at, buy.At)
	assert.Equal(t, id.PrefixAuditEvent, buy.ID.Prefix())

	pr := s.events[1]
	assert.Equal(t, audithook.SeverityWarning, pr.Severity)
	assert.Equal(t, "1", pr.ResourceID)
	assert.NotEqual(t, buy.ID.String(), pr.ID.String())
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()

	s := &sink{}
	ext := audithook.New(s, audithook.WithEnabledActions(audithook.ActionIdleClaimed))
	require.NoError(t, ext.OnAchievementUnlocked(ctx, "first_steps"))
	require.NoError(t, ext.OnIdleClaimed(ctx, plugin.IdleClaimed{Amount: 160, StoredHours: 8}))
	require.Len(t, s.events, 1)
	assert.Equal(t, audithook.ActionIdleClaimed, s.events[0].Action)

	s2 := &sink{}
	ext2 := audithook.New(s2, audithook.WithDisabledActions(audithook.ActionRunStarted))
	require.NoError(t, ext2.OnRunStarted(ctx, plugin.RunStarted{RunID: "run_x"}))
	require.NoError(t, ext2.OnRunEnded(ctx, plugin.RunEnded{RunID: "run_x", Score: 10}))
	require.Len(t, s2.events, 1)
	assert.Equal(t, audithook.ActionRunEnded, s2.events[0].Action)
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("disk full")
	}))
	assert.NoError(t, ext.OnAchievementClaimed(context.Background(), plugin.AchievementClaimed{AchievementID: "a", Reward: 10}))
}
