package prestige_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/embers/prestige"
	"github.com/xraph/embers/store"
	"github.com/xraph/embers/store/memory"
	"github.com/xraph/embers/store/storetest"
)

func TestScoreMultiplierScenario(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c := prestige.New(s, prestige.DefaultConfig())
	require.NoError(t, s.SetInt(ctx, store.KeyPrestigeLevel, 2))

	got, err := c.ScoreMultiplier(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.25, got, 1e-12)

	cur, err := c.CurrencyMultiplier(ctx)
	require.NoError(t, err)
	assert.InDelta(t, got, cur, 0)

	next, err := c.NextMultiplier(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 3.375, next, 1e-12)
}

func TestRecordRunDistanceKeepsBest(t *testing.T) {
	ctx := context.Background()
	c := prestige.New(memory.New(), prestige.DefaultConfig())

	require.NoError(t, c.RecordRunDistance(ctx, 150))
	require.NoError(t, c.RecordRunDistance(ctx, 90))
	require.NoError(t, c.RecordRunDistance(ctx, -1))

	best, err := c.BestDistance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 150, best, 0)

	ok, err := c.CanPrestige(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.RecordRunDistance(ctx, 200))
	ok, err = c.CanPrestige(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDoPrestigeRequiresEligibility(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c := prestige.New(s, prestige.DefaultConfig())
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, 500))

	ok, _, err := c.DoPrestige(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	bal, err := s.GetInt(ctx, store.KeyBankBalance, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)
}

func seedSave(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Apply(ctx, store.NewBatch().
		// cycle
		SetInt(store.KeyBankBalance, 900).
		SetInt(store.UpgradeTierKey("shield"), 2).
		SetInt(store.UpgradeTierKey("idle_rate"), 4).
		SetFloat(store.KeyPrestigeBestDistance, 250).
		SetInt(store.KeyStoreUnlocked, 1).
		SetInt(store.KeyModsUnlocked, 1).
		SetInt(store.ModifierOnKey("speed"), 1).
		// permanent
		SetInt(store.KeyPrestigeLevel, 1).
		SetInt(store.KeyIdleLastClaim, 1_700_000_000).
		SetInt(store.AchievementUnlockedKey("first_run"), 1).
		SetInt(store.AchievementClaimedKey("first_run"), 1).
		SetFloat(store.KeyStatLifetimeDistance, 1234.5).
		SetInt(store.KeyStatRunsPlayed, 17).
		SetInt(store.ModifierRunsKey("speed"), 3).
		SetFloat(store.KeyBestDistance, 250).
		SetFloat(store.KeyBestHighScore, 9001).
		SetString(store.KeySkinSelected, "ember_fox").
		SetInt(store.KeySaveVersion, 1)))
}

type entry struct {
	Int   int64
	Float float64
	Str   string
}

func permanentState(t *testing.T, s store.Store) map[string]entry {
	t.Helper()
	ctx := context.Background()
	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)

	out := make(map[string]entry)
	for _, k := range keys {
		scope, err := store.Classify(k)
		require.NoError(t, err)
		if scope != store.ScopePermanent || k == store.KeyPrestigeLevel {
			continue
		}
		var e entry
		e.Int, err = s.GetInt(ctx, k, 0)
		require.NoError(t, err)
		e.Float, err = s.GetFloat(ctx, k, 0)
		require.NoError(t, err)
		e.Str, err = s.GetString(ctx, k, "")
		require.NoError(t, err)
		out[k] = e
	}
	return out
}

func TestDoPrestigePartition(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedSave(t, s)
	c := prestige.New(s, prestige.DefaultConfig())

	before := permanentState(t, s)

	ok, level, err := c.DoPrestige(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, level)

	got, err := c.Level(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got, "level increases by exactly one")

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	for _, k := range keys {
		scope, err := store.Classify(k)
		require.NoError(t, err)
		assert.Equal(t, store.ScopePermanent, scope, "cycle key %q survived", k)
	}

	bal, err := s.GetInt(ctx, store.KeyBankBalance, -1)
	require.NoError(t, err)
	assert.Zero(t, bal)
	best, err := c.BestDistance(ctx)
	require.NoError(t, err)
	assert.Zero(t, best)

	assert.Equal(t, before, permanentState(t, s), "permanent keys are untouched")
}

func TestDoPrestigeIsAtomic(t *testing.T) {
	ctx := context.Background()
	fs := storetest.NewFailing(memory.New())
	seedSave(t, fs)
	c := prestige.New(fs, prestige.DefaultConfig())

	fs.FailWrites()
	ok, _, err := c.DoPrestige(ctx)
	require.ErrorIs(t, err, storetest.ErrInjected)
	assert.False(t, ok)
	fs.Heal()

	level, err := c.Level(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
	bal, err := fs.GetInt(ctx, store.KeyBankBalance, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(900), bal)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	c := prestige.New(memory.New(), prestige.DefaultConfig())
	require.NoError(t, c.RecordRunDistance(ctx, 210))

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, prestige.Status{
		Level:          0,
		BestDistance:   210,
		Requirement:    200,
		Eligible:       true,
		Multiplier:     1,
		NextMultiplier: 1.5,
	}, st)
}
