package embers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/embers"
	"github.com/xraph/embers/achievement"
	"github.com/xraph/embers/clock"
	"github.com/xraph/embers/id"
	"github.com/xraph/embers/modifier"
	"github.com/xraph/embers/plugin"
	"github.com/xraph/embers/store"
	"github.com/xraph/embers/store/memory"
	"github.com/xraph/embers/store/storetest"
	"github.com/xraph/embers/upgrade"
)

var epoch = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, s store.Store, opts ...embers.Option) (*embers.Engine, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(epoch)
	opts = append([]embers.Option{embers.WithClock(clk)}, opts...)
	eng, err := embers.New(s, opts...)
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))
	return eng, clk
}

func playRun(t *testing.T, eng *embers.Engine, pickups int, res embers.RunResult, mods ...string) embers.RunSummary {
	t.Helper()
	ctx := context.Background()
	_, err := eng.RunStarted(ctx, mods...)
	require.NoError(t, err)
	for range pickups {
		_, err := eng.CurrencyPickedUp(ctx, 1)
		require.NoError(t, err)
	}
	sum, err := eng.RunEnded(ctx, res)
	require.NoError(t, err)
	return sum
}

func TestQuickStart(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t, memory.New())

	runID, err := eng.RunStarted(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.PrefixRun, runID.Prefix())
	assert.True(t, eng.RunActive())

	for range 5 {
		got, err := eng.CurrencyPickedUp(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(10), got)
	}

	sum, err := eng.RunEnded(ctx, embers.RunResult{Distance: 120, Score: 900})
	require.NoError(t, err)
	assert.Equal(t, runID.String(), sum.RunID)
	assert.Equal(t, int64(50), sum.Earned)
	assert.Equal(t, int64(50), sum.Balance)
	assert.True(t, sum.NewHighScore)
	assert.True(t, sum.NewBestDistance)
	assert.False(t, sum.CanPrestige)
	require.Len(t, sum.Unlocked, 1)
	assert.Equal(t, "dist_100", sum.Unlocked[0].ID)

	ok, err := eng.ClaimAchievement(ctx, "dist_100")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = eng.ClaimAchievement(ctx, "dist_100")
	require.NoError(t, err)
	assert.False(t, ok)

	bal, err := eng.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(60), bal)

	st, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120.0, st.LifetimeDistance)
	assert.Equal(t, int64(50), st.LifetimeEarned)
	assert.Equal(t, int64(1), st.RunsPlayed)
	assert.Equal(t, 900.0, st.HighScore)
}

func TestRunLifecycleErrors(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t, memory.New())

	_, err := eng.RunEnded(ctx, embers.RunResult{Distance: 10})
	assert.ErrorIs(t, err, embers.ErrRunNotActive)

	got, err := eng.CurrencyPickedUp(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = eng.RunStarted(ctx, "turbo")
	assert.ErrorIs(t, err, embers.ErrUnknownModifier)
	assert.True(t, embers.IsNotFound(err))

	_, err = eng.RunStarted(ctx)
	require.NoError(t, err)
	_, err = eng.RunStarted(ctx)
	assert.ErrorIs(t, err, embers.ErrRunActive)
	assert.True(t, embers.IsRetryable(err))

	_, _, err = eng.Prestige(ctx)
	assert.ErrorIs(t, err, embers.ErrRunActive)
}

func TestSettlementHappensOnce(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t, memory.New())

	sum := playRun(t, eng, 7, embers.RunResult{Distance: 20})
	assert.Equal(t, int64(7), sum.Earned)

	// A second run with no pickups must not merge the first run again.
	sum = playRun(t, eng, 0, embers.RunResult{Distance: 20})
	assert.Zero(t, sum.Earned)

	bal, err := eng.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), bal)
}

func TestUpgradeStoreGate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, 200))
	eng, _ := newEngine(t, s)

	p, err := eng.PurchaseUpgrade(ctx, "shield")
	require.NoError(t, err)
	assert.False(t, p.OK)
	assert.Equal(t, upgrade.ReasonStoreLocked, p.Reason)

	quotes, err := eng.UpgradeQuotes(ctx)
	require.NoError(t, err)
	for _, q := range quotes {
		assert.Equal(t, upgrade.ReasonStoreLocked, q.Reason, q.ID)
	}

	ok, err := eng.UnlockStore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	p, err = eng.PurchaseUpgrade(ctx, "shield")
	require.NoError(t, err)
	require.True(t, p.OK)
	assert.Equal(t, 1, p.Tier)
	assert.Equal(t, int64(50), p.Cost)
	assert.Equal(t, upgrade.EffectShield, p.Payload.Effect)

	bal, err := eng.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200-upgrade.DefaultStoreUnlockCost-50), bal)

	// magnet needs 50 m of best distance this cycle.
	p, err = eng.PurchaseUpgrade(ctx, "magnet")
	require.NoError(t, err)
	assert.Equal(t, upgrade.ReasonDistance, p.Reason)

	payloads, err := eng.OwnedPayloads(ctx)
	require.NoError(t, err)
	assert.Len(t, payloads, 1)
	assert.Equal(t, 1.0, payloads["shield"].V0)

	_, err = eng.PurchaseUpgrade(ctx, "jetpack")
	assert.ErrorIs(t, err, embers.ErrUnknownUpgrade)
}

func TestPurchaseFailureLeavesSaveUntouched(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	require.NoError(t, inner.SetInt(ctx, store.KeyBankBalance, 200))
	require.NoError(t, inner.SetInt(ctx, store.KeyStoreUnlocked, 1))
	f := storetest.NewFailing(inner)
	eng, _ := newEngine(t, f)

	f.FailWrites()
	_, err := eng.PurchaseUpgrade(ctx, "shield")
	require.ErrorIs(t, err, storetest.ErrInjected)
	f.Heal()

	bal, err := eng.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), bal)
	tier, err := inner.GetInt(ctx, store.UpgradeTierKey("shield"), 0)
	require.NoError(t, err)
	assert.Zero(t, tier)
}

func TestPrestigeResetsCycleOnly(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, 500))
	eng, _ := newEngine(t, s)

	_, err := eng.UnlockStore(ctx)
	require.NoError(t, err)
	p, err := eng.PurchaseUpgrade(ctx, "shield")
	require.NoError(t, err)
	require.True(t, p.OK)

	sum := playRun(t, eng, 0, embers.RunResult{Distance: 250, Score: 3000})
	assert.True(t, sum.CanPrestige)

	before, err := eng.Stats(ctx)
	require.NoError(t, err)

	ok, level, err := eng.Prestige(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, level)

	bal, err := eng.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, bal)

	open, err := eng.StoreUnlocked(ctx)
	require.NoError(t, err)
	assert.False(t, open)

	tier, err := s.GetInt(ctx, store.UpgradeTierKey("shield"), -1)
	require.NoError(t, err)
	assert.Zero(t, tier)

	after, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	list, err := eng.Achievements(ctx)
	require.NoError(t, err)
	for _, a := range list {
		if a.Definition.ID == "dist_100" {
			assert.True(t, a.Unlocked)
		}
	}

	status, err := eng.PrestigeStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Level)
	assert.Zero(t, status.BestDistance)
	assert.False(t, status.Eligible)
	assert.Equal(t, 1.5, status.Multiplier)

	ok, err = eng.SelectSkin(ctx, "ember_fox")
	require.NoError(t, err)
	assert.True(t, ok)

	// Level 1 scales pickups by 1.5.
	_, err = eng.RunStarted(ctx)
	require.NoError(t, err)
	got, err := eng.CurrencyPickedUp(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), got)
}

func TestIdleClaim(t *testing.T) {
	ctx := context.Background()
	eng, clk := newEngine(t, memory.New())

	clk.Advance(10 * time.Hour)

	st, err := eng.IdleStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(160), st.Claimable)
	assert.Equal(t, 8.0, st.StoredHours)

	got, err := eng.ClaimIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(160), got)

	got, err = eng.ClaimIdle(ctx)
	require.NoError(t, err)
	assert.Zero(t, got)

	bal, err := eng.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(160), bal)
}

func TestModifierComposition(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, modifier.DefaultUnlockCost))
	eng, _ := newEngine(t, s)

	ok, err := eng.SetModifier(ctx, modifier.Speed, true)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = eng.UnlockModifiers(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eng.SetModifier(ctx, modifier.Speed, true)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = eng.SetModifier(ctx, "turbo", true)
	assert.ErrorIs(t, err, embers.ErrUnknownModifier)

	active, err := eng.ActiveModifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{modifier.Speed}, active)

	score, err := eng.ScoreFor(ctx, 100)
	require.NoError(t, err)
	assert.InDelta(t, 125.0, score, 1e-9)

	_, err = eng.RunStarted(ctx, active...)
	require.NoError(t, err)
	got, err := eng.CurrencyPickedUp(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	_, err = eng.RunEnded(ctx, embers.RunResult{Distance: 30})
	require.NoError(t, err)

	st, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ModifierRuns[modifier.Speed])
}

// enableModifiers buys the modifier unlock and toggles names on.
func enableModifiers(t *testing.T, eng *embers.Engine, names ...string) {
	t.Helper()
	ctx := context.Background()
	ok, err := eng.UnlockModifiers(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	for _, n := range names {
		ok, err := eng.SetModifier(ctx, n, true)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestRunStartedIgnoresLockedModifiers(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t, memory.New())

	_, err := eng.RunStarted(ctx, modifier.Speed, modifier.Hazards)
	require.NoError(t, err)
	got, err := eng.CurrencyPickedUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
	_, err = eng.RunEnded(ctx, embers.RunResult{Distance: 260})
	require.NoError(t, err)

	st, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.ModifierRuns)
	assert.Zero(t, st.BestHardMode)
}

func TestRunStartedIgnoresModifiersToggledOff(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, modifier.DefaultUnlockCost))
	eng, _ := newEngine(t, s)
	enableModifiers(t, eng, modifier.Speed)

	_, err := eng.RunStarted(ctx, modifier.Speed, modifier.Hazards)
	require.NoError(t, err)
	got, err := eng.CurrencyPickedUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(125), got)
}

func TestRunStartedCountsRepeatedModifierOnce(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, modifier.DefaultUnlockCost))
	eng, _ := newEngine(t, s)
	enableModifiers(t, eng, modifier.Speed)

	_, err := eng.RunStarted(ctx, modifier.Speed, modifier.Speed, modifier.Speed, modifier.Speed)
	require.NoError(t, err)
	got, err := eng.CurrencyPickedUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(125), got)
	_, err = eng.RunEnded(ctx, embers.RunResult{Distance: 10})
	require.NoError(t, err)

	st, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ModifierRuns[modifier.Speed])
}

func TestPrestigeRelocksModifiers(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, modifier.DefaultUnlockCost))
	eng, _ := newEngine(t, s)
	enableModifiers(t, eng, modifier.Speed, modifier.Hazards)

	playRun(t, eng, 0, embers.RunResult{Distance: 1500})
	ok, _, err := eng.Prestige(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	active, err := eng.ActiveModifiers(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = eng.RunStarted(ctx)
	require.NoError(t, err)
	plain, err := eng.CurrencyPickedUp(ctx, 100)
	require.NoError(t, err)
	_, err = eng.RunEnded(ctx, embers.RunResult{Distance: 10})
	require.NoError(t, err)

	_, err = eng.RunStarted(ctx, modifier.Speed, modifier.Hazards)
	require.NoError(t, err)
	got, err := eng.CurrencyPickedUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestAchievementsReportLastRunCurrency(t *testing.T) {
	ctx := context.Background()
	cat, err := achievement.NewCatalog(
		achievement.Definition{ID: "haul_50", ProgressType: achievement.ProgressRunCurrency, Target: 50, Reward: 5},
	)
	require.NoError(t, err)
	eng, _ := newEngine(t, memory.New(), embers.WithAchievementCatalog(cat))

	sum := playRun(t, eng, 7, embers.RunResult{Distance: 20})
	require.Equal(t, int64(7), sum.Earned)

	list, err := eng.Achievements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.InDelta(t, 7.0, list[0].Progress, 1e-9)
	assert.False(t, list[0].Unlocked)
}

func TestHardModeRecordsDistance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, modifier.DefaultUnlockCost))
	eng, _ := newEngine(t, s)
	enableModifiers(t, eng, modifier.Speed, modifier.Hazards)

	playRun(t, eng, 0, embers.RunResult{Distance: 260, FlipsInRun: 21, LongestNoHitDistance: 90},
		modifier.Speed, modifier.Hazards)

	st, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 260.0, st.BestHardMode)
	assert.Equal(t, 21.0, st.BestFlipsInRun)
	assert.Equal(t, 90.0, st.BestNoHit)

	list, err := eng.Achievements(ctx)
	require.NoError(t, err)
	unlocked := map[string]bool{}
	for _, a := range list {
		unlocked[a.Definition.ID] = a.Unlocked
	}
	assert.True(t, unlocked["hardmode_250"])
	assert.True(t, unlocked["flips_20"])
	assert.False(t, unlocked["nohit_300"])
}

func TestSkins(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t, memory.New())

	skins, err := eng.Skins(ctx)
	require.NoError(t, err)
	var selected string
	for _, sk := range skins {
		if sk.Selected {
			selected = sk.Skin.ID
		}
	}
	assert.Equal(t, "default", selected)

	ok, err := eng.SelectSkin(ctx, "ember_fox")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = eng.SelectSkin(ctx, "nope")
	assert.ErrorIs(t, err, embers.ErrUnknownSkin)
}

func TestStartRepairsSave(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyPrestigeLevel, 5000))
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, -3))
	eng, _ := newEngine(t, s)

	status, err := eng.PrestigeStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 999, status.Level)

	bal, err := eng.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestEveryWrittenKeyIsClassified(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SetInt(ctx, store.KeyBankBalance, 1000))
	eng, clk := newEngine(t, s)

	_, err := eng.UnlockStore(ctx)
	require.NoError(t, err)
	_, err = eng.UnlockModifiers(ctx)
	require.NoError(t, err)
	_, err = eng.SetModifier(ctx, modifier.Hazards, true)
	require.NoError(t, err)
	_, err = eng.PurchaseUpgrade(ctx, "shield")
	require.NoError(t, err)
	playRun(t, eng, 3, embers.RunResult{Distance: 600, Score: 10, FlipsInRun: 2, LongestNoHitDistance: 5}, modifier.Hazards)
	_, err = eng.ClaimAchievement(ctx, "dist_100")
	require.NoError(t, err)
	clk.Advance(time.Hour)
	_, err = eng.ClaimIdle(ctx)
	require.NoError(t, err)
	_, _, err = eng.Prestige(ctx)
	require.NoError(t, err)

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, keys)
	for _, k := range keys {
		_, err := store.Classify(k)
		assert.NoError(t, err, k)
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) Name() string { return "event-log" }

func (l *eventLog) add(s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, s)
	return nil
}

func (l *eventLog) OnRunStarted(context.Context, plugin.RunStarted) error { return l.add("run_started") }
func (l *eventLog) OnRunEnded(context.Context, plugin.RunEnded) error     { return l.add("run_ended") }
func (l *eventLog) OnBalanceChanged(_ context.Context, ev plugin.BalanceChanged) error {
	return l.add("balance")
}
func (l *eventLog) OnAchievementUnlocked(_ context.Context, id string) error {
	return l.add("unlocked:" + id)
}

func TestPluginEventOrder(t *testing.T) {
	log := &eventLog{}
	eng, _ := newEngine(t, memory.New(), embers.WithPlugin(log))

	playRun(t, eng, 2, embers.RunResult{Distance: 150})

	assert.Equal(t, []string{"run_started", "balance", "unlocked:dist_100", "run_ended"}, log.events)
}

func TestStopSettlesInterruptedRun(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}
	eng, _ := newEngine(t, memory.New(), embers.WithPlugin(log))

	_, err := eng.RunStarted(ctx)
	require.NoError(t, err)
	_, err = eng.CurrencyPickedUp(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, eng.Stop())
	assert.Equal(t, []string{"run_started", "balance"}, log.events)

	_, err = eng.Balance(ctx)
	assert.ErrorIs(t, err, embers.ErrStoreClosed)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("EMBERS_PRESTIGE_REQUIREMENT", "300")
	t.Setenv("EMBERS_LIMIT_MAX_BALANCE", "5000")
	t.Setenv("EMBERS_PLUGIN_TIMEOUT", "2s")

	cfg, err := embers.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 300.0, cfg.PrestigeRequirement)
	assert.Equal(t, int64(5000), cfg.Limits.MaxBalance)
	assert.Equal(t, 2*time.Second, cfg.PluginTimeout)
	assert.Equal(t, embers.DefaultConfig().IdleBaseRatePerHour, cfg.IdleBaseRatePerHour)

	t.Setenv("EMBERS_PRESTIGE_SCALE_FACTOR", "0.5")
	_, err = embers.ConfigFromEnv()
	assert.ErrorIs(t, err, embers.ErrInvalidConfig)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := embers.DefaultConfig()
	cfg.IdleBaseRatePerHour = -1
	_, err := embers.New(memory.New(), embers.WithConfig(cfg))
	assert.ErrorIs(t, err, embers.ErrInvalidConfig)
}
