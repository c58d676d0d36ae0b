package achievement_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/embers/achievement"
	"github.com/xraph/embers/bank"
	"github.com/xraph/embers/stats"
	"github.com/xraph/embers/store"
	"github.com/xraph/embers/store/memory"
	"github.com/xraph/embers/store/storetest"
	"github.com/xraph/embers/types"
)

func testCatalog(t *testing.T) *achievement.Catalog {
	t.Helper()
	c, err := achievement.NewCatalog(
		achievement.Definition{ID: "runs_2", ProgressType: achievement.ProgressRunsPlayed, Target: 2, Reward: 15, SortOrder: 2},
		achievement.Definition{ID: "dist_100", ProgressType: achievement.ProgressBestDistance, Target: 100, Reward: 10, SortOrder: 1},
		achievement.Definition{ID: "future", ProgressType: "time_travel", Target: 0.5, Reward: 99, SortOrder: 1},
	)
	require.NoError(t, err)
	return c
}

func TestProgressFor(t *testing.T) {
	m := achievement.Metrics{
		BestDistance:  80,
		RunDistance:   120,
		RunScore:      5000,
		RunCurrency:   33,
		PrestigeLevel: 2,
		Stats: stats.Snapshot{
			LifetimeDistance: 4000,
			LifetimeEarned:   900,
			RunsPlayed:       12,
			ModifierRuns:     map[string]int64{"speed": 3, "hazards": 4},
			BestFlipsInRun:   21,
			BestNoHit:        310,
			BestHardMode:     260,
		},
	}

	tests := []struct {
		pt   achievement.ProgressType
		want float64
	}{
		{achievement.ProgressBestDistance, 120},
		{achievement.ProgressLifetimeDistance, 4000},
		{achievement.ProgressRunsPlayed, 12},
		{achievement.ProgressLifetimeEarned, 900},
		{achievement.ProgressSpeedModRuns, 3},
		{achievement.ProgressHazardsModRuns, 4},
		{achievement.ProgressPrestigeLevel, 2},
		{achievement.ProgressFlipsInRun, 21},
		{achievement.ProgressNoHitDistance, 310},
		{achievement.ProgressHardModeDistance, 260},
		{achievement.ProgressRunDistance, 120},
		{achievement.ProgressRunScore, 5000},
		{achievement.ProgressRunCurrency, 33},
		{"unknown", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.pt), func(t *testing.T) {
			assert.InDelta(t, tt.want, achievement.ProgressFor(tt.pt, m), 0)
		})
	}
}

func TestEvaluateUnlocksOnce(t *testing.T) {
	ctx := context.Background()
	e := achievement.New(memory.New(), testCatalog(t))

	got, err := e.Evaluate(ctx, achievement.Metrics{RunDistance: 50})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.Evaluate(ctx, achievement.Metrics{RunDistance: 150, Stats: stats.Snapshot{RunsPlayed: 2}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "dist_100", got[0].ID)
	assert.Equal(t, "runs_2", got[1].ID)

	got, err = e.Evaluate(ctx, achievement.Metrics{RunDistance: 500, Stats: stats.Snapshot{RunsPlayed: 9}})
	require.NoError(t, err)
	assert.Empty(t, got, "already unlocked definitions are skipped")

	// A worse snapshot never relocks anything.
	_, err = e.Evaluate(ctx, achievement.Metrics{})
	require.NoError(t, err)
	ok, err := e.IsUnlocked(ctx, "dist_100")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.IsUnlocked(ctx, "future")
	require.NoError(t, err)
	assert.False(t, ok, "unknown progress types never unlock")
}

func TestTryClaim(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	e := achievement.New(s, testCatalog(t))
	b := bank.New(s, nil)

	ok, err := e.TryClaim(ctx, "dist_100", b)
	require.NoError(t, err)
	assert.False(t, ok, "locked achievements cannot be claimed")

	claimed, err := e.IsClaimed(ctx, "dist_100")
	require.NoError(t, err)
	assert.False(t, claimed)

	_, err = e.Evaluate(ctx, achievement.Metrics{RunDistance: 100})
	require.NoError(t, err)

	ok, err = e.TryClaim(ctx, "dist_100", b)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.TryClaim(ctx, "dist_100", b)
	require.NoError(t, err)
	assert.False(t, ok, "second claim is a no-op")

	bal, err := b.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal)

	ok, err = e.TryClaim(ctx, "nope", b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryClaimRollsBack(t *testing.T) {
	ctx := context.Background()
	fs := storetest.NewFailing(memory.New())
	e := achievement.New(fs, testCatalog(t))
	b := bank.New(fs, nil)

	_, err := e.Evaluate(ctx, achievement.Metrics{RunDistance: 100})
	require.NoError(t, err)

	fs.FailWrites()
	ok, err := e.TryClaim(ctx, "dist_100", b)
	require.ErrorIs(t, err, storetest.ErrInjected)
	assert.False(t, ok)
	fs.Heal()

	claimed, err := e.IsClaimed(ctx, "dist_100")
	require.NoError(t, err)
	assert.False(t, claimed)
	bal, err := b.Balance(ctx)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestClaimedImpliesUnlocked(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	e := achievement.New(s, testCatalog(t))

	// A hand-edited save claiming a locked achievement is not reported as claimed.
	require.NoError(t, s.SetInt(ctx, store.AchievementClaimedKey("runs_2"), 1))

	list, err := e.List(ctx, achievement.Metrics{})
	require.NoError(t, err)
	for _, p := range list {
		if p.Claimed {
			assert.True(t, p.Unlocked, p.Definition.ID)
		}
	}
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	e := achievement.New(memory.New(), testCatalog(t))

	list, err := e.List(ctx, achievement.Metrics{Stats: stats.Snapshot{RunsPlayed: 1}})
	require.NoError(t, err)
	require.Len(t, list, 3)

	ids := []string{list[0].Definition.ID, list[1].Definition.ID, list[2].Definition.ID}
	assert.Equal(t, []string{"dist_100", "future", "runs_2"}, ids)
	assert.InDelta(t, 1, list[2].Progress, 0)
}

func TestLoadCatalog(t *testing.T) {
	c, err := achievement.LoadCatalog(strings.NewReader(`
achievements:
  - id: b
    progress: runs_played
    target: 1
  - id: a
    progress: best_distance
    target: 10
    reward: 0
`))
	require.NoError(t, err)

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, int64(0), all[0].Reward)
	assert.Equal(t, int64(achievement.DefaultReward), all[1].Reward)

	_, err = achievement.NewCatalog(
		achievement.Definition{ID: "x", ProgressType: achievement.ProgressRunsPlayed},
		achievement.Definition{ID: "x"},
	)
	assert.True(t, errors.Is(err, types.ErrInvalidCatalog))

	assert.NotZero(t, achievement.DefaultCatalog().Len())
}
