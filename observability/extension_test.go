package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/embers/observability"
	"github.com/xraph/embers/plugin"
)

func value(t *testing.T, c observability.Counter) float64 {
	t.Helper()
	col, ok := c.(prometheus.Collector)
	require.True(t, ok)
	return testutil.ToFloat64(col)
}

func TestMetricsExtensionCounts(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	r := plugin.NewRegistry()
	require.NoError(t, r.Register(m))

	r.EmitRunStarted(ctx, plugin.RunStarted{RunID: "run_a"})
	r.EmitRunEnded(ctx, plugin.RunEnded{RunID: "run_a", Distance: 420, Earned: 12, Duration: 90 * time.Second, NewHighScore: true})
	r.EmitBalanceChanged(ctx, plugin.BalanceChanged{Balance: 112, Delta: 12})
	r.EmitBalanceChanged(ctx, plugin.BalanceChanged{Balance: 62, Delta: -50})
	r.EmitUpgradePurchased(ctx, plugin.UpgradePurchased{UpgradeID: "shield", Tier: 1, Cost: 50})
	r.EmitPrestige(ctx, plugin.Prestiged{Level: 1, Multiplier: 1.5})

	assert.Equal(t, 1.0, value(t, m.RunsStarted))
	assert.Equal(t, 1.0, value(t, m.RunsEnded))
	assert.Equal(t, 1.0, value(t, m.HighScores))
	assert.Equal(t, 12.0, value(t, m.CurrencyEarned))
	assert.Equal(t, 50.0, value(t, m.CurrencySpent))
	assert.Equal(t, 1.0, value(t, m.UpgradePurchases))
	assert.Equal(t, 1.0, value(t, m.Prestiges))
	assert.Equal(t, 0.0, value(t, m.IdleClaims))

	n, err := testutil.GatherAndCount(reg, "embers_run_distance")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := observability.NewPrometheusFactory(reg)
	b := observability.NewPrometheusFactory(reg)

	a.Counter("embers.idle.claims").Inc()
	b.Counter("embers.idle.claims").Inc()

	assert.Equal(t, 2.0, value(t, a.Counter("embers.idle.claims")))
}
