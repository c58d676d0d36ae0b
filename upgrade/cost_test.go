package upgrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostForTier(t *testing.T) {
	def := Definition{ID: "shield", BaseCost: 50, CostScale: 1.5, MaxTier: 3}

	var got []int64
	for tier := 1; tier <= 3; tier++ {
		got = append(got, CostForTier(def, tier))
	}
	assert.Equal(t, []int64{50, 75, 113}, got)

	assert.Equal(t, int64(50), CostForTier(def, 0), "tier clamps up to 1")
	assert.Equal(t, int64(113), CostForTier(def, 9), "tier clamps down to max")
	assert.Equal(t, int64(1), CostForTier(Definition{MaxTier: 1}, 1), "cost is at least 1")
}

func TestCostIsDeterministic(t *testing.T) {
	def := Definition{BaseCost: 37, CostScale: 1.37, MaxTier: 10}
	for tier := 1; tier <= 10; tier++ {
		assert.Equal(t, CostForTier(def, tier), CostForTier(def, tier))
	}
}

func TestNextTierAndMaxed(t *testing.T) {
	def := Definition{MaxTier: 3}

	tests := []struct {
		owned int
		next  int
		maxed bool
	}{
		{0, 1, false},
		{1, 2, false},
		{2, 3, false},
		{3, 3, true},
		{-2, 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.next, NextPurchasableTier(def, tt.owned), "owned=%d", tt.owned)
		assert.Equal(t, tt.maxed, IsMaxed(def, tt.owned), "owned=%d", tt.owned)
	}
}

func TestResolvedPayload(t *testing.T) {
	def := Definition{
		MaxTier: 3,
		V0:      []float64{1, 2, 3},
		V1:      []float64{10},
		Effect:  EffectShield,
	}

	assert.Equal(t, Payload{Effect: EffectShield, V0: 1, V1: 10}, ResolvedPayload(def, 1))
	assert.Equal(t, Payload{Effect: EffectShield, V0: 3, V1: 10}, ResolvedPayload(def, 3))
	assert.Equal(t, Payload{Effect: EffectShield, V0: 3, V1: 10}, ResolvedPayload(def, 7))
	assert.Equal(t, Payload{Effect: EffectShield, V0: 1, V1: 10}, ResolvedPayload(def, 0))
	assert.Equal(t, EffectNone, ResolvedPayload(Definition{}, 1).Effect)
}

func TestIsUnlocked(t *testing.T) {
	def := Definition{
		UnlockDistance: 100,
		Dependencies:   []Dependency{{ID: "magnet", MinTier: 2}},
	}
	owned := map[string]int{"magnet": 1}
	lookup := func(id string) int { return owned[id] }

	assert.False(t, IsUnlocked(def, 99, lookup))
	assert.False(t, IsUnlocked(def, 100, lookup))

	owned["magnet"] = 2
	assert.True(t, IsUnlocked(def, 100, lookup))
	assert.False(t, IsUnlocked(def, 100, nil))
}
