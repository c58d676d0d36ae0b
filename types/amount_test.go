package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountString(t *testing.T) {
	tests := []struct {
		amount  Amount
		display string
	}{
		{0, "0"},
		{25, "25"},
		{12345, "12,345"},
		{2_000_000_000, "2,000,000,000"},
		{-1500, "-1,500"},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			assert.Equal(t, tt.display, tt.amount.String())
		})
	}
}

func TestAmountScale(t *testing.T) {
	tests := []struct {
		name string
		base Amount
		mult Multiplier
		want Amount
	}{
		{"identity", 10, One, 10},
		{"rounds half away from zero", 5, 1.5, 8},
		{"rounds down", 3, 1.1, 3},
		{"never rounds positive to zero", 1, 0.1, 1},
		{"zero base", 0, 2, 0},
		{"negative base", -4, 2, 0},
		{"prestige 2", 100, 2.25, 225},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.base.Scale(tt.mult))
		})
	}
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(Amount(1234))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":1234,"display":"1,234"}`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, Amount(1234), a)

	require.NoError(t, json.Unmarshal([]byte(`77`), &a))
	assert.Equal(t, Amount(77), a)
}

func TestMultiplierString(t *testing.T) {
	assert.Equal(t, "x1", One.String())
	assert.Equal(t, "x2.25", Multiplier(2.25).String())
}
