// Package types provides value types shared across embers packages.
package types

import (
	"encoding/json"
	"math"

	"github.com/dustin/go-humanize"
)

// Amount is a whole number of embers. Currency is integer-only; fractional
// results from multipliers are rounded once, at the point they are earned.
type Amount int64

// Int64 returns the raw count.
func (a Amount) Int64() int64 { return int64(a) }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// String renders the amount with thousands separators: "12,345".
func (a Amount) String() string { return humanize.Comma(int64(a)) }

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount  int64  `json:"amount"`
		Display string `json:"display"`
	}{
		Amount:  int64(a),
		Display: a.String(),
	})
}

// UnmarshalJSON accepts both the object form written by MarshalJSON and a
// bare integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Amount(n)
		return nil
	}
	var obj struct {
		Amount int64 `json:"amount"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*a = Amount(obj.Amount)
	return nil
}

// Scale returns max(1, round(a*m)) for a positive amount and 0 otherwise.
// A positive pickup is never rounded away to nothing.
func (a Amount) Scale(m Multiplier) Amount {
	if a <= 0 {
		return 0
	}
	scaled := math.Round(float64(a) * float64(m))
	if math.IsNaN(scaled) || scaled < 1 {
		return 1
	}
	if scaled > math.MaxInt64/2 {
		return Amount(math.MaxInt64 / 2)
	}
	return Amount(scaled)
}

// Multiplier is a dimensionless factor applied to score or currency.
type Multiplier float64

// One is the identity multiplier.
const One Multiplier = 1

// Float64 returns the raw factor.
func (m Multiplier) Float64() float64 { return float64(m) }

// String renders the factor as "x2.25".
func (m Multiplier) String() string {
	return "x" + humanize.FtoaWithDigits(float64(m), 2)
}
