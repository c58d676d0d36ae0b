// Package modifier manages optional run modifiers: a one-way unlock bought
// once per prestige cycle, per-modifier toggles, and the multiplier
// composition shared by score and currency.
package modifier

import (
	"context"
	"fmt"
	"math"

	"github.com/xraph/embers/store"
)

// Built-in modifier names.
const (
	Speed   = "speed"
	Hazards = "hazards"
)

// DefaultUnlockCost is the price of unlocking modifiers.
const DefaultUnlockCost = 100

// Definition is one toggleable modifier and the bonus it adds.
type Definition struct {
	Name  string  `json:"name"`
	Bonus float64 `json:"bonus"`
}

// Defaults returns the built-in modifiers.
func Defaults() []Definition {
	return []Definition{
		{Name: Speed, Bonus: 0.25},
		{Name: Hazards, Bonus: 0.5},
	}
}

// Compose applies the fixed composition order used for both score and
// currency: base * (1 + sum(bonuses)) * prestigeMult.
func Compose(base float64, bonuses []float64, prestigeMult float64) float64 {
	sum := 0.0
	for _, b := range bonuses {
		if b > 0 && !math.IsInf(b, 0) {
			sum += b
		}
	}
	if prestigeMult <= 0 || math.IsNaN(prestigeMult) {
		prestigeMult = 1
	}
	return base * (1 + sum) * prestigeMult
}

// Debiter charges for the unlock and writes the staged flag atomically.
type Debiter interface {
	TryDebitWith(ctx context.Context, amount int64, extra *store.Batch) (bool, error)
}

// State is one row of the modifier panel.
type State struct {
	Name  string  `json:"name"`
	Bonus float64 `json:"bonus"`
	On    bool    `json:"on"`
}

// Set holds the modifiers of one save.
type Set struct {
	store      store.Store
	defs       []Definition
	index      map[string]int
	unlockCost int64
}

// New creates a Set. Modifier names must be valid key parts.
func New(s store.Store, unlockCost int64, defs ...Definition) (*Set, error) {
	set := &Set{store: s, unlockCost: unlockCost, index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if !store.ValidKeyPart(d.Name) {
			return nil, fmt.Errorf("modifier: invalid name %q", d.Name)
		}
		if _, dup := set.index[d.Name]; dup {
			return nil, fmt.Errorf("modifier: duplicate name %q", d.Name)
		}
		set.index[d.Name] = len(set.defs)
		set.defs = append(set.defs, d)
	}
	return set, nil
}

// Known reports whether name is a configured modifier.
func (s *Set) Known(name string) bool {
	_, ok := s.index[name]
	return ok
}

// UnlockCost returns the unlock price.
func (s *Set) UnlockCost() int64 { return s.unlockCost }

// Unlocked reports whether modifiers are available this cycle.
func (s *Set) Unlocked(ctx context.Context) (bool, error) {
	v, err := s.store.GetInt(ctx, store.KeyModsUnlocked, 0)
	return v != 0, err
}

// Unlock makes modifiers available, charging once per cycle.
func (s *Set) Unlock(ctx context.Context, debiter Debiter) (bool, error) {
	open, err := s.Unlocked(ctx)
	if err != nil || open {
		return open, err
	}
	return debiter.TryDebitWith(ctx, s.unlockCost, store.NewBatch().SetInt(store.KeyModsUnlocked, 1))
}

// Toggle turns a modifier on or off. It reports false while modifiers are
// locked or for an unknown name.
func (s *Set) Toggle(ctx context.Context, name string, on bool) (bool, error) {
	if !s.Known(name) {
		return false, nil
	}
	open, err := s.Unlocked(ctx)
	if err != nil || !open {
		return false, err
	}
	v := int64(0)
	if on {
		v = 1
	}
	if err := s.store.SetInt(ctx, store.ModifierOnKey(name), v); err != nil {
		return false, err
	}
	return true, nil
}

// States returns every modifier with its toggle. Toggles read as off while
// modifiers are locked.
func (s *Set) States(ctx context.Context) ([]State, error) {
	open, err := s.Unlocked(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]State, 0, len(s.defs))
	for _, d := range s.defs {
		st := State{Name: d.Name, Bonus: d.Bonus}
		if open {
			v, err := s.store.GetInt(ctx, store.ModifierOnKey(d.Name), 0)
			if err != nil {
				return nil, err
			}
			st.On = v != 0
		}
		out = append(out, st)
	}
	return out, nil
}

// Active returns the names of the modifiers that are on.
func (s *Set) Active(ctx context.Context) ([]string, error) {
	states, err := s.States(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, st := range states {
		if st.On {
			names = append(names, st.Name)
		}
	}
	return names, nil
}

// Enabled narrows requested to the modifiers that are unlocked and toggled
// on, once each, in configuration order. Everything else is dropped.
func (s *Set) Enabled(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(requested))
	for _, n := range requested {
		want[n] = true
	}
	var out []string
	for _, n := range active {
		if want[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

// Bonuses returns the bonuses of the named modifiers, once per modifier.
// Unknown names are skipped.
func (s *Set) Bonuses(names []string) []float64 {
	seen := make(map[int]bool, len(names))
	out := make([]float64, 0, len(names))
	for _, n := range names {
		if i, ok := s.index[n]; ok && !seen[i] {
			seen[i] = true
			out = append(out, s.defs[i].Bonus)
		}
	}
	return out
}

// HardMode reports whether every configured modifier is among names.
func (s *Set) HardMode(names []string) bool {
	if len(s.defs) == 0 {
		return false
	}
	on := make(map[string]bool, len(names))
	for _, n := range names {
		on[n] = true
	}
	for _, d := range s.defs {
		if !on[d.Name] {
			return false
		}
	}
	return true
}
