// Package cosmetic tracks which player skins are unlocked and which one is
// selected. Skin state is permanent and survives prestige.
package cosmetic

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/xraph/embers/store"
	"github.com/xraph/embers/types"
)

// UnlockType says how a skin becomes available.
type UnlockType string

const (
	UnlockDefault  UnlockType = "default"
	UnlockPrestige UnlockType = "prestige"
	// UnlockPaid skins stay locked; purchasing is handled outside the engine.
	UnlockPaid UnlockType = "paid"
)

// Skin is author-time data for one skin.
type Skin struct {
	ID               string     `yaml:"id" json:"id"`
	Name             string     `yaml:"name" json:"name"`
	Unlock           UnlockType `yaml:"unlock" json:"unlock"`
	PrestigeRequired int        `yaml:"prestige_required" json:"prestige_required,omitempty"`
	PriceText        string     `yaml:"price_text" json:"price_text,omitempty"`
}

// SkinState is one row of the wardrobe.
type SkinState struct {
	Skin     Skin `json:"skin"`
	Unlocked bool `json:"unlocked"`
	Selected bool `json:"selected"`
}

//go:embed skins.yaml
var defaultSkinsYAML []byte

type skinsFile struct {
	Skins []Skin `yaml:"skins"`
}

// LoadSkins decodes a YAML skin list.
func LoadSkins(r io.Reader) ([]Skin, error) {
	var f skinsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("cosmetic: decode skins: %w", err)
	}
	return f.Skins, nil
}

// DefaultSkins returns the skins shipped with the module.
func DefaultSkins() []Skin {
	skins, err := LoadSkins(bytes.NewReader(defaultSkinsYAML))
	if err != nil {
		panic(fmt.Sprintf("cosmetic: embedded skins are invalid: %v", err))
	}
	return skins
}

// Wardrobe manages the skins of one save.
type Wardrobe struct {
	store store.Store
	skins []Skin
	index map[string]int
}

// NewWardrobe validates skins and orders them by id.
func NewWardrobe(s store.Store, skins ...Skin) (*Wardrobe, error) {
	var errs types.MultiError
	sorted := append([]Skin(nil), skins...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	w := &Wardrobe{store: s, skins: sorted, index: make(map[string]int, len(sorted))}
	for i, sk := range sorted {
		field := fmt.Sprintf("skins[%s]", sk.ID)
		if !store.ValidKeyPart(sk.ID) {
			errs.Addf(field+".id", "id %q must match [a-z0-9_-]+", sk.ID)
		}
		if _, dup := w.index[sk.ID]; dup {
			errs.Addf(field+".id", "duplicate id %q", sk.ID)
		}
		switch sk.Unlock {
		case UnlockDefault, UnlockPrestige, UnlockPaid:
		default:
			errs.Addf(field+".unlock", "unknown unlock type %q", sk.Unlock)
		}
		w.index[sk.ID] = i
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns the skin with the given id.
func (w *Wardrobe) Get(id string) (Skin, bool) {
	i, ok := w.index[id]
	if !ok {
		return Skin{}, false
	}
	return w.skins[i], true
}

// IsUnlocked reports whether id can be selected.
func (w *Wardrobe) IsUnlocked(ctx context.Context, id string) (bool, error) {
	sk, ok := w.Get(id)
	if !ok {
		return false, nil
	}
	if sk.Unlock == UnlockDefault {
		return true, nil
	}
	v, err := w.store.GetInt(ctx, store.SkinUnlockedKey(id), 0)
	return v == 1, err
}

// Selected returns the selected skin id, or "" before the first selection.
func (w *Wardrobe) Selected(ctx context.Context) (string, error) {
	return w.store.GetString(ctx, store.KeySkinSelected, "")
}

// EnsureDefaultSelection selects the first default skin, or the first skin,
// when nothing has been selected yet.
func (w *Wardrobe) EnsureDefaultSelection(ctx context.Context) error {
	cur, err := w.Selected(ctx)
	if err != nil || cur != "" || len(w.skins) == 0 {
		return err
	}
	pick := w.skins[0].ID
	for _, sk := range w.skins {
		if sk.Unlock == UnlockDefault {
			pick = sk.ID
			break
		}
	}
	return w.store.SetString(ctx, store.KeySkinSelected, pick)
}

// RefreshFromPrestige permanently unlocks every prestige skin whose
// requirement level meets and returns the newly unlocked ids.
func (w *Wardrobe) RefreshFromPrestige(ctx context.Context, level int) ([]string, error) {
	b := store.NewBatch()
	var unlocked []string
	for _, sk := range w.skins {
		if sk.Unlock != UnlockPrestige || level < sk.PrestigeRequired {
			continue
		}
		done, err := w.IsUnlocked(ctx, sk.ID)
		if err != nil {
			return nil, err
		}
		if !done {
			b.SetInt(store.SkinUnlockedKey(sk.ID), 1)
			unlocked = append(unlocked, sk.ID)
		}
	}
	if b.Len() == 0 {
		return nil, nil
	}
	if err := w.store.Apply(ctx, b); err != nil {
		return nil, err
	}
	return unlocked, nil
}

// Select makes id the active skin if it is unlocked.
func (w *Wardrobe) Select(ctx context.Context, id string) (bool, error) {
	ok, err := w.IsUnlocked(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if err := w.store.SetString(ctx, store.KeySkinSelected, id); err != nil {
		return false, err
	}
	return true, nil
}

// List returns every skin with its state, ordered by id.
func (w *Wardrobe) List(ctx context.Context) ([]SkinState, error) {
	selected, err := w.Selected(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SkinState, 0, len(w.skins))
	for _, sk := range w.skins {
		ok, err := w.IsUnlocked(ctx, sk.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, SkinState{Skin: sk, Unlocked: ok, Selected: sk.ID == selected})
	}
	return out, nil
}
