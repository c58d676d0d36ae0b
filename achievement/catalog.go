package achievement

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/xraph/embers/store"
	"github.com/xraph/embers/types"
)

//go:embed default.yaml
var defaultCatalogYAML []byte

// Catalog is an immutable set of definitions ordered by id.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

type fileDefinition struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Description  string       `yaml:"description"`
	SortOrder    int          `yaml:"sort_order"`
	ProgressType ProgressType `yaml:"progress"`
	Target       float64      `yaml:"target"`
	Reward       *int64       `yaml:"reward"`
}

type catalogFile struct {
	Achievements []fileDefinition `yaml:"achievements"`
}

// LoadCatalog decodes and validates a YAML catalog. A missing reward
// defaults to DefaultReward.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("achievement: decode catalog: %w", err)
	}
	defs := make([]Definition, 0, len(f.Achievements))
	for _, fd := range f.Achievements {
		d := Definition{
			ID:           fd.ID,
			Name:         fd.Name,
			Description:  fd.Description,
			SortOrder:    fd.SortOrder,
			ProgressType: fd.ProgressType,
			Target:       fd.Target,
			Reward:       DefaultReward,
		}
		if fd.Reward != nil {
			d.Reward = *fd.Reward
		}
		defs = append(defs, d)
	}
	return NewCatalog(defs...)
}

// DefaultCatalog returns the catalog shipped with the module.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("achievement: embedded catalog is invalid: %v", err))
	}
	return c
}

// NewCatalog validates defs and orders them by id. Negative rewards are
// clamped to 0.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	var errs types.MultiError
	seen := make(map[string]bool, len(defs))
	out := make([]Definition, 0, len(defs))
	for i, d := range defs {
		field := fmt.Sprintf("achievements[%d]", i)
		if !store.ValidKeyPart(d.ID) {
			errs.Addf(field+".id", "id %q must match [a-z0-9_-]+", d.ID)
		}
		if seen[d.ID] {
			errs.Addf(field+".id", "duplicate id %q", d.ID)
		}
		seen[d.ID] = true
		if d.ProgressType == "" {
			errs.Addf(field+".progress", "is required")
		}
		d.Reward = max(d.Reward, 0)
		out = append(out, d)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c := &Catalog{defs: out, index: make(map[string]int, len(out))}
	for i, d := range out {
		c.index[d.ID] = i
	}
	return c, nil
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (Definition, bool) {
	i, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// All returns every definition ordered by id.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }
