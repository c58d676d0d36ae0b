package upgrade

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/xraph/embers/store"
	"github.com/xraph/embers/types"
)

//go:embed default.yaml
var defaultCatalogYAML []byte

// Catalog is an immutable, validated set of upgrade definitions.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

type catalogFile struct {
	Upgrades []Definition `yaml:"upgrades"`
}

// LoadCatalog decodes and validates a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("upgrade: decode catalog: %w", err)
	}
	return NewCatalog(f.Upgrades...)
}

// DefaultCatalog returns the catalog shipped with the module.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("upgrade: embedded catalog is invalid: %v", err))
	}
	return c
}

// NewCatalog validates defs and returns a catalog preserving their order.
// Problems are reported together as a types.MultiError.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]Definition, len(defs)),
		index: make(map[string]int, len(defs)),
	}

	var errs types.MultiError
	for i, d := range defs {
		field := fmt.Sprintf("upgrades[%d]", i)
		if !store.ValidKeyPart(d.ID) {
			errs.Addf(field+".id", "id %q must match [a-z0-9_-]+", d.ID)
		}
		if _, dup := c.index[d.ID]; dup {
			errs.Addf(field+".id", "duplicate id %q", d.ID)
		}
		if d.MaxTier < 1 {
			errs.Addf(field+".max_tier", "must be at least 1, got %d", d.MaxTier)
		}
		if d.CostScale < 1 {
			errs.Addf(field+".cost_scale", "must be at least 1, got %v", d.CostScale)
		}
		if d.BaseCost < 0 {
			errs.Addf(field+".base_cost", "must not be negative, got %d", d.BaseCost)
		}
		if d.Effect == "" {
			d.Effect = EffectNone
		}
		d.Dependencies = append([]Dependency(nil), d.Dependencies...)
		d.V0 = append([]float64(nil), d.V0...)
		d.V1 = append([]float64(nil), d.V1...)
		d.V2 = append([]float64(nil), d.V2...)

		c.defs[i] = d
		c.index[d.ID] = i
	}

	for i, d := range c.defs {
		for j, dep := range d.Dependencies {
			field := fmt.Sprintf("upgrades[%d].dependencies[%d]", i, j)
			target, ok := c.index[dep.ID]
			switch {
			case !ok:
				errs.Addf(field, "unknown upgrade %q", dep.ID)
			case dep.ID == d.ID:
				errs.Addf(field, "upgrade %q depends on itself", d.ID)
			case dep.MinTier < 1 || dep.MinTier > c.defs[target].MaxTier:
				errs.Addf(field, "min_tier %d out of range for %q", dep.MinTier, dep.ID)
			}
		}
	}

	if err := errs.Err(); err != nil {
		return nil, err
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

// All returns every definition in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.defs) }
