// Package tier holds the subscription tier catalog and the access policy
// derived from it. A Catalog is built once at startup and never mutated.
package tier

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"infraiq/platform/internal/model"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// fallbackTier is required for tools the catalog does not know.
const fallbackTier = model.TierPro

var ErrInvalidCatalog = errors.New("invalid_tier_catalog")

type Tier struct {
	ID          model.Tier     `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Price       string         `yaml:"price" json:"price"`
	Rank        int            `yaml:"rank" json:"rank"`
	Purchasable bool           `yaml:"purchasable" json:"purchasable"`
	Tools       []model.ToolID `yaml:"tools" json:"tools"`
	Features    []string       `yaml:"features" json:"features"`
}

// OnLadder reports whether the tier takes part in price ordering.
func (t Tier) OnLadder() bool { return t.Rank >= 0 }

type Tool struct {
	ID           model.ToolID `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	FullName     string       `yaml:"full_name" json:"full_name"`
	Description  string       `yaml:"description" json:"description"`
	RequiredTier model.Tier   `yaml:"required_tier" json:"required_tier"`
	Features     []string     `yaml:"features" json:"features"`
	CLICommands  []string     `yaml:"cli_commands" json:"cli_commands"`
}

type catalogFile struct {
	Tiers []Tier `yaml:"tiers"`
	Tools []Tool `yaml:"tools"`
}

type Catalog struct {
	tiers    map[model.Tier]Tier
	tools    map[model.ToolID]Tool
	unlocked map[model.Tier]map[model.ToolID]struct{}

	tierOrder []model.Tier
	toolOrder []model.ToolID
	// ladder holds ranked tiers, cheapest first.
	ladder []model.Tier
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedCatalog)
		if err != nil {
			panic("embedded tier catalog: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load reads a catalog override from path, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier catalog: %w", err)
	}
	return Parse(b)
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		tiers:    make(map[model.Tier]Tier, len(f.Tiers)),
		tools:    make(map[model.ToolID]Tool, len(f.Tools)),
		unlocked: make(map[model.Tier]map[model.ToolID]struct{}, len(f.Tiers)),
	}

	for _, tl := range f.Tools {
		if tl.ID == "" || tl.Name == "" {
			return nil, fmt.Errorf("%w: tool without id or name", ErrInvalidCatalog)
		}
		if _, dup := c.tools[tl.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %q", ErrInvalidCatalog, tl.ID)
		}
		c.tools[tl.ID] = tl
		c.toolOrder = append(c.toolOrder, tl.ID)
	}

	ranks := make(map[int]model.Tier)
	for _, t := range f.Tiers {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("%w: tier without id or name", ErrInvalidCatalog)
		}
		if _, dup := c.tiers[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tier %q", ErrInvalidCatalog, t.ID)
		}
		set := make(map[model.ToolID]struct{}, len(t.Tools))
		for _, id := range t.Tools {
			if _, ok := c.tools[id]; !ok {
				return nil, fmt.Errorf("%w: tier %q unlocks unknown tool %q", ErrInvalidCatalog, t.ID, id)
			}
			set[id] = struct{}{}
		}
		if t.OnLadder() {
			if other, taken := ranks[t.Rank]; taken {
				return nil, fmt.Errorf("%w: tiers %q and %q share rank %d", ErrInvalidCatalog, other, t.ID, t.Rank)
			}
			ranks[t.Rank] = t.ID
			c.ladder = append(c.ladder, t.ID)
		}
		c.tiers[t.ID] = t
		c.unlocked[t.ID] = set
		c.tierOrder = append(c.tierOrder, t.ID)
	}

	sort.Slice(c.ladder, func(i, j int) bool {
		return c.tiers[c.ladder[i]].Rank < c.tiers[c.ladder[j]].Rank
	})

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	fb, ok := c.tiers[fallbackTier]
	if !ok || !fb.Purchasable {
		return fmt.Errorf("%w: tier %q must exist and be purchasable", ErrInvalidCatalog, fallbackTier)
	}

	for _, id := range c.toolOrder {
		tl := c.tools[id]
		if _, ok := c.tiers[tl.RequiredTier]; !ok {
			return fmt.Errorf("%w: tool %q requires unknown tier %q", ErrInvalidCatalog, id, tl.RequiredTier)
		}
		if !c.HasAccess(tl.RequiredTier, id) {
			return fmt.Errorf("%w: tool %q not unlocked by its required tier %q", ErrInvalidCatalog, id, tl.RequiredTier)
		}
		if _, ok := c.cheapestUnlocking(id, -1); !ok {
			return fmt.Errorf("%w: tool %q is not unlocked by any purchasable tier", ErrInvalidCatalog, id)
		}
	}

	for i := 1; i < len(c.ladder); i++ {
		lower, upper := c.ladder[i-1], c.ladder[i]
		for tool := range c.unlocked[lower] {
			if !c.HasAccess(upper, tool) {
				return fmt.Errorf("%w: tier %q drops tool %q unlocked by cheaper tier %q", ErrInvalidCatalog, upper, tool, lower)
			}
		}
	}
	return nil
}

// Tier returns a copy of the tier definition.
func (c *Catalog) Tier(id model.Tier) (Tier, bool) {
	t, ok := c.tiers[id]
	if !ok {
		return Tier{}, false
	}
	return cloneTier(t), true
}

// Tool returns a copy of the tool definition.
func (c *Catalog) Tool(id model.ToolID) (Tool, bool) {
	t, ok := c.tools[id]
	if !ok {
		return Tool{}, false
	}
	t.Features = slices.Clone(t.Features)
	t.CLICommands = slices.Clone(t.CLICommands)
	return t, true
}

// Tiers returns every tier in catalog order.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, 0, len(c.tierOrder))
	for _, id := range c.tierOrder {
		out = append(out, cloneTier(c.tiers[id]))
	}
	return out
}

// Tools returns every tool in catalog order.
func (c *Catalog) Tools() []Tool {
	out := make([]Tool, 0, len(c.toolOrder))
	for _, id := range c.toolOrder {
		t, _ := c.Tool(id)
		out = append(out, t)
	}
	return out
}

// Ladder returns ranked tiers, cheapest first.
func (c *Catalog) Ladder() []model.Tier {
	return slices.Clone(c.ladder)
}

func cloneTier(t Tier) Tier {
	t.Tools = slices.Clone(t.Tools)
	t.Features = slices.Clone(t.Features)
	return t
}
