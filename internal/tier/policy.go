package tier

import "infraiq/platform/internal/model"

// HasAccess reports whether tier unlocks tool. Unknown tiers unlock nothing.
func (c *Catalog) HasAccess(tier model.Tier, tool model.ToolID) bool {
	set, ok := c.unlocked[tier]
	if !ok {
		return false
	}
	_, ok = set[tool]
	return ok
}

// RequiredTier returns the minimum tier for tool, or pro when the tool is unknown.
func (c *Catalog) RequiredTier(tool model.ToolID) model.Tier {
	if t, ok := c.tools[tool]; ok {
		return t.RequiredTier
	}
	return fallbackTier
}

// UpgradeTier returns the tier to offer a user who wants tool. The result is
// always purchasable and, for a known tool, always unlocks it: a
// non-purchasable requirement (trial, free, beta) is replaced by the cheapest
// purchasable tier at or above it that unlocks the tool, then by the cheapest
// purchasable tier that unlocks it at all. Unknown tools get pro.
func (c *Catalog) UpgradeTier(tool model.ToolID) model.Tier {
	if _, ok := c.tools[tool]; !ok {
		return fallbackTier
	}
	required := c.RequiredTier(tool)
	req := c.tiers[required]
	if req.Purchasable {
		return required
	}
	if id, ok := c.cheapestUnlocking(tool, req.Rank); ok {
		return id
	}
	if id, ok := c.cheapestUnlocking(tool, -1); ok {
		return id
	}
	return fallbackTier
}

// cheapestUnlocking finds the first purchasable ladder tier with rank at
// least minRank that unlocks tool.
func (c *Catalog) cheapestUnlocking(tool model.ToolID, minRank int) (model.Tier, bool) {
	for _, id := range c.ladder {
		t := c.tiers[id]
		if t.Purchasable && t.Rank >= minRank && c.HasAccess(id, tool) {
			return id, true
		}
	}
	return "", false
}

// Gate is the outcome of checking one tier against one tool.
type Gate struct {
	Tool     Tool
	Allowed  bool
	Current  model.Tier
	Required model.Tier
	Upgrade  model.Tier
}

// Check evaluates access to tool for tier. The bool is false when the tool is
// not in the catalog.
func (c *Catalog) Check(current model.Tier, tool model.ToolID) (Gate, bool) {
	t, ok := c.Tool(tool)
	if !ok {
		return Gate{}, false
	}
	g := Gate{
		Tool:     t,
		Current:  current,
		Required: t.RequiredTier,
		Allowed:  c.HasAccess(current, tool),
	}
	if !g.Allowed {
		g.Upgrade = c.UpgradeTier(tool)
	}
	return g, true
}
