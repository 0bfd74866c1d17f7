package dashboard

import (
	"net/http"

	"go.uber.org/zap"

	"infraiq/platform/internal/logger"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/tier"
)

const toolScanLimit = 5

type toolGranted struct {
	Access      string       `json:"access"`
	Tool        tier.Tool    `json:"tool"`
	CurrentTier model.Tier   `json:"current_tier"`
	Scans       []model.Scan `json:"scans"`
}

type upgradePrompt struct {
	Access       string     `json:"access"`
	Tool         tier.Tool  `json:"tool"`
	CurrentTier  model.Tier `json:"current_tier"`
	RequiredTier model.Tier `json:"required_tier"`
	UpgradeTier  model.Tier `json:"upgrade_tier"`
	UpgradeName  string     `json:"upgrade_tier_name"`
	UpgradePrice string     `json:"upgrade_price"`
}

// handleTool gates a tool page on the user's effective tier. A denied tool is
// a normal response carrying the upgrade offer.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request, u model.User) {
	current := u.EffectiveTier(s.now())
	gate, ok := s.catalog.Check(current, model.ToolID(r.PathValue("tool")))
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if !gate.Allowed {
		up, _ := s.catalog.Tier(gate.Upgrade)
		logger.From(r.Context()).Info("tool gated",
			zap.String("tool", string(gate.Tool.ID)),
			zap.String("tier", string(current)),
			zap.String("upgrade_tier", string(gate.Upgrade)),
		)
		writeJSON(w, http.StatusOK, upgradePrompt{
			Access:       "upgrade_required",
			Tool:         gate.Tool,
			CurrentTier:  current,
			RequiredTier: gate.Required,
			UpgradeTier:  gate.Upgrade,
			UpgradeName:  up.Name,
			UpgradePrice: up.Price,
		})
		return
	}

	uc, err := s.conn.ForUser(u)
	if err != nil {
		s.fail(w, r, err, "tool scans")
		return
	}
	scans, err := uc.ListToolScans(r.Context(), gate.Tool.ID, toolScanLimit)
	if err != nil {
		s.fail(w, r, err, "tool scans")
		return
	}
	writeJSON(w, http.StatusOK, toolGranted{
		Access:      "granted",
		Tool:        gate.Tool,
		CurrentTier: current,
		Scans:       scans,
	})
}

// handleTiers serves the public pricing table. Tiers off the price ladder
// are omitted.
func (s *Server) handleTiers(w http.ResponseWriter, _ *http.Request) {
	ladder := s.catalog.Ladder()
	tiers := make([]tier.Tier, 0, len(ladder))
	for _, id := range ladder {
		if t, ok := s.catalog.Tier(id); ok {
			tiers = append(tiers, t)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tiers": tiers,
		"tools": s.catalog.Tools(),
	})
}
