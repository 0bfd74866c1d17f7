package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"infraiq/platform/internal/logger"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

const (
	statsWindow        = 7 * 24 * time.Hour
	maxRecommendations = 5
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	u, _ := userFromContext(r.Context())

	scans, _, err := s.store.ListScans(r.Context(), store.ScanFilter{
		UserID: u.ID,
		Since:  s.now().Add(-statsWindow),
	})
	if err != nil {
		logger.From(r.Context()).Error("list scans for stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, computeStats(scans))
}

// computeStats folds a week of scans into the dashboard counters.
func computeStats(scans []model.Scan) model.DashboardStats {
	st := model.DashboardStats{
		ComplianceStatus: []model.ComplianceStatus{{Framework: "SOC2", Status: "compliant"}},
		ScansThisWeek:    len(scans),
	}
	for _, sc := range scans {
		st.ResourcesMonitored += sc.Summary.ResourcesScanned
		st.IssuesFound += sc.Summary.IssuesFound
		st.CriticalIssues += sc.Summary.Critical
		if sc.Tool == model.ToolMigrate && sc.Status == model.ScanStatusInProgress {
			st.ActiveMigrations++
		}
	}
	st.SecurityScore = securityScore(st.ResourcesMonitored, st.IssuesFound)
	st.SecurityGrade = securityGrade(st.SecurityScore)
	return st
}

func securityScore(resources, issues int) int {
	if resources <= 0 {
		return 100
	}
	score := int((1 - float64(issues)/float64(resources)) * 100)
	return max(0, min(100, score))
}

func securityGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B+"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	default:
		return "D"
	}
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	u, _ := userFromContext(r.Context())

	latest := make(map[model.ToolID]model.Scan, len(model.Tools))
	for _, tool := range model.Tools {
		scans, _, err := s.store.ListScans(r.Context(), store.ScanFilter{UserID: u.ID, Tool: tool, Limit: 1})
		if err != nil {
			logger.From(r.Context()).Error("list scans for recommendations failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to compute recommendations")
			return
		}
		if len(scans) > 0 {
			latest[tool] = scans[0]
		}
	}
	writeJSON(w, http.StatusOK, computeRecommendations(latest))
}

// computeRecommendations flags the latest scan of each tool that still has
// critical findings, in catalog order.
func computeRecommendations(latest map[model.ToolID]model.Scan) []model.Recommendation {
	out := make([]model.Recommendation, 0, maxRecommendations)
	for _, tool := range model.Tools {
		sc, ok := latest[tool]
		if !ok || sc.Summary.Critical <= 0 {
			continue
		}
		out = append(out, model.Recommendation{
			ID:          "critical-" + sc.ID,
			Type:        "security",
			Title:       fmt.Sprintf("%d critical issues in %s", sc.Summary.Critical, tool),
			Description: "These issues need immediate attention",
			Severity:    "critical",
			Tool:        tool,
			ActionURL:   "/" + string(tool) + "/" + sc.ID,
		})
	}
	if len(out) == 0 {
		out = append(out, model.Recommendation{
			ID:          "run-verify",
			Type:        "security",
			Title:       "Run a security scan",
			Description: "Keep your infrastructure secure with regular scans",
			Severity:    "low",
			Tool:        model.ToolVerify,
			ActionURL:   "/verify",
		})
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
