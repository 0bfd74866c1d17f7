package dashboard

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"infraiq/platform/internal/model"
)

type toolAccess struct {
	ID      model.ToolID `json:"id"`
	Name    string       `json:"name"`
	Allowed bool         `json:"allowed"`
}

type profileResponse struct {
	ID                 string       `json:"id"`
	Email              string       `json:"email"`
	Name               string       `json:"name,omitempty"`
	Tier               model.Tier   `json:"tier"`
	EffectiveTier      model.Tier   `json:"effective_tier"`
	TrialEndsAt        *time.Time   `json:"trial_ends_at,omitempty"`
	TrialDaysRemaining int          `json:"trial_days_remaining"`
	Tools              []toolAccess `json:"tools"`
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request, u model.User) {
	now := s.now()
	effective := u.EffectiveTier(now)

	tools := s.catalog.Tools()
	access := make([]toolAccess, 0, len(tools))
	for _, t := range tools {
		access = append(access, toolAccess{ID: t.ID, Name: t.Name, Allowed: s.catalog.HasAccess(effective, t.ID)})
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Tier:               u.Tier,
		EffectiveTier:      effective,
		TrialEndsAt:        u.TrialEndsAt,
		TrialDaysRemaining: u.TrialDaysRemaining(now),
		Tools:              access,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, u model.User) {
	uc, err := s.conn.ForUser(u)
	if err != nil {
		s.fail(w, r, err, "stats")
		return
	}
	st, err := uc.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleRecommendations passes the backend's recommendation list through
// unchanged.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request, u model.User) {
	uc, err := s.conn.ForUser(u)
	if err != nil {
		s.fail(w, r, err, "recommendations")
		return
	}
	raw, err := uc.Forward(r.Context(), "/api/dashboard/recommendations", nil)
	if err != nil {
		s.fail(w, r, err, "recommendations")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// scanLimit reads ?limit, falling back to the configured default and
// clamping to 1..100.
func (s *Server) scanLimit(r *http.Request) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil {
		return s.cfg.RecentScanLimit
	}
	return max(1, min(maxScanLimit, n))
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request, u model.User) {
	uc, err := s.conn.ForUser(u)
	if err != nil {
		s.fail(w, r, err, "list scans")
		return
	}
	scans, err := uc.ListScans(r.Context(), s.scanLimit(r))
	if err != nil {
		s.fail(w, r, err, "list scans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request, u model.User) {
	uc, err := s.conn.ForUser(u)
	if err != nil {
		s.fail(w, r, err, "get scan")
		return
	}
	sc, err := uc.GetScan(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "get scan")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// widget is one independently loaded panel of the overview page.
type widget[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

type overviewResponse struct {
	Stats       widget[*model.DashboardStats] `json:"stats"`
	RecentScans widget[[]model.Scan]          `json:"recent_scans"`
}

// handleOverview loads stats and recent scans concurrently. A failed widget
// carries its own error; the response fails only when both do.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request, u model.User) {
	uc, err := s.conn.ForUser(u)
	if err != nil {
		s.fail(w, r, err, "overview")
		return
	}

	var (
		resp               overviewResponse
		statsErr, scansErr error
		g                  errgroup.Group
	)
	g.Go(func() error {
		st, err := uc.Stats(r.Context())
		if err != nil {
			statsErr = err
			return nil
		}
		resp.Stats.Data = &st
		return nil
	})
	g.Go(func() error {
		scans, err := uc.ListScans(r.Context(), s.cfg.RecentScanLimit)
		if err != nil {
			scansErr = err
			return nil
		}
		resp.RecentScans.Data = scans
		return nil
	})
	_ = g.Wait()

	if statsErr != nil && scansErr != nil {
		s.fail(w, r, statsErr, "overview")
		return
	}
	if statsErr != nil {
		s.logWidgetError(r, "stats", statsErr)
		_, resp.Stats.Error = statusFor(statsErr)
	}
	if scansErr != nil {
		s.logWidgetError(r, "recent_scans", scansErr)
		_, resp.RecentScans.Error = statusFor(scansErr)
	}
	writeJSON(w, http.StatusOK, resp)
}
