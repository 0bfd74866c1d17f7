package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"infraiq/platform/internal/logger"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

// licenseUpdateRequest is sent by the license server after a purchase.
type licenseUpdateRequest struct {
	Email      string     `json:"email" validate:"required,email"`
	LicenseKey string     `json:"license_key" validate:"required"`
	Tier       model.Tier `json:"tier" validate:"required"`
	ExpiresAt  string     `json:"expires_at,omitempty"`
}

func (s *Server) handleLicenseUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	log := logger.From(r.Context())

	var req licenseUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := s.catalog.Tier(req.Tier); !ok {
		writeError(w, http.StatusBadRequest, "invalid_tier", "unknown tier: "+string(req.Tier))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("license update for unknown user", zap.String("email", email), zap.String("tier", string(req.Tier)))
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "pending",
				"message": "User not found",
				"email":   email,
				"tier":    req.Tier,
			})
			return
		}
		log.Error("license lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to update license")
		return
	}

	updated, err := s.store.SetUserTier(r.Context(), u.ID, req.Tier)
	if err != nil {
		log.Error("set tier failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to update license")
		return
	}
	s.forgetKey(u.APIKey)

	log.Info("license updated",
		zap.String("user_id", u.ID),
		zap.String("previous_tier", string(u.Tier)),
		zap.String("tier", string(updated.Tier)),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "updated",
		"email":         email,
		"tier":          updated.Tier,
		"previous_tier": u.Tier,
		"user_id":       u.ID,
	})
}

func (s *Server) handleLicenseStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email_required", "email is required")
		return
	}

	u, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		logger.From(r.Context()).Error("license status lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to get license status")
		return
	}

	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"email":                u.Email,
		"tier":                 u.Tier,
		"effective_tier":       u.EffectiveTier(now),
		"trial_ends_at":        u.TrialEndsAt,
		"trial_days_remaining": u.TrialDaysRemaining(now),
		"is_active":            !u.TrialExpired(now),
	})
}
