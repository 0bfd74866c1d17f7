package httpapi

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"infraiq/platform/internal/logger"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339Nano),
	})
}

type upsertUserRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name"`
}

type userResponse struct {
	model.User
	TrialDaysRemaining int `json:"trial_days_remaining"`
}

func (s *Server) newUserResponse(u model.User) userResponse {
	return userResponse{User: u, TrialDaysRemaining: u.TrialDaysRemaining(s.now())}
}

// newAPIKey returns a personal key: the iq_ prefix and 32 random bytes, url-safe.
func newAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return model.APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Server) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	switch r.Method {
	case http.MethodGet:
		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id_required", "session_id is required")
			return
		}
		u, err := s.store.GetUserBySessionID(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "user not found")
				return
			}
			log.Error("get user failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to get user")
			return
		}
		writeJSON(w, http.StatusOK, s.newUserResponse(u))

	case http.MethodPost:
		var req upsertUserRequest
		if !decodeBody(w, r, &req) {
			return
		}

		key, err := newAPIKey()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "failed to generate api key")
			return
		}
		now := s.now()
		trialEnds := now.Add(time.Duration(s.cfg.TrialDays) * 24 * time.Hour)

		u, err := s.store.UpsertUser(r.Context(), model.User{
			SessionID:      strings.TrimSpace(req.SessionID),
			Email:          strings.ToLower(strings.TrimSpace(req.Email)),
			Name:           strings.TrimSpace(req.Name),
			APIKey:         key,
			Tier:           model.TierTrial,
			TrialStartedAt: &now,
			TrialEndsAt:    &trialEnds,
		})
		if err != nil {
			log.Error("upsert user failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to upsert user")
			return
		}
		writeJSON(w, http.StatusOK, s.newUserResponse(u))

	default:
		methodNotAllowed(w)
	}
}
