package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

func (s *Store) UpsertUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := strings.TrimSpace(u.SessionID)
	if sessionID == "" {
		return model.User{}, errors.New("session_id_required")
	}

	now := time.Now().UTC()
	if id, ok := s.bySession[sessionID]; ok {
		existing := s.users[id]
		if existing.Email != u.Email || existing.Name != u.Name {
			existing.Email = u.Email
			existing.Name = u.Name
			existing.UpdatedAt = now
			s.users[id] = existing
		}
		return existing, nil
	}

	if u.APIKey == "" {
		return model.User{}, errors.New("api_key_required")
	}
	if _, taken := s.byAPIKey[u.APIKey]; taken {
		return model.User{}, store.ErrConflict
	}

	u.ID = newID()
	u.SessionID = sessionID
	if u.Tier == "" {
		u.Tier = model.TierTrial
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	s.bySession[sessionID] = u.ID
	s.byAPIKey[u.APIKey] = u.ID
	return u, nil
}

func (s *Store) GetUserBySessionID(_ context.Context, sessionID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySession[sessionID]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByAPIKey(_ context.Context, apiKey string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byAPIKey[apiKey]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (s *Store) SetUserTier(_ context.Context, userID string, tier model.Tier) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	u.Tier = tier
	u.TrialStartedAt = nil
	u.TrialEndsAt = nil
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return u, nil
}
