package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

func (s *Store) CreateScan(_ context.Context, sc model.Scan) (model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[sc.UserID]; !ok {
		return model.Scan{}, errors.New("user_id_required")
	}
	if sc.ProjectID != "" {
		p, ok := s.projects[sc.ProjectID]
		if !ok || p.UserID != sc.UserID {
			return model.Scan{}, store.ErrNotFound
		}
	}

	now := time.Now().UTC()
	sc.ID = newID()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now
	if sc.Findings == nil {
		sc.Findings = []model.Finding{}
	}
	s.scans[sc.ID] = sc
	return sc, nil
}

func (s *Store) ListScans(_ context.Context, f store.ScanFilter) ([]model.Scan, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]model.Scan, 0)
	for _, sc := range s.scans {
		if sc.UserID != f.UserID {
			continue
		}
		if f.Tool != "" && sc.Tool != f.Tool {
			continue
		}
		if !f.Since.IsZero() && sc.CreatedAt.Before(f.Since) {
			continue
		}
		matched = append(matched, sc)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return []model.Scan{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *Store) GetScan(_ context.Context, userID, id string) (model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scans[id]
	if !ok || sc.UserID != userID {
		return model.Scan{}, store.ErrNotFound
	}
	return sc, nil
}

func (s *Store) DeleteScan(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scans[id]
	if !ok || sc.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.scans, id)
	return nil
}
