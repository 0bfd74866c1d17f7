package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

func (s *Store) CreateProject(_ context.Context, p model.Project) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return model.Project{}, errors.New("name_required")
	}
	if _, ok := s.users[p.UserID]; !ok {
		return model.Project{}, errors.New("user_id_required")
	}

	now := time.Now().UTC()
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) ListProjects(_ context.Context, userID string) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Project, 0)
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetProject(_ context.Context, userID, id string) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.UserID != userID {
		return model.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdateProject(_ context.Context, userID, id string, upd store.ProjectUpdate) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.UserID != userID {
		return model.Project{}, store.ErrNotFound
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return model.Project{}, errors.New("name_required")
		}
		p.Name = name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	p.UpdatedAt = time.Now().UTC()
	s.projects[id] = p
	return p, nil
}

func (s *Store) DeleteProject(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.projects, id)
	for sid, sc := range s.scans {
		if sc.ProjectID == id {
			sc.ProjectID = ""
			s.scans[sid] = sc
		}
	}
	return nil
}
