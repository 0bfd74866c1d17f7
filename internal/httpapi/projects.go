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

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type updateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	log := logger.From(r.Context())

	switch r.Method {
	case http.MethodGet:
		projects, err := s.store.ListProjects(r.Context(), u.ID)
		if err != nil {
			log.Error("list projects failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to list projects")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects})

	case http.MethodPost:
		var req createProjectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name_required", "name is required")
			return
		}
		p, err := s.store.CreateProject(r.Context(), model.Project{
			UserID:      u.ID,
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
		})
		if err != nil {
			log.Error("create project failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to create project")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"project": p})

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.PathValue("id"))
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project_id_required", "project ID is required")
		return
	}
	u, _ := userFromContext(r.Context())
	log := logger.From(r.Context())

	fail := func(err error, op string) {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		log.Error(op+" project failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to "+op+" project")
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.store.GetProject(r.Context(), u.ID, projectID)
		if err != nil {
			fail(err, "get")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"project": p})

	case http.MethodPut:
		var req updateProjectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name_required", "name cannot be blank")
			return
		}
		p, err := s.store.UpdateProject(r.Context(), u.ID, projectID, store.ProjectUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			fail(err, "update")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"project": p})

	case http.MethodDelete:
		if err := s.store.DeleteProject(r.Context(), u.ID, projectID); err != nil {
			fail(err, "delete")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": projectID})

	default:
		methodNotAllowed(w)
	}
}
