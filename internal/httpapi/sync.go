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

const syncAPIVersion = "0.1.0"

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	u, _ := userFromContext(r.Context())
	log := logger.From(r.Context())

	var req model.SyncRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Tool.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_tool", "invalid tool: "+string(req.Tool))
		return
	}
	status := req.Status
	if !status.Valid() {
		status = model.ScanStatusCompleted
	}

	sc := model.Scan{
		UserID:    u.ID,
		Tool:      req.Tool,
		Provider:  strings.TrimSpace(req.Provider),
		Region:    strings.TrimSpace(req.Region),
		Status:    status,
		Summary:   req.Summary,
		Findings:  req.Findings,
		ProjectID: strings.TrimSpace(req.ProjectID),
	}
	if req.Timestamp != nil {
		sc.CreatedAt = req.Timestamp.UTC()
	}

	created, err := s.store.CreateScan(r.Context(), sc)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project_not_found", "project not found")
			return
		}
		log.Error("sync scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to store scan")
		return
	}

	log.Info("scan synced",
		zap.String("scan_id", created.ID),
		zap.String("tool", string(created.Tool)),
		zap.Int("findings", len(created.Findings)),
	)
	writeJSON(w, http.StatusCreated, model.SyncResponse{
		ScanID:       created.ID,
		Message:      "Scan synced successfully",
		DashboardURL: strings.TrimRight(s.cfg.DashboardURL, "/") + "/" + string(created.Tool) + "/" + created.ID,
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Sync endpoint is available",
		"version": syncAPIVersion,
	})
}
