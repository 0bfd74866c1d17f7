package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"infraiq/platform/internal/logger"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"
)

const (
	defaultScanLimit = 20
	maxScanLimit     = 100
)

type scanListResponse struct {
	Scans  []model.Scan `json:"scans"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	u, _ := userFromContext(r.Context())
	q := r.URL.Query()

	f := store.ScanFilter{UserID: u.ID, Limit: defaultScanLimit}

	if v := strings.TrimSpace(q.Get("tool")); v != "" {
		tool := model.ToolID(v)
		if !tool.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_tool", "invalid tool: "+v)
			return
		}
		f.Tool = tool
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxScanLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be zero or more")
			return
		}
		f.Offset = n
	}

	scans, total, err := s.store.ListScans(r.Context(), f)
	if err != nil {
		logger.From(r.Context()).Error("list scans failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to list scans")
		return
	}
	writeJSON(w, http.StatusOK, scanListResponse{Scans: scans, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	scanID := strings.TrimSpace(r.PathValue("id"))
	if scanID == "" {
		writeError(w, http.StatusBadRequest, "scan_id_required", "scan ID is required")
		return
	}
	u, _ := userFromContext(r.Context())
	log := logger.From(r.Context())

	switch r.Method {
	case http.MethodGet:
		sc, err := s.store.GetScan(r.Context(), u.ID, scanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "scan not found")
				return
			}
			log.Error("get scan failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to get scan")
			return
		}
		writeJSON(w, http.StatusOK, sc)

	case http.MethodDelete:
		if err := s.store.DeleteScan(r.Context(), u.ID, scanID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "scan not found")
				return
			}
			log.Error("delete scan failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "failed to delete scan")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": scanID})

	default:
		methodNotAllowed(w)
	}
}
