// Package dashboard is the gateway the dashboard frontend talks to. It
// resolves the signed-in user and forwards reads to the backend API with that
// user's own key.
package dashboard

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"infraiq/platform/internal/backend"
	"infraiq/platform/internal/config"
	"infraiq/platform/internal/metrics"
	"infraiq/platform/internal/session"
	"infraiq/platform/internal/tier"
)

const maxScanLimit = 100

type Server struct {
	cfg      config.Dashboard
	sessions session.Resolver
	admin    *backend.AdminClient
	conn     *backend.Conn
	catalog  *tier.Catalog
	log      *zap.Logger
	mux      *http.ServeMux
	now      func() time.Time
}

func NewServer(cfg config.Dashboard, sessions session.Resolver, admin *backend.AdminClient, conn *backend.Conn, catalog *tier.Catalog, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RecentScanLimit <= 0 || cfg.RecentScanLimit > maxScanLimit {
		cfg.RecentScanLimit = 10
	}
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		admin:    admin,
		conn:     conn,
		catalog:  catalog,
		log:      log,
		mux:      http.NewServeMux(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoverMiddleware(h)
	h = loggingMiddleware(s.log, h)
	h = requestIDMiddleware(h)
	h = metrics.Middleware("dashboard", h)
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if mh, err := metrics.Register(nil); err == nil {
		s.mux.Handle("GET /metrics", mh)
	} else {
		s.log.Warn("metrics disabled", zap.Error(err))
	}

	s.mux.HandleFunc("GET /api/tiers", s.handleTiers)

	s.mux.HandleFunc("GET /api/user/profile", s.withUser(s.handleProfile))
	s.mux.HandleFunc("GET /api/user/stats", s.withUser(s.handleStats))
	s.mux.HandleFunc("GET /api/user/recommendations", s.withUser(s.handleRecommendations))
	s.mux.HandleFunc("GET /api/user/scans", s.withUser(s.handleScans))
	s.mux.HandleFunc("GET /api/user/scans/{id}", s.withUser(s.handleScan))
	s.mux.HandleFunc("GET /api/user/overview", s.withUser(s.handleOverview))
	s.mux.HandleFunc("GET /api/user/projects", s.withUser(s.handleProjects))
	s.mux.HandleFunc("GET /api/tools/{tool}", s.withUser(s.handleTool))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339Nano),
	})
}
