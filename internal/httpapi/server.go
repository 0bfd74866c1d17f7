// Package httpapi is the backend API. It owns users, scans and projects and
// authorizes every call by API key.
package httpapi

import (
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"infraiq/platform/internal/config"
	"infraiq/platform/internal/metrics"
	"infraiq/platform/internal/store"
	"infraiq/platform/internal/tier"
)

type Server struct {
	cfg     config.API
	store   store.Store
	catalog *tier.Catalog
	log     *zap.Logger
	mux     *http.ServeMux
	// keys caches api key -> model.User lookups for cfg.KeyCacheTTL.
	keys *gocache.Cache
	now  func() time.Time
}

func NewServer(cfg config.API, st store.Store, catalog *tier.Catalog, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.KeyCacheTTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s := &Server{
		cfg:     cfg,
		store:   st,
		catalog: catalog,
		log:     log,
		mux:     http.NewServeMux(),
		keys:    gocache.New(ttl, time.Minute),
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.authMiddleware(h)
	h = recoverMiddleware(h)
	h = loggingMiddleware(s.log, h)
	h = requestIDMiddleware(h)
	h = metrics.Middleware("api", h)
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	if mh, err := metrics.Register(nil); err == nil {
		s.mux.Handle("/metrics", mh)
	} else {
		s.log.Warn("metrics disabled", zap.Error(err))
	}

	s.mux.HandleFunc("/api/users/me", s.handleUsersMe)

	s.mux.HandleFunc("/api/scans", s.handleScans)
	s.mux.HandleFunc("/api/scans/{id}", s.handleScan)

	s.mux.HandleFunc("/api/sync", s.handleSync)
	s.mux.HandleFunc("/api/sync/status", s.handleSyncStatus)

	s.mux.HandleFunc("/api/dashboard/stats", s.handleDashboardStats)
	s.mux.HandleFunc("/api/dashboard/recommendations", s.handleRecommendations)

	s.mux.HandleFunc("/api/projects", s.handleProjects)
	s.mux.HandleFunc("/api/projects/{id}", s.handleProject)

	s.mux.HandleFunc("/api/license/update", s.handleLicenseUpdate)
	s.mux.HandleFunc("/api/license/status", s.handleLicenseStatus)
}
