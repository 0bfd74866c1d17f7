package config

import (
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings for every process this repository ships. Each
// subcommand reads only the sections it needs.
type Config struct {
	Log       Log       `envPrefix:"LOG_"`
	API       API       `envPrefix:"API_"`
	Database  Database  `envPrefix:"DATABASE_"`
	Dashboard Dashboard `envPrefix:"DASHBOARD_"`
	Backend   Backend   `envPrefix:"BACKEND_"`
	Session   Session   `envPrefix:"SESSION_"`
	Sync      Sync      `envPrefix:"SYNC_"`
}

type Log struct {
	Level string `env:"LEVEL" envDefault:"info"`
	// Env is "dev" for console output or "prod" for JSON.
	Env string `env:"ENV" envDefault:"dev"`
}

// API configures the backend service that owns users and scans.
type API struct {
	Port string `env:"PORT" envDefault:"8000"`
	// AdminKey authorizes identity lookups only.
	AdminKey string `env:"ADMIN_KEY"`
	// InternalServiceKey authorizes license updates from the license server.
	InternalServiceKey string        `env:"INTERNAL_SERVICE_KEY"`
	KeyCacheTTL        time.Duration `env:"KEY_CACHE_TTL" envDefault:"30s"`
	TrialDays          int           `env:"TRIAL_DAYS" envDefault:"30"`
	DashboardURL       string        `env:"DASHBOARD_URL" envDefault:"http://localhost:3000"`
}

type Database struct {
	// URL selects the postgres store. An empty value runs on the in-memory store.
	URL string `env:"URL"`
}

// Dashboard configures the gateway the browser talks to.
type Dashboard struct {
	Port            string `env:"PORT" envDefault:"3000"`
	TierCatalogPath string `env:"TIER_CATALOG_PATH"`
	RecentScanLimit int    `env:"RECENT_SCAN_LIMIT" envDefault:"10"`
}

// Backend is how the dashboard reaches the backend API.
type Backend struct {
	URL      string        `env:"URL" envDefault:"http://localhost:8000"`
	AdminKey string        `env:"ADMIN_KEY"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type Session struct {
	// Secret verifies HS256 session tokens issued by the auth provider. It has
	// no default; the dashboard refuses to start without one.
	Secret     string `env:"SECRET"`
	CookieName string `env:"COOKIE_NAME" envDefault:"__session"`
}

// Sync configures the `sync` command that pushes CLI scan results.
type Sync struct {
	APIKey string `env:"API_KEY"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func (a API) ListenAddr() string {
	return net.JoinHostPort("", a.Port)
}

func (d Dashboard) ListenAddr() string {
	return net.JoinHostPort("", d.Port)
}
