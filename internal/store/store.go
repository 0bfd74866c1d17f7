package store

import (
	"context"
	"errors"
	"time"

	"infraiq/platform/internal/model"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)

type ScanFilter struct {
	UserID string
	Tool   model.ToolID
	// Since keeps scans created at or after this instant when non-zero.
	Since  time.Time
	Limit  int
	Offset int
}

type ProjectUpdate struct {
	Name        *string
	Description *string
}

// Store is owned by the backend API. Every scan and project method is scoped
// to a user id; records of other users behave as missing.
type Store interface {
	// UpsertUser inserts u when its session id is new. For an existing session
	// only email and name are refreshed; id, api key, tier and trial dates are kept.
	UpsertUser(ctx context.Context, u model.User) (model.User, error)
	GetUserBySessionID(ctx context.Context, sessionID string) (model.User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	// SetUserTier changes the tier and clears the trial window.
	SetUserTier(ctx context.Context, userID string, tier model.Tier) (model.User, error)

	CreateScan(ctx context.Context, s model.Scan) (model.Scan, error)
	// ListScans returns a page of scans, newest first, and the total matching the filter.
	ListScans(ctx context.Context, f ScanFilter) ([]model.Scan, int, error)
	GetScan(ctx context.Context, userID, id string) (model.Scan, error)
	DeleteScan(ctx context.Context, userID, id string) error

	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	GetProject(ctx context.Context, userID, id string) (model.Project, error)
	UpdateProject(ctx context.Context, userID, id string, upd ProjectUpdate) (model.Project, error)
	DeleteProject(ctx context.Context, userID, id string) error
}
