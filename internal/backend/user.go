package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"infraiq/platform/internal/model"
)

// UserClient reads and writes data as one user, authorized by that user's
// personal API key.
type UserClient struct {
	conn *Conn
	key  string
}

// NewUserClient returns ErrMissingCredential when apiKey is empty.
func NewUserClient(conn *Conn, apiKey string) (*UserClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredential
	}
	return &UserClient{conn: conn, key: apiKey}, nil
}

// ForUser builds a client for u. A user without a key gets
// ErrMissingCredential and no request is made.
func (c *Conn) ForUser(u model.User) (*UserClient, error) {
	return NewUserClient(c, u.APIKey)
}

func (c *UserClient) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.conn.do(ctx, call{
		scope:  "user",
		key:    c.key,
		method: http.MethodGet,
		path:   path,
		query:  params,
	}, out)
}

// Forward issues a GET for an arbitrary user-scoped backend path and returns
// the raw JSON body.
func (c *UserClient) Forward(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/api/") || path == usersMePath {
		return nil, fmt.Errorf("backend: path %q is not user scoped", path)
	}
	var raw json.RawMessage
	if err := c.get(ctx, path, params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *UserClient) Stats(ctx context.Context) (model.DashboardStats, error) {
	const path = "/api/dashboard/stats"
	var st model.DashboardStats
	if err := c.get(ctx, path, nil, &st); err != nil {
		return model.DashboardStats{}, err
	}
	if err := checkPayload(path, &st); err != nil {
		return model.DashboardStats{}, err
	}
	return st, nil
}

type scanList struct {
	Scans []model.Scan `json:"scans" validate:"dive"`
	Total int          `json:"total" validate:"gte=0"`
}

// ListScans returns the user's newest scans. An empty slice is a valid answer.
func (c *UserClient) ListScans(ctx context.Context, limit int) ([]model.Scan, error) {
	return c.listScans(ctx, url.Values{"limit": {strconv.Itoa(limit)}})
}

// ListToolScans is ListScans restricted to one tool.
func (c *UserClient) ListToolScans(ctx context.Context, tool model.ToolID, limit int) ([]model.Scan, error) {
	return c.listScans(ctx, url.Values{"tool": {string(tool)}, "limit": {strconv.Itoa(limit)}})
}

func (c *UserClient) listScans(ctx context.Context, params url.Values) ([]model.Scan, error) {
	const path = "/api/scans"
	var out scanList
	if err := c.get(ctx, path, params, &out); err != nil {
		return nil, err
	}
	if err := checkPayload(path, &out); err != nil {
		return nil, err
	}
	if out.Scans == nil {
		out.Scans = []model.Scan{}
	}
	return out.Scans, nil
}

func (c *UserClient) GetScan(ctx context.Context, id string) (model.Scan, error) {
	path := "/api/scans/" + url.PathEscape(id)
	var sc model.Scan
	if err := c.get(ctx, path, nil, &sc); err != nil {
		return model.Scan{}, err
	}
	if err := checkPayload(path, &sc); err != nil {
		return model.Scan{}, err
	}
	return sc, nil
}

// Sync pushes one scan result from the CLI.
func (c *UserClient) Sync(ctx context.Context, req model.SyncRequest) (model.SyncResponse, error) {
	const path = "/api/sync"
	var out model.SyncResponse
	err := c.conn.do(ctx, call{
		scope:  "user",
		key:    c.key,
		method: http.MethodPost,
		path:   path,
		body:   req,
	}, &out)
	if err != nil {
		return model.SyncResponse{}, err
	}
	if err := checkPayload(path, &out); err != nil {
		return model.SyncResponse{}, err
	}
	return out, nil
}

type projectList struct {
	Projects []model.Project `json:"projects" validate:"dive"`
}

// ListProjects returns the projects the user created explicitly.
func (c *UserClient) ListProjects(ctx context.Context) ([]model.Project, error) {
	const path = "/api/projects"
	var out projectList
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	if err := checkPayload(path, &out); err != nil {
		return nil, err
	}
	if out.Projects == nil {
		out.Projects = []model.Project{}
	}
	return out.Projects, nil
}
