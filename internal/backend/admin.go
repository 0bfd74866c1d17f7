package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"infraiq/platform/internal/model"
)

const usersMePath = "/api/users/me"

// AdminClient is the only holder of the admin key. It resolves identities and
// has no method that reads user data.
type AdminClient struct {
	conn *Conn
	key  string
}

func NewAdminClient(conn *Conn, adminKey string) (*AdminClient, error) {
	if adminKey == "" {
		return nil, errors.New("backend admin key is required")
	}
	return &AdminClient{conn: conn, key: adminKey}, nil
}

type userPayload struct {
	model.User
	TrialDaysRemaining int `json:"trial_days_remaining" validate:"gte=0"`
}

type upsertUserRequest struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// GetUser looks up a user by session id. ErrNotFound when the backend has none.
func (a *AdminClient) GetUser(ctx context.Context, sessionID string) (model.User, error) {
	var p userPayload
	err := a.conn.do(ctx, call{
		scope:  "admin",
		key:    a.key,
		method: http.MethodGet,
		path:   usersMePath,
		query:  url.Values{"session_id": {sessionID}},
	}, &p)
	if err != nil {
		return model.User{}, err
	}
	if err := checkPayload(usersMePath, &p); err != nil {
		return model.User{}, err
	}
	return p.User, nil
}

func (a *AdminClient) UpsertUser(ctx context.Context, sessionID, email, name string) (model.User, error) {
	var p userPayload
	err := a.conn.do(ctx, call{
		scope:  "admin",
		key:    a.key,
		method: http.MethodPost,
		path:   usersMePath,
		body:   upsertUserRequest{SessionID: sessionID, Email: email, Name: name},
	}, &p)
	if err != nil {
		return model.User{}, err
	}
	if err := checkPayload(usersMePath, &p); err != nil {
		return model.User{}, err
	}
	return p.User, nil
}

// GetOrCreateUser returns the backend user for a session, creating it on first
// sign-in and refreshing email or name when the auth provider reports new ones.
// The upsert is idempotent, so concurrent first requests converge on one user.
func (a *AdminClient) GetOrCreateUser(ctx context.Context, sessionID, email, name string) (model.User, error) {
	u, err := a.GetUser(ctx, sessionID)
	switch {
	case errors.Is(err, ErrNotFound):
		return a.UpsertUser(ctx, sessionID, email, name)
	case err != nil:
		return model.User{}, err
	}
	if !strings.EqualFold(u.Email, strings.TrimSpace(email)) || (name != "" && u.Name != strings.TrimSpace(name)) {
		return a.UpsertUser(ctx, sessionID, email, name)
	}
	return u, nil
}
