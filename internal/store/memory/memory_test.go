package memory

import (
	"context"
	"testing"
	"time"

	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, s *Store, sessionID, key string) model.User {
	t.Helper()
	u, err := s.UpsertUser(context.Background(), model.User{
		SessionID: sessionID,
		Email:     sessionID + "@example.com",
		Name:      "User " + sessionID,
		APIKey:    key,
		Tier:      model.TierTrial,
	})
	require.NoError(t, err)
	return u
}

func TestUpsertUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := createUser(t, s, "sess_1", "iq_key1")
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.TierTrial, first.Tier)
	assert.NotZero(t, first.CreatedAt)

	// Same session, same details: nothing changes.
	again, err := s.UpsertUser(ctx, model.User{SessionID: "sess_1", Email: first.Email, Name: first.Name, APIKey: "iq_other"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "iq_key1", again.APIKey)
	assert.Equal(t, first.UpdatedAt, again.UpdatedAt)

	// Same session, new email: email refreshed, identity kept.
	moved, err := s.UpsertUser(ctx, model.User{SessionID: "sess_1", Email: "new@example.com", Name: first.Name})
	require.NoError(t, err)
	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, "new@example.com", moved.Email)
	assert.Equal(t, "iq_key1", moved.APIKey)

	// Missing session id.
	_, err = s.UpsertUser(ctx, model.User{Email: "x@example.com", APIKey: "iq_x"})
	assert.Error(t, err)

	// Duplicate api key for a different session.
	_, err = s.UpsertUser(ctx, model.User{SessionID: "sess_2", Email: "b@example.com", APIKey: "iq_key1"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestUserLookups(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := createUser(t, s, "sess_1", "iq_key1")

	got, err := s.GetUserBySessionID(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.GetUserByAPIKey(ctx, "iq_key1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.GetUserByEmail(ctx, "SESS_1@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUserBySessionID(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByAPIKey(ctx, "iq_nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nope@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetUserTier_ClearsTrial(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	start := time.Now().UTC()
	end := start.Add(30 * 24 * time.Hour)
	u, err := s.UpsertUser(ctx, model.User{
		SessionID: "sess_1", Email: "a@example.com", APIKey: "iq_a",
		Tier: model.TierTrial, TrialStartedAt: &start, TrialEndsAt: &end,
	})
	require.NoError(t, err)

	updated, err := s.SetUserTier(ctx, u.ID, model.TierTeam)
	require.NoError(t, err)
	assert.Equal(t, model.TierTeam, updated.Tier)
	assert.Nil(t, updated.TrialStartedAt)
	assert.Nil(t, updated.TrialEndsAt)

	_, err = s.SetUserTier(ctx, "missing", model.TierPro)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScans_ScopedToOwner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	alice := createUser(t, s, "alice", "iq_alice")
	bob := createUser(t, s, "bob", "iq_bob")

	sc, err := s.CreateScan(ctx, model.Scan{UserID: alice.ID, Tool: model.ToolVerify, Provider: "aws", Status: model.ScanStatusCompleted})
	require.NoError(t, err)
	assert.NotEmpty(t, sc.ID)
	assert.NotNil(t, sc.Findings)

	_, err = s.GetScan(ctx, bob.ID, sc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteScan(ctx, bob.ID, sc.ID), store.ErrNotFound)

	got, err := s.GetScan(ctx, alice.ID, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "aws", got.Provider)

	list, total, err := s.ListScans(ctx, store.ScanFilter{UserID: bob.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	require.NoError(t, s.DeleteScan(ctx, alice.ID, sc.ID))
	_, err = s.GetScan(ctx, alice.ID, sc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListScans_FilterAndPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := createUser(t, s, "sess", "iq_key")

	base := time.Now().UTC().Add(-time.Hour)
	tools := []model.ToolID{model.ToolVerify, model.ToolMigrate, model.ToolVerify, model.ToolVerify}
	for i, tool := range tools {
		_, err := s.CreateScan(ctx, model.Scan{
			UserID:    u.ID,
			Tool:      tool,
			Status:    model.ScanStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, total, err := s.ListScans(ctx, store.ScanFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 4)
	assert.True(t, all[0].CreatedAt.After(all[3].CreatedAt))

	verify, total, err := s.ListScans(ctx, store.ScanFilter{UserID: u.ID, Tool: model.ToolVerify, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, verify, 2)

	recent, _, err := s.ListScans(ctx, store.ScanFilter{UserID: u.ID, Since: base.Add(150 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	past, total, err := s.ListScans(ctx, store.ScanFilter{UserID: u.ID, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, past)
}

func TestProjects(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u := createUser(t, s, "sess", "iq_key")
	other := createUser(t, s, "other", "iq_other")

	p, err := s.CreateProject(ctx, model.Project{UserID: u.ID, Name: "  prod  ", Description: "production"})
	require.NoError(t, err)
	assert.Equal(t, "prod", p.Name)

	_, err = s.CreateProject(ctx, model.Project{UserID: u.ID, Name: " "})
	assert.Error(t, err)

	name := "production"
	updated, err := s.UpdateProject(ctx, u.ID, p.ID, store.ProjectUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "production", updated.Name)
	assert.Equal(t, "production", updated.Description)

	_, err = s.UpdateProject(ctx, other.ID, p.ID, store.ProjectUpdate{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)

	sc, err := s.CreateScan(ctx, model.Scan{UserID: u.ID, Tool: model.ToolVerify, Status: model.ScanStatusCompleted, ProjectID: p.ID})
	require.NoError(t, err)

	_, err = s.CreateScan(ctx, model.Scan{UserID: other.ID, Tool: model.ToolVerify, Status: model.ScanStatusCompleted, ProjectID: p.ID})
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListProjects(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteProject(ctx, u.ID, p.ID))
	_, err = s.GetProject(ctx, u.ID, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	detached, err := s.GetScan(ctx, u.ID, sc.ID)
	require.NoError(t, err)
	assert.Empty(t, detached.ProjectID)
}
