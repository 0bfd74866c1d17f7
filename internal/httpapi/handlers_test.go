package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"infraiq/platform/internal/config"
	"infraiq/platform/internal/model"
	"infraiq/platform/internal/store/memory"
	"infraiq/platform/internal/tier"
)

const (
	testAdminKey    = "admin-test-key"
	testInternalKey = "internal-test-key"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	cfg := config.API{
		AdminKey:           testAdminKey,
		InternalServiceKey: testInternalKey,
		KeyCacheTTL:        time.Minute,
		TrialDays:          30,
		DashboardURL:       "https://app.example.com",
	}
	s := NewServer(cfg, memory.NewStore(), tier.Default(), zap.NewNop())
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func admin() map[string]string { return map[string]string{apiKeyHeader: testAdminKey} }

func userKey(key string) map[string]string { return map[string]string{apiKeyHeader: key} }

func signUp(t *testing.T, h http.Handler, sessionID, email string) userResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/users/me", map[string]string{
		"session_id": sessionID,
		"email":      email,
		"name":       "Test User",
	}, admin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var u userResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	return u
}

func syncScan(t *testing.T, h http.Handler, key string, req model.SyncRequest) model.SyncResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sync", req, userKey(key))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.SyncResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth_Public(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestUsersMe_UpsertIsIdempotent(t *testing.T) {
	_, h := newTestServer(t)

	first := signUp(t, h, "sess_1", "Dev@Example.com")
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "dev@example.com", first.Email)
	assert.Equal(t, model.TierTrial, first.Tier)
	assert.Regexp(t, `^iq_[A-Za-z0-9_-]{43}$`, first.APIKey)
	assert.Contains(t, []int{29, 30}, first.TrialDaysRemaining)

	second := signUp(t, h, "sess_1", "dev@example.com")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.APIKey, second.APIKey)

	rec := do(t, h, http.MethodGet, "/api/users/me?session_id=sess_1", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	var got userResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, first.ID, got.ID)
}

func TestUsersMe_GetUnknownIsNotFound(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/users/me?session_id=ghost", nil, admin())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/users/me", nil, admin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersMe_RequiresAdminKey(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess_1", "a@example.com")

	rec := do(t, h, http.MethodGet, "/api/users/me?session_id=sess_1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/users/me?session_id=sess_1", nil, userKey(u.APIKey))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersMe_RejectsInvalidBody(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/users/me", map[string]string{"session_id": "s", "email": "not-an-email"}, admin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users/me", map[string]string{"email": "a@example.com"}, admin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserRoutes_RejectAdminKey(t *testing.T) {
	_, h := newTestServer(t)

	for _, path := range []string{"/api/scans", "/api/dashboard/stats", "/api/scans/some-id", "/api/projects"} {
		rec := do(t, h, http.MethodGet, path, nil, admin())
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := do(t, h, http.MethodGet, "/api/scans", nil, userKey("iq_unknown"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/scans", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScans_EmptyListIsNotAnError(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess_1", "a@example.com")

	rec := do(t, h, http.MethodGet, "/api/scans?limit=10", nil, userKey(u.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scans":[],"total":0,"limit":10,"offset":0}`, rec.Body.String())
}

func TestSync_ThenListAndGet(t *testing.T) {
	_, h := newTestServer(t)
	alice := signUp(t, h, "alice", "alice@example.com")
	bob := signUp(t, h, "bob", "bob@example.com")

	resp := syncScan(t, h, alice.APIKey, model.SyncRequest{
		Tool:     model.ToolVerify,
		Provider: "aws",
		Region:   "us-east-1",
		Status:   "bogus",
		Summary:  model.ScanSummary{ResourcesScanned: 50, IssuesFound: 5, Critical: 2},
		Findings: []model.Finding{{ID: "f1", Issue: "public bucket", Severity: "critical"}},
	})
	assert.Equal(t, "https://app.example.com/verify/"+resp.ScanID, resp.DashboardURL)

	rec := do(t, h, http.MethodGet, "/api/scans/"+resp.ScanID, nil, userKey(alice.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	var sc model.Scan
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sc))
	assert.Equal(t, model.ScanStatusCompleted, sc.Status)
	assert.Len(t, sc.Findings, 1)

	rec = do(t, h, http.MethodGet, "/api/scans/"+resp.ScanID, nil, userKey(bob.APIKey))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/scans?tool=verify", nil, userKey(alice.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	var list scanListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, defaultScanLimit, list.Limit)

	rec = do(t, h, http.MethodDelete, "/api/scans/"+resp.ScanID, nil, userKey(alice.APIKey))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/scans/"+resp.ScanID, nil, userKey(alice.APIKey))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSync_AcceptsBearerKey(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess", "a@example.com")

	rec := do(t, h, http.MethodPost, "/api/sync", model.SyncRequest{Tool: model.ToolMigrate, Provider: "heroku"},
		map[string]string{"Authorization": "Bearer " + u.APIKey})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSync_Validation(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess", "a@example.com")

	tests := []struct {
		name string
		body model.SyncRequest
	}{
		{"unknown tool", model.SyncRequest{Tool: "kubeiq", Provider: "aws"}},
		{"missing provider", model.SyncRequest{Tool: model.ToolVerify}},
		{"negative counter", model.SyncRequest{Tool: model.ToolVerify, Provider: "aws", Summary: model.ScanSummary{Critical: -1}}},
		{"bad finding severity", model.SyncRequest{Tool: model.ToolVerify, Provider: "aws", Findings: []model.Finding{{ID: "f", Issue: "x", Severity: "meh"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/sync", tt.body, userKey(u.APIKey))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestScans_QueryValidation(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess", "a@example.com")

	for _, q := range []string{"tool=kubeiq", "limit=0", "limit=101", "limit=abc", "offset=-1"} {
		rec := do(t, h, http.MethodGet, "/api/scans?"+q, nil, userKey(u.APIKey))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestSyncStatus_Public(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/sync/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestDashboardStats_Endpoint(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess", "a@example.com")

	syncScan(t, h, u.APIKey, model.SyncRequest{Tool: model.ToolVerify, Provider: "aws", Summary: model.ScanSummary{ResourcesScanned: 8, IssuesFound: 1}})
	syncScan(t, h, u.APIKey, model.SyncRequest{Tool: model.ToolMigrate, Provider: "heroku", Status: model.ScanStatusInProgress})
	old := time.Now().Add(-10 * 24 * time.Hour)
	syncScan(t, h, u.APIKey, model.SyncRequest{Tool: model.ToolVerify, Provider: "aws", Summary: model.ScanSummary{ResourcesScanned: 1000}, Timestamp: &old})

	rec := do(t, h, http.MethodGet, "/api/dashboard/stats", nil, userKey(u.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)

	var st model.DashboardStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 8, st.ResourcesMonitored)
	assert.Equal(t, 87, st.SecurityScore)
	assert.Equal(t, "B+", st.SecurityGrade)
	assert.Equal(t, 1, st.ActiveMigrations)
	assert.Equal(t, 2, st.ScansThisWeek)
}

func TestComputeStats(t *testing.T) {
	st := computeStats(nil)
	assert.Equal(t, 100, st.SecurityScore)
	assert.Equal(t, "A", st.SecurityGrade)
	assert.Equal(t, 0, st.ScansThisWeek)
	require.Len(t, st.ComplianceStatus, 1)

	tests := []struct {
		resources, issues int
		score             int
		grade             string
	}{
		{10, 0, 100, "A"},
		{16, 1, 93, "A"},
		{8, 1, 87, "B+"},
		{100, 25, 75, "B"},
		{16, 5, 68, "C"},
		{4, 3, 25, "D"},
		{10, 50, 0, "D"},
	}
	for _, tt := range tests {
		st := computeStats([]model.Scan{{Summary: model.ScanSummary{ResourcesScanned: tt.resources, IssuesFound: tt.issues}}})
		assert.Equal(t, tt.score, st.SecurityScore, "%d/%d", tt.issues, tt.resources)
		assert.Equal(t, tt.grade, st.SecurityGrade, "%d/%d", tt.issues, tt.resources)
	}
}

func TestComputeRecommendations(t *testing.T) {
	recs := computeRecommendations(nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-verify", recs[0].ID)

	latest := map[model.ToolID]model.Scan{
		model.ToolComply:  {ID: "c1", Summary: model.ScanSummary{Critical: 3}},
		model.ToolVerify:  {ID: "v1", Summary: model.ScanSummary{Critical: 1}},
		model.ToolMigrate: {ID: "m1"},
	}
	recs = computeRecommendations(latest)
	require.Len(t, recs, 2)
	assert.Equal(t, "critical-v1", recs[0].ID)
	assert.Equal(t, "/verify/v1", recs[0].ActionURL)
	assert.Equal(t, "3 critical issues in comply", recs[1].Title)

	all := map[model.ToolID]model.Scan{}
	for i, tool := range model.Tools {
		all[tool] = model.Scan{ID: string(tool), Summary: model.ScanSummary{Critical: i + 1}}
	}
	assert.Len(t, computeRecommendations(all), maxRecommendations)
}

func TestRecommendations_Endpoint(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess", "a@example.com")
	resp := syncScan(t, h, u.APIKey, model.SyncRequest{Tool: model.ToolCodify, Provider: "aws", Summary: model.ScanSummary{Critical: 4}})

	rec := do(t, h, http.MethodGet, "/api/dashboard/recommendations", nil, userKey(u.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []model.Recommendation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "critical-"+resp.ScanID, recs[0].ID)
}

func TestProjects_CRUD(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess", "a@example.com")
	other := signUp(t, h, "other", "b@example.com")

	rec := do(t, h, http.MethodPost, "/api/projects", map[string]string{"name": "prod", "description": "main account"}, userKey(u.APIKey))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]model.Project
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	id := created["project"].ID

	rec = do(t, h, http.MethodPut, "/api/projects/"+id, map[string]string{"name": "production"}, userKey(u.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"production"`)

	rec = do(t, h, http.MethodGet, "/api/projects/"+id, nil, userKey(other.APIKey))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/projects", map[string]string{"name": ""}, userKey(u.APIKey))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/projects/"+id, nil, userKey(u.APIKey))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/projects/"+id, nil, userKey(u.APIKey))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLicenseUpdate(t *testing.T) {
	_, h := newTestServer(t)
	u := signUp(t, h, "sess", "buyer@example.com")
	internal := map[string]string{internalKeyHeader: testInternalKey}

	body := map[string]string{"email": "BUYER@example.com", "license_key": "lic_123", "tier": "team"}

	rec := do(t, h, http.MethodPost, "/api/license/update", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/license/update", body, admin())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Warm the key cache so the update has to invalidate it.
	rec = do(t, h, http.MethodGet, "/api/scans", nil, userKey(u.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/license/update", body, internal)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"updated"`)
	assert.Contains(t, rec.Body.String(), `"previous_tier":"trial"`)

	rec = do(t, h, http.MethodGet, "/api/users/me?session_id=sess", nil, admin())
	var got userResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, model.TierTeam, got.Tier)
	assert.Nil(t, got.TrialEndsAt)
	assert.Equal(t, 0, got.TrialDaysRemaining)

	rec = do(t, h, http.MethodPost, "/api/license/update", map[string]string{"email": "nobody@example.com", "license_key": "lic", "tier": "pro"}, internal)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = do(t, h, http.MethodPost, "/api/license/update", map[string]string{"email": "buyer@example.com", "license_key": "lic", "tier": "platinum"}, internal)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/license/status?email=buyer@example.com", nil, internal)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tier":"team"`)
}

func TestUserForKey_CachesLookups(t *testing.T) {
	s, h := newTestServer(t)
	u := signUp(t, h, "sess", "a@example.com")

	rec := do(t, h, http.MethodGet, "/api/scans", nil, userKey(u.APIKey))
	require.Equal(t, http.StatusOK, rec.Code)

	cached, ok := s.keys.Get(u.APIKey)
	require.True(t, ok)
	assert.Equal(t, u.ID, cached.(model.User).ID)
}

func TestRecoverMiddleware(t *testing.T) {
	h := recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
