package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flexnote/compute-broker/compute"
	"github.com/flexnote/compute-broker/internal/config"
	"github.com/flexnote/compute-broker/internal/errors"
	"github.com/flexnote/compute-broker/provider"
	"github.com/flexnote/compute-broker/provider/providerfake"
	"github.com/flexnote/compute-broker/server"
	"github.com/flexnote/compute-broker/sessions"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	repo    *sessions.InMemoryRepo
	gateway *providerfake.FakeGateway
	handler http.Handler
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:8888")

	repo := sessions.NewInMemoryRepo()
	t.Cleanup(func() { _ = repo.Close() })
	gw := providerfake.NewFakeGateway()

	return &testFixture{
		repo:    repo,
		gateway: gw,
		handler: server.New(config.New(), compute.NewService(repo, gw)),
	}
}

func (f *testFixture) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)

	for _, path := range []string{"/", "/health"} {
		rec := f.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, server.HealthResponse{Status: "healthy", Version: server.Version}, decode[server.HealthResponse](t, rec))
	}

	rec := f.do(t, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesRegistered(t *testing.T) {
	s := server.New(config.New(), compute.NewService(sessions.NewInMemoryRepo(), providerfake.NewFakeGateway()))

	routes := s.Routes()
	require.Contains(t, routes, "POST "+server.RouteComputeSelect)
	require.Contains(t, routes, "DELETE "+server.RouteSession)
	require.Contains(t, routes, "OPTIONS "+server.RouteAPIPreflight)

	routes[0] = "tampered"
	require.NotEqual(t, "tampered", s.Routes()[0])
}

func TestAvailableGPUs(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodGet, "/api/compute/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, providerfake.Catalog, decode[[]provider.GPUType](t, rec))

	f.gateway.FailCatalog = fmt.Errorf("%w: down", errors.ErrProviderUnavailable)
	rec = f.do(t, http.MethodGet, "/api/compute/gpu-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, provider.FallbackGPUTypes(), decode[[]provider.GPUType](t, rec))
}

func TestSelectComputeAndSessionLifecycle(t *testing.T) {
	f := setupTestFixture(t)
	f.gateway.QueueInstanceIDs("inst-001")

	rec := f.do(t, http.MethodPost, "/api/sessions/create?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[server.SessionResponse](t, rec)
	require.Equal(t, "created", created.Status)
	require.NotNil(t, created.UserID)
	require.Equal(t, "user-1", *created.UserID)
	require.Nil(t, created.InstanceID)

	rec = f.do(t, http.MethodPost, "/api/compute/select", server.SelectComputeRequest{
		GPUType: "nvidia-a100-40gb", GPUCount: 1, SessionID: created.SessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	selected := decode[server.SelectComputeResponse](t, rec)
	require.Equal(t, server.SelectComputeResponse{
		SessionID:  created.SessionID,
		InstanceID: "inst-001",
		Status:     "active",
		Message:    "Successfully provisioned nvidia-a100-40gb x1",
	}, selected)

	rec = f.do(t, http.MethodPost, "/api/compute/select", server.SelectComputeRequest{
		GPUType: "nvidia-h100", SessionID: created.SessionID,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decode[server.ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[server.SessionResponse](t, rec)
	require.Equal(t, "active", got.Status)
	require.Equal(t, "inst-001", *got.InstanceID)

	rec = f.do(t, http.MethodGet, "/api/compute/instances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []server.InstanceSummaryResponse{{
		ID: "inst-001", SessionID: created.SessionID, GPUType: "nvidia-a100-40gb", Status: "active",
	}}, decode[[]server.InstanceSummaryResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/compute/instance/inst-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, provider.InstanceRunning, decode[provider.Instance](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/api/compute/instance/inst-001/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Instance stopped successfully", decode[server.MessageResponse](t, rec).Message)

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"inst-001"}, f.gateway.DeleteCalls())

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decode[server.ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectComputeErrors(t *testing.T) {
	f := setupTestFixture(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "malformed body", body: "{not json", status: http.StatusBadRequest},
		{name: "missing gpu type", body: server.SelectComputeRequest{GPUCount: 1}, status: http.StatusBadRequest},
		{name: "unknown gpu type", body: server.SelectComputeRequest{GPUType: "tpu-v5"}, status: http.StatusBadRequest},
		{name: "unknown session", body: server.SelectComputeRequest{GPUType: "nvidia-t4", SessionID: "missing"}, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/compute/select", tt.body)
			require.Equal(t, tt.status, rec.Code)
			resp := decode[server.ErrorResponse](t, rec)
			require.NotEmpty(t, resp.Message)
		})
	}
}

func TestSelectComputeProviderDown(t *testing.T) {
	f := setupTestFixture(t)
	f.gateway.FailProvision = fmt.Errorf("%w: timeout", errors.ErrProviderUnavailable)

	rec := f.do(t, http.MethodPost, "/api/compute/instances", server.SelectComputeRequest{GPUType: "nvidia-t4", UserID: "user-9"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "provider_unavailable", decode[server.ErrorResponse](t, rec).Error)

	s, err := f.repo.GetByUser("user-9")
	require.NoError(t, err)
	require.Equal(t, sessions.StatusProvisioning, s.Status)
}

func TestInstanceNotFound(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodGet, "/api/compute/instance/inst-missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/compute/instance/inst-missing/stop", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestExtendSession(t *testing.T) {
	f := setupTestFixture(t)
	s := f.repo.Create("", time.Hour)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/extend?hours=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Session extended by 3 hours", decode[server.MessageResponse](t, rec).Message)

	got, err := f.repo.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, s.ExpiresAt.Add(3*time.Hour), got.ExpiresAt)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/extend", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Session extended by 1 hours", decode[server.MessageResponse](t, rec).Message)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/extend?hours=soon", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions/missing/extend?hours=1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionTTL(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/create?ttl_hours=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	s := decode[server.SessionResponse](t, rec)
	require.Nil(t, s.UserID)
	require.Equal(t, 2*time.Hour, s.ExpiresAt.Sub(s.CreatedAt))

	rec = f.do(t, http.MethodPost, "/api/sessions/create?ttl_hours=-2", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCors(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodOptions, "/api/compute/select", nil,
		"Origin", "http://localhost:8888", "Access-Control-Request-Method", "POST")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://localhost:8888", rec.Header().Get("Access-Control-Allow-Origin"))
	require.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "POST"))

	rec = f.do(t, http.MethodGet, "/api/compute/available", nil, "Origin", "https://evil.example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// tokenCapturingGateway records the caller token seen on provision calls
type tokenCapturingGateway struct {
	*providerfake.FakeGateway
	token string
}

func (g *tokenCapturingGateway) Provision(ctx context.Context, req provider.ProvisionRequest) (provider.Instance, error) {
	g.token, _ = provider.CallerToken(ctx)
	return g.FakeGateway.Provision(ctx, req)
}

func TestCallerTokenForwarded(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	gw := &tokenCapturingGateway{FakeGateway: providerfake.NewFakeGateway()}
	h := server.New(config.New(), compute.NewService(repo, gw))

	body := strings.NewReader(`{"gpu_type":"nvidia-t4","gpu_count":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/compute/select", body)
	req.Header.Set("Authorization", "Bearer notebook-user-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "notebook-user-token", gw.token)
}
