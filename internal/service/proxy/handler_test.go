package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/railway"
)

// fakeLister returns canned listings and records the token and project.
type fakeLister struct {
	token     string
	projectID string
	err       error
}

func (f *fakeLister) Projects(context.Context) ([]railway.Project, error) {
	return []railway.Project{{ID: "p1", Name: "One"}}, f.err
}

func (f *fakeLister) Services(_ context.Context, projectID string) ([]railway.Service, error) {
	f.projectID = projectID
	path := "/health"

	return []railway.Service{{ID: "s1", Name: "api", HealthCheckURL: &path}, {ID: "s2", Name: "worker"}}, f.err
}

func newTestHandler(lister *fakeLister) *Handler {
	cfg := &config.Proxy{FrontendURL: "http://localhost:5173"}

	return NewHandler(context.Background(), cfg, func(token string) Lister {
		lister.token = token

		return lister
	})
}

func do(h http.Handler, method, path, authorization, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)

	return recorder
}

// TestHandler_Projects forwards the token and lists projects.
func TestHandler_Projects(t *testing.T) {
	t.Parallel()

	lister := new(fakeLister)
	resp := do(newTestHandler(lister), http.MethodPost, "/v1/projects", "Bearer user-token", "")

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "user-token", lister.token)
	require.Equal(t, "http://localhost:5173", resp.Header().Get("Access-Control-Allow-Origin"))
	require.JSONEq(t, `[{"id":"p1","name":"One"}]`, resp.Body.String())
}

// TestHandler_Services lists services with their health check path.
func TestHandler_Services(t *testing.T) {
	t.Parallel()

	lister := new(fakeLister)
	resp := do(newTestHandler(lister), http.MethodPost, "/v1/services", "Bearer user-token", `{"projectId":"p1"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "p1", lister.projectID)
	require.JSONEq(t,
		`[{"id":"s1","name":"api","healthCheckUrl":"/health"},{"id":"s2","name":"worker","healthCheckUrl":null}]`,
		resp.Body.String())

	resp = do(newTestHandler(lister), http.MethodPost, "/v1/services", "Bearer user-token", `{`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(newTestHandler(lister), http.MethodPost, "/v1/services", "Bearer user-token", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

// TestHandler_Errors maps missing tokens to 401 and upstream failures to 500.
func TestHandler_Errors(t *testing.T) {
	t.Parallel()

	h := newTestHandler(new(fakeLister))

	for _, authorization := range []string{"", "Basic abc", "Bearer "} {
		resp := do(h, http.MethodPost, "/v1/projects", authorization, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code, authorization)
		require.JSONEq(t, `{"error":"Unauthorized"}`, resp.Body.String())
	}

	resp := do(newTestHandler(&fakeLister{err: errors.New("railway down")}), http.MethodPost, "/v1/projects", "Bearer t", "")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.JSONEq(t, `{"error":"Internal Server Error"}`, resp.Body.String())
}

// TestHandler_Preflight answers CORS preflight requests.
func TestHandler_Preflight(t *testing.T) {
	t.Parallel()

	resp := do(newTestHandler(new(fakeLister)), http.MethodOptions, "/v1/services", "", "")

	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, "POST, OPTIONS", resp.Header().Get("Access-Control-Allow-Methods"))
	require.Contains(t, resp.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	resp = do(newTestHandler(new(fakeLister)), http.MethodGet, "/v1/projects", "Bearer t", "")
	require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}
