package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	domain "github.com/example/auth-service/domain/user"
	"github.com/example/auth-service/internal/logtest"
	"github.com/example/auth-service/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAuthPort implements auth.AuthPort for testing.
type mockAuthPort struct {
	registerFunc func(ctx context.Context, req auth.RegisterRequest) (*domain.AuthResult, error)
	loginFunc    func(ctx context.Context, req auth.LoginRequest) (*domain.AuthResult, error)
	verifyFunc   func(ctx context.Context, token string) (*domain.AuthResult, error)
}

func (m *mockAuthPort) Register(ctx context.Context, req auth.RegisterRequest) (*domain.AuthResult, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) Login(ctx context.Context, req auth.LoginRequest) (*domain.AuthResult, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) Verify(ctx context.Context, token string) (*domain.AuthResult, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

type stubChecker struct {
	status mono.HealthStatus
	calls  atomic.Int32
}

func (s *stubChecker) Health(_ context.Context) mono.HealthStatus {
	s.calls.Add(1)
	return s.status
}

var ana = domain.PublicUser{ID: "u1", Name: "Ana", Email: "ana@x.com"}

func newTestApp(port auth.AuthPort, opts Options) *fiber.App {
	m := NewModule(opts, logtest.Discard())
	m.authAdapter = port
	return m.newApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func TestHandlers_Register(t *testing.T) {
	var got auth.RegisterRequest
	port := &mockAuthPort{
		registerFunc: func(_ context.Context, req auth.RegisterRequest) (*domain.AuthResult, error) {
			got = req
			return &domain.AuthResult{User: ana, Token: "tok"}, nil
		},
	}
	app := newTestApp(port, Options{})

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`, nil)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, auth.RegisterRequest{Name: "Ana", Email: "ana@x.com", Password: "secret1"}, got)
	assert.Equal(t, "tok", body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ana@x.com", user["email"])
	assert.NotContains(t, user, "password")
}

func TestHandlers_StructuredErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		port       *mockAuthPort
		wantStatus int
		wantMsg    string
	}{
		{
			name: "duplicate registration",
			path: "/api/v1/auth/register",
			body: `{"name":"Ana","email":"ana@x.com","password":"secret1"}`,
			port: &mockAuthPort{
				registerFunc: func(context.Context, auth.RegisterRequest) (*domain.AuthResult, error) {
					return nil, &auth.RPCError{Status: 400, Message: "user already exists"}
				},
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "user already exists",
		},
		{
			name: "wrong password",
			path: "/api/v1/auth/login",
			body: `{"email":"ana@x.com","password":"wrong"}`,
			port: &mockAuthPort{
				loginFunc: func(context.Context, auth.LoginRequest) (*domain.AuthResult, error) {
					return nil, &auth.RPCError{Status: 400, Message: "invalid password"}
				},
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid password",
		},
		{
			name: "invalid token",
			path: "/api/v1/auth/verify",
			body: `{"token":"garbage"}`,
			port: &mockAuthPort{
				verifyFunc: func(context.Context, string) (*domain.AuthResult, error) {
					return nil, &auth.RPCError{Status: 401, Message: "invalid token"}
				},
			},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "invalid token",
		},
		{
			name: "transport failure",
			path: "/api/v1/auth/login",
			body: `{"email":"ana@x.com","password":"secret1"}`,
			port: &mockAuthPort{
				loginFunc: func(context.Context, auth.LoginRequest) (*domain.AuthResult, error) {
					return nil, errors.New("nats: timeout")
				},
			},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "auth service unavailable",
		},
		{
			name:       "malformed body",
			path:       "/api/v1/auth/register",
			body:       `{"name":`,
			port:       &mockAuthPort{},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.port, Options{})
			status, body := doJSON(t, app, http.MethodPost, tt.path, tt.body, nil)

			assert.Equal(t, tt.wantStatus, status)
			errBody := body["error"].(map[string]any)
			assert.Equal(t, float64(tt.wantStatus), errBody["status"])
			assert.Equal(t, tt.wantMsg, errBody["message"])
		})
	}
}

func TestHandlers_VerifyTokenSources(t *testing.T) {
	var seen []string
	port := &mockAuthPort{
		verifyFunc: func(_ context.Context, token string) (*domain.AuthResult, error) {
			seen = append(seen, token)
			return &domain.AuthResult{User: ana, Token: "refreshed"}, nil
		},
	}
	app := newTestApp(port, Options{})

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/verify", `{"token":"from-body"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "refreshed", body["token"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/verify", `"bare-string"`, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/verify", "", map[string]string{
		"Authorization": "Bearer from-header",
	})
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, []string{"from-body", "bare-string", "from-header"}, seen)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken(""))
}

func TestHealthEndpoint(t *testing.T) {
	healthy := &stubChecker{status: mono.HealthStatus{Healthy: true, Message: "operational"}}
	down := &stubChecker{status: mono.HealthStatus{Healthy: false, Message: "credential store ping failed"}}

	app := newTestApp(&mockAuthPort{}, Options{Checkers: map[string]HealthChecker{"auth": healthy}})
	status, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["healthy"])

	app = newTestApp(&mockAuthPort{}, Options{Checkers: map[string]HealthChecker{"auth": healthy, "cache": down}})
	status, body = doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, false, body["healthy"])
	modules := body["modules"].(map[string]any)
	assert.Equal(t, "credential store ping failed", modules["cache"].(map[string]any)["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "auth_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	app := newTestApp(&mockAuthPort{}, Options{Gatherer: reg})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "auth_test_total 1")

	app = newTestApp(&mockAuthPort{}, Options{})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIModule_StartWithoutAuth(t *testing.T) {
	m := NewModule(Options{Addr: ":0"}, logtest.Discard())
	assert.Error(t, m.Start(context.Background()))
	assert.Equal(t, []string{"auth"}, m.Dependencies())
	assert.Equal(t, "api", m.Name())
}
