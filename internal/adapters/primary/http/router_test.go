package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	wsAdapter "github.com/lorrc/service-desk-sla/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/config"
	"github.com/lorrc/service-desk-sla/internal/core/mocks"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/metrics"
)

type stubChecker struct {
	err error
}

func (s stubChecker) Ping(ctx context.Context) error {
	return s.err
}

type testServer struct {
	handler    http.Handler
	tm         *auth.TokenManager
	userID     uuid.UUID
	token      string
	sla        *mocks.MockSLAService
	analytics  *mocks.MockAnalyticsService
	assignment *mocks.MockAssignmentService
	authz      *mocks.MockAuthorizationService
	hub        *wsAdapter.Hub
	metrics    *metrics.Metrics
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Environment = "development"
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.CORS.MaxAge = 300
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.WebSocket.ReadBufferSize = 1024
	cfg.WebSocket.WriteBufferSize = 1024
	cfg.WebSocket.PingInterval = 54 * time.Second
	cfg.WebSocket.PongWait = 60 * time.Second
	return cfg
}

func newTestServer(t *testing.T, checks ...NamedCheck) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()

	ts := &testServer{
		tm:         auth.NewTokenManager("test-secret", time.Hour),
		userID:     uuid.New(),
		sla:        mocks.NewMockSLAService(),
		analytics:  mocks.NewMockAnalyticsService(),
		assignment: mocks.NewMockAssignmentService(),
		authz:      mocks.NewMockAuthorizationService(),
		hub:        wsAdapter.NewHub(logger),
		metrics:    metrics.New(),
	}

	token, err := ts.tm.GenerateToken(ts.userID)
	require.NoError(t, err)
	ts.token = token

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ts.hub.Run(ctx)

	errorHandler := NewErrorHandler(logger)
	ts.handler = NewRouter(RouterDeps{
		Config:       cfg,
		Logger:       logger,
		TokenManager: ts.tm,
		Metrics:      ts.metrics,
		Health:       NewHealthHandler("test", checks...),
		SLA:          NewSLAHandler(ts.sla, errorHandler, logger),
		Analytics:    NewAnalyticsHandler(ts.analytics, errorHandler, logger),
		Assignment:   NewAssignmentHandler(ts.assignment, errorHandler, logger),
		WebSocket:    NewWebSocketHandler(ts.hub, ts.tm, ts.authz, cfg, logger),
	})

	t.Cleanup(func() {
		ts.sla.AssertExpectations(t)
		ts.analytics.AssertExpectations(t)
		ts.assignment.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func TestRouter_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/sla/dashboard", "/api/v1/analytics/agents/workload"} {
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/assignments/sweep", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sla/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.sla.On("Targets", mock.Anything, ts.userID).Return(nil, errors.New("boom")).Once()

	rec := ts.do(t, http.MethodGet, "/api/v1/sla/targets")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	metricsRec := httptest.NewRecorder()
	ts.handler.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metricsRec.Code)

	body := metricsRec.Body.String()
	require.True(t, strings.Contains(body, `servicedesk_http_requests_total{method="GET",route="/api/v1/sla/targets",status="500"} 1`), body)
}
