package api

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3" // SQLite driver for testing
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamgate/pkg/audit"
	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/config"
	"github.com/platinummonkey/teamgate/pkg/gate"
	"github.com/platinummonkey/teamgate/pkg/messaging"
	"github.com/platinummonkey/teamgate/pkg/messaging/messagingtest"
	"github.com/platinummonkey/teamgate/pkg/messaging/msteams"
	"github.com/platinummonkey/teamgate/pkg/messaging/telegram"
	"github.com/platinummonkey/teamgate/pkg/middleware"
	"github.com/platinummonkey/teamgate/pkg/observability"
	"github.com/platinummonkey/teamgate/pkg/orgs"
	"github.com/platinummonkey/teamgate/pkg/rbac"
	"github.com/platinummonkey/teamgate/pkg/verification"
)

const orgsSchema = `
CREATE TABLE organizations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	public_primary_key TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	slug TEXT NOT NULL,
	stack_slug TEXT,
	is_resolution_note_required BOOLEAN NOT NULL DEFAULT 0,
	settings TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// tokenTable maps bearer tokens to users
type tokenTable map[string]*auth.User

func (t tokenTable) ValidateToken(ctx context.Context, token string) (*auth.AuthContext, error) {
	user, ok := t[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.AuthContext{User: user}, nil
}

type testEnv struct {
	server    *Server
	org       *orgs.Organization
	orgs      *orgs.PostgresService
	flags     *config.Flags
	metrics   *observability.Metrics
	registry  *prometheus.Registry
	backend   *messagingtest.Backend
	redis     *miniredis.Miniredis
	codes     *verification.Store
	auditLog  *bytes.Buffer
	appLog    *bytes.Buffer
	tokens    tokenTable
	limitHour int
}

type envOption func(*testEnv)

func withRateLimit(perHour int) envOption {
	return func(e *testEnv) { e.limitHour = perHour }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		flags:    config.NewFlags(config.FeaturesConfig{}),
		registry: prometheus.NewRegistry(),
		backend:  messagingtest.New("the-code"),
		auditLog: &bytes.Buffer{},
		appLog:   &bytes.Buffer{},
	}
	for _, opt := range opts {
		opt(env)
	}
	env.metrics = observability.NewMetrics(env.registry)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(orgsSchema)
	require.NoError(t, err)
	env.orgs = orgs.NewPostgresService(db)

	env.org = &orgs.Organization{Name: "Acme Corp", StackSlug: "acme"}
	require.NoError(t, env.orgs.CreateOrganization(ctx, env.org))
	other := &orgs.Organization{Name: "Other Corp"}
	require.NoError(t, env.orgs.CreateOrganization(ctx, other))

	env.tokens = tokenTable{
		"admin-token":  {ID: 1, OrganizationID: env.org.ID, Username: "admin", Role: auth.RoleAdmin, IsActive: true},
		"editor-token": {ID: 2, OrganizationID: env.org.ID, Username: "editor", Role: auth.RoleEditor, IsActive: true},
		"viewer-token": {ID: 3, OrganizationID: env.org.ID, Username: "viewer", Role: auth.RoleViewer, IsActive: true},
		"norole-token": {ID: 4, OrganizationID: env.org.ID, Username: "norole", Role: auth.RoleUnknown, IsActive: true},
		"other-token":  {ID: 5, OrganizationID: other.ID, Username: "other", Role: auth.RoleAdmin, IsActive: true},
		"orphan-token": {ID: 6, OrganizationID: 999, Username: "orphan", Role: auth.RoleAdmin, IsActive: true},
	}

	env.redis, err = miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(env.redis.Close)
	rdb := redis.NewClient(&redis.Options{Addr: env.redis.Addr()})
	t.Cleanup(func() { rdb.Close() })
	env.codes = verification.NewStore(rdb, time.Hour)

	msgCfg := config.MessagingConfig{TelegramBotToken: "bot-token", MSTeamsAppID: "app-id"}
	tg := telegram.New(msgCfg, env.codes)
	registry, err := messaging.NewRegistry(
		messaging.Descriptor{DefaultEnabled: true, Backend: tg},
		messaging.Descriptor{DefaultEnabled: true, Backend: env.backend},
		messaging.Descriptor{Backend: msteams.New(msgCfg, env.codes)},
	)
	require.NoError(t, err)

	auditLogger := audit.NewLogrusLogger(env.auditLog)
	g := gate.New(
		rbac.NewEngine(rbac.DefaultActions(), rbac.NewMetrics(env.registry)),
		registry,
		env.flags,
		gate.WithMetrics(env.metrics),
		gate.WithAuditLogger(auditLogger),
	)

	var limiter *middleware.DistributedRateLimiter
	if env.limitHour > 0 {
		limiter = middleware.NewDistributedRateLimiter(rdb, middleware.VerificationRateLimitConfig(env.limitHour), "")
	}

	env.server, err = NewServer(Dependencies{
		Orgs:     env.orgs,
		Gate:     g,
		Registry: registry,
		Telegram: tg,
		Tokens:   env.tokens,
		Limiter:  limiter,
		Metrics:  env.metrics,
		Audit:    auditLogger,
		Logger:   observability.NewLogger(observability.DebugLevel, env.appLog),
	})
	require.NoError(t, err)

	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, DefaultBasePath+path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Dependencies{})
	assert.Error(t, err)
}

func TestServer_RoutesRegistered(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{"GET", DefaultBasePath + "/current_team"},
		{"PUT", DefaultBasePath + "/current_team"},
		{"GET", DefaultBasePath + "/current_team/get_telegram_verification_code"},
		{"GET", DefaultBasePath + "/current_team/get_channel_verification_code"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			var match mux.RouteMatch
			assert.True(t, env.server.Router().Match(req, &match), "route should match")
		})
	}
}

func TestServer_NotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/nope", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())

	rec = env.do(t, "DELETE", "/current_team", "admin-token", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_RequestIDAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", DefaultBasePath+"/current_team", nil)
	req.Header.Set("Authorization", "Bearer viewer-token")
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, env.appLog.String(), `"request_id":"req-42"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		env.metrics.HTTPRequestsTotal.WithLabelValues("GET", DefaultBasePath+"/current_team", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		env.metrics.GateOutcomesTotal.WithLabelValues(string(rbac.ActionOrganizationRead), "proceed")))
}

func TestServer_InvalidTokenIs401(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/current_team", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, env.auditLog.String(), string(audit.EventTypeAuthTokenValidateFail))
}

func TestServer_RejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("PUT", DefaultBasePath+"/current_team", bytes.NewBufferString("name=x"))
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
