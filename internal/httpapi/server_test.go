package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khryptorgraphics/taskgate/pkg/condition"
	"github.com/khryptorgraphics/taskgate/pkg/dispatch"
	"github.com/khryptorgraphics/taskgate/pkg/executor"
	"github.com/khryptorgraphics/taskgate/pkg/prioritytree"
)

type syncDispatcher struct{}

func (syncDispatcher) Dispatch(fn func()) { fn() }

func buildPool(t *testing.T) *dispatch.Pool {
	t.Helper()
	h, err := executor.Build([]executor.Spec{{ID: "root", TPSLimit: 0, QueueCapacity: 10}})
	require.NoError(t, err)
	matcher := dispatch.FlatMatcher{Rules: []prioritytree.FlatRule{
		{Name: "always", Condition: condition.AlwaysTrue(), Executor: "root"},
	}}
	return dispatch.NewPool(dispatch.Options{Hierarchy: h, Matcher: matcher, Dispatcher: syncDispatcher{}, Logger: zerolog.Nop()})
}

func TestServer_HealthReportsOK(t *testing.T) {
	srv := NewServer(Config{Pool: buildPool(t), Log: zerolog.Nop()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SubmitAccepted(t *testing.T) {
	srv := NewServer(Config{Pool: buildPool(t), Log: zerolog.Nop()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"request":{"id":"a"}}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskId")
}

func TestServer_SubmitAfterShutdownRejects(t *testing.T) {
	pool := buildPool(t)
	pool.Shutdown()
	srv := NewServer(Config{Pool: pool, Log: zerolog.Nop()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"request":{"id":"a"}}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_SubmitRequiresValidBearerWhenConfigured(t *testing.T) {
	srv := NewServer(Config{Pool: buildPool(t), Log: zerolog.Nop(), JWTSigningKey: "secret"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"request":{"id":"a"}}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_SubmitAcceptsValidBearer(t *testing.T) {
	srv := NewServer(Config{Pool: buildPool(t), Log: zerolog.Nop(), JWTSigningKey: "secret"})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tier": "vip",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"request":{"id":"a"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
