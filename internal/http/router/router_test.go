package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fddhub/internal/events"
	apphttp "fddhub/internal/http"
	"fddhub/platform/config"
	"fddhub/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

type probeModule struct {
	subscribed bool
}

func (m *probeModule) Name() string { return "probe" }

func (m *probeModule) RegisterHandlers(events.Bus) { m.subscribed = true }

func (m *probeModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/probe", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Protected.GET("/probe/private", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Admin.GET("/probe", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newApp(health, cache apphttp.HealthChecker, modules ...apphttp.Module) *apphttp.App {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	return &apphttp.App{
		Config:   &config.Config{JWTAccessSecret: "secret", CORSOrigins: []string{"http://localhost:3000"}},
		Logger:   log,
		Health:   health,
		Cache:    cache,
		EventBus: events.NewInMemoryBus(log),
		Modules:  modules,
	}
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestModulesAreSubscribedAndMounted(t *testing.T) {
	probe := &probeModule{}
	engine := New(newApp(nil, nil, probe))

	assert.True(t, probe.subscribed)
	assert.Equal(t, http.StatusNoContent, get(engine, "/api/v1/probe").Code)
	assert.Equal(t, http.StatusUnauthorized, get(engine, "/api/v1/probe/private").Code)
	assert.Equal(t, http.StatusUnauthorized, get(engine, "/api/v1/admin/probe").Code)
}

func TestHealth(t *testing.T) {
	engine := New(newApp(nil, nil))

	rec := get(engine, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		health apphttp.HealthChecker
		cache  apphttp.HealthChecker
		code   int
		body   string
	}{
		{"db only", pingStub{}, nil, http.StatusOK, `{"database":"ok"}`},
		{"db and redis", pingStub{}, pingStub{}, http.StatusOK, `{"database":"ok","redis":"ok"}`},
		{"db down", pingStub{err: errors.New("down")}, nil, http.StatusServiceUnavailable, `{"database":"unavailable"}`},
		{"redis down", pingStub{}, pingStub{err: errors.New("down")}, http.StatusServiceUnavailable, `{"database":"ok","redis":"unavailable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(New(newApp(tt.health, tt.cache)), "/api/ready")
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
