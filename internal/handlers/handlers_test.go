package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"toolbox/internal/handlers"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRedis implements the minimal Redis client for testing.
type mockRedis struct {
	store map[string]string
	sets  int
}

func (m *mockRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.store[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *mockRedis) Set(_ context.Context, key string, val interface{}, _ time.Duration) error {
	m.sets++
	m.store[key] = val.(string)
	return nil
}

func newApp(h *handlers.Handlers) *fiber.App {
	app := fiber.New()
	app.Get("/health", h.Health)
	app.Get("/ping", h.Ping)
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthHandler_CacheMiss(t *testing.T) {
	m := &mockRedis{store: map[string]string{}}
	app := newApp(handlers.New("toolbox-devapi", m))

	status, body := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","service":"toolbox-devapi"}`, body)
	assert.Equal(t, 1, m.sets)
	assert.Equal(t, body, m.store["health:toolbox-devapi"])
}

func TestHealthHandler_CacheHit(t *testing.T) {
	m := &mockRedis{store: map[string]string{"health:toolbox-devapi": `{"status":"ok","service":"cached"}`}}
	app := newApp(handlers.New("toolbox-devapi", m))

	status, body := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"status":"ok","service":"cached"}`, body)
	assert.Zero(t, m.sets)
}

func TestHealthHandler_NoRedis(t *testing.T) {
	app := newApp(handlers.New("toolbox-devapi", nil))
	status, body := get(t, app, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)
}

func TestHealthHandler_RedisAdapter(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	app := newApp(handlers.New("toolbox-devapi", handlers.NewRedisAdapter(rc)))

	_, first := get(t, app, "/health")
	cached, err := mr.Get("health:toolbox-devapi")
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Greater(t, mr.TTL("health:toolbox-devapi"), time.Duration(0))
}

func TestPingHandler(t *testing.T) {
	app := newApp(handlers.New("toolbox-devapi", nil))
	status, body := get(t, app, "/ping")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"pong"}`, body)
}
