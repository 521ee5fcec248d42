package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apibase/backend/internal/infrastructure/cache"
	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/apibase/backend/internal/infrastructure/persistence"
	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSystemConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "apibase",
			Version: "0.1.0",
			Env:     "development",
		},
		HTTP: config.HTTPConfig{
			APIPrefix: "/api/v1",
		},
		Swagger: config.SwaggerConfig{
			Enabled: true,
		},
	}
}

// failingCache reports an unreachable backend from Ping.
type failingCache struct {
	cache.Store
}

func (failingCache) Ping(context.Context) error {
	return errors.New("cache down")
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler(testSystemConfig(), persistence.NewDisabled(), nil)
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_Root(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns the fixed shape", func(t *testing.T) {
		h := NewSystemHandler(testSystemConfig(), persistence.NewDisabled(), nil)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.Root(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

		// Exactly these six keys, nothing else.
		assert.Len(t, body, 6)
		assert.Equal(t, "Welcome to apibase", body["message"])
		assert.Equal(t, "0.1.0", body["version"])
		assert.Equal(t, "development", body["environment"])
		assert.Equal(t, "/swagger/index.html", body["docs_url"])
		assert.Equal(t, "/api/v1", body["api_base"])
		assert.Equal(t, "operational", body["status"])
	})

	t.Run("docs url is empty when swagger is disabled", func(t *testing.T) {
		cfg := testSystemConfig()
		cfg.Swagger.Enabled = false
		h := NewSystemHandler(cfg, persistence.NewDisabled(), nil)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.Root(c)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

		// The key stays present so the shape does not change.
		docsURL, ok := body["docs_url"]
		assert.True(t, ok)
		assert.Equal(t, "", docsURL)
	})
}

func TestSystemHandler_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serveHealth := func(t *testing.T, h *SystemHandler) (*httptest.ResponseRecorder, map[string]any) {
		t.Helper()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

		h.Health(c)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w, body
	}

	t.Run("healthy with disabled database", func(t *testing.T) {
		h := NewSystemHandler(testSystemConfig(), persistence.NewDisabled(), nil)

		w, body := serveHealth(t, h)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "disabled", body["database"])
		assert.NotEmpty(t, body["time"])
		assert.NotEmpty(t, body["uptime"])

		// No cache configured, so the key is omitted.
		_, ok := body["cache"]
		assert.False(t, ok)
	})

	t.Run("healthy with reachable database", func(t *testing.T) {
		db, err := persistence.Open(&config.DatabaseConfig{URL: ":memory:"}, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		h := NewSystemHandler(testSystemConfig(), db, nil)

		w, body := serveHealth(t, h)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "ok", body["database"])
	})

	t.Run("unhealthy when database ping fails", func(t *testing.T) {
		db, err := persistence.Open(&config.DatabaseConfig{URL: ":memory:"}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, db.Close())

		h := NewSystemHandler(testSystemConfig(), db, nil)

		w, body := serveHealth(t, h)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, "error", body["database"])
	})

	t.Run("reports cache state", func(t *testing.T) {
		store := cache.NewMemoryStore()
		t.Cleanup(func() { _ = store.Close() })

		h := NewSystemHandler(testSystemConfig(), persistence.NewDisabled(), store)

		w, body := serveHealth(t, h)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "ok", body["cache"])
	})

	t.Run("degraded when cache is unreachable", func(t *testing.T) {
		h := NewSystemHandler(testSystemConfig(), persistence.NewDisabled(), failingCache{})

		w, body := serveHealth(t, h)

		// An unreachable cache degrades the service but keeps it up.
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "error", body["cache"])
	})
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler(testSystemConfig(), persistence.NewDisabled(), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/system/info", nil)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "apibase", data["name"])
	assert.Equal(t, "0.1.0", data["version"])
	assert.Equal(t, "development", data["environment"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler(testSystemConfig(), persistence.NewDisabled(), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/system/ping", nil)

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])

	// The timestamp must parse as RFC3339.
	timestamp := data["timestamp"].(string)
	_, err = time.Parse(time.RFC3339, timestamp)
	assert.NoError(t, err)
}
