package logger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("logs request with status fields", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		zapLogger := zap.New(core)

		router := gin.New()
		router.Use(GinMiddleware(zapLogger))
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping?q=1", nil)
		router.ServeHTTP(w, req)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "HTTP Request", logs[0].Message)

		fields := logs[0].ContextMap()
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/ping", fields["path"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, "q=1", fields["query"])
	})

	t.Run("stores request-scoped logger in gin and request context", func(t *testing.T) {
		router := gin.New()
		router.Use(GinMiddleware(zap.NewNop()))
		router.GET("/check", func(c *gin.Context) {
			assert.NotNil(t, GetGinLogger(c))
			// Downstream code reaches the logger through the request context
			assert.NotNil(t, FromContext(c.Request.Context()))
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/check", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("warns on client errors and errors on server errors", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		zapLogger := zap.New(core)

		router := gin.New()
		router.Use(GinMiddleware(zapLogger))
		router.GET("/missing", func(c *gin.Context) {
			c.Status(http.StatusNotFound)
		})
		router.GET("/broken", func(c *gin.Context) {
			c.Status(http.StatusInternalServerError)
		})

		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
		req = httptest.NewRequest(http.MethodGet, "/broken", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		logs := recorded.All()
		require.Len(t, logs, 2)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("recovers from panic with JSON error body", func(t *testing.T) {
		core, recorded := observer.New(zapcore.ErrorLevel)
		zapLogger := zap.New(core)

		router := gin.New()
		router.Use(Recovery(zapLogger))
		router.GET("/panic", func(c *gin.Context) {
			panic("boom")
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		errObj, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ERR_INTERNAL", errObj["code"])

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "Panic recovered", logs[0].Message)
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(zap.NewNop()))
		router.GET("/ok", func(c *gin.Context) {
			c.String(http.StatusOK, "fine")
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "fine", w.Body.String())
	})
}

func TestGetGinLogger_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	log := GetGinLogger(c)
	assert.NotNil(t, log)
}
