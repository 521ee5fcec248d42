package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// The handler drains the body so streaming limits surface as read errors.
	newRouter := func(limit int64) *gin.Engine {
		router := gin.New()
		router.Use(BodyLimit(limit))
		router.POST("/upload", func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.String(http.StatusBadRequest, "short read")
				return
			}
			c.String(http.StatusOK, "ok")
		})
		router.GET("/items", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("accepts a body under the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small body"))
		newRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("refuses a declared oversized body up front", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = 200
		newRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_PAYLOAD_TOO_LARGE")
		assert.NotContains(t, w.Body.String(), "ok")
	})

	t.Run("caps a body with no declared length", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 100)))
		// Chunked upload: the limit only kicks in while reading.
		req.ContentLength = -1
		newRouter(50).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "short read")
	})

	t.Run("passes bodyless requests through", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		newRouter(10).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
