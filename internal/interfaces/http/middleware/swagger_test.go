package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newSwaggerRouter(cfg SwaggerConfig, authMiddleware gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, authMiddleware), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "docs"})
	})
	return router
}

func TestSwaggerProtection_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := newSwaggerRouter(SwaggerConfig{Enabled: false}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	assert.Contains(t, w.Body.String(), "API documentation is not available")
}

func TestSwaggerProtection_Enabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := newSwaggerRouter(SwaggerConfig{Enabled: true}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docs")
}

func TestSwaggerProtection_IPAllowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("allowed IP passes", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"192.0.2.10"},
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		req.RemoteAddr = "192.0.2.10:51234"
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unlisted IP rejected", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"192.0.2.10"},
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		req.RemoteAddr = "198.51.100.7:51234"
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
		assert.Contains(t, w.Body.String(), "restricted")
	})

	t.Run("CIDR range allows contained IPs", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"10.0.0.0/8"},
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		req.RemoteAddr = "10.42.7.3:51234"
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("CIDR range rejects outside IPs", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:    true,
			AllowedIPs: []string{"10.0.0.0/8"},
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		req.RemoteAddr = "172.16.0.1:51234"
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestSwaggerProtection_RequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rejectAll := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
	}
	allowAll := func(c *gin.Context) {
		c.Next()
	}

	t.Run("auth middleware rejection propagates", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:     true,
			RequireAuth: true,
		}, rejectAll)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("auth middleware approval passes through", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:     true,
			RequireAuth: true,
		}, allowAll)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("nil auth middleware is skipped", func(t *testing.T) {
		router := newSwaggerRouter(SwaggerConfig{
			Enabled:     true,
			RequireAuth: true,
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestParseAllowlist(t *testing.T) {
	t.Run("separates IPs and CIDR ranges", func(t *testing.T) {
		list := parseAllowlist([]string{"192.0.2.1", "10.0.0.0/8", "198.51.100.7"})

		assert.Len(t, list.ips, 2)
		assert.Len(t, list.nets, 1)
	})

	t.Run("drops malformed entries", func(t *testing.T) {
		list := parseAllowlist([]string{"not-an-ip", "300.0.0.1", "10.0.0.0/99", "192.0.2.1"})

		assert.Len(t, list.ips, 1)
		assert.Empty(t, list.nets)
	})

	t.Run("empty input parses empty", func(t *testing.T) {
		list := parseAllowlist(nil)

		assert.Empty(t, list.ips)
		assert.Empty(t, list.nets)
	})
}

func TestIPAllowlistContains(t *testing.T) {
	list := parseAllowlist([]string{"192.0.2.1", "10.0.0.0/8"})

	testCases := []struct {
		name     string
		ip       net.IP
		expected bool
	}{
		{"exact IP match", net.ParseIP("192.0.2.1"), true},
		{"IP mismatch", net.ParseIP("192.0.2.2"), false},
		{"inside CIDR", net.ParseIP("10.1.2.3"), true},
		{"outside CIDR", net.ParseIP("172.16.0.1"), false},
		{"nil IP", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, list.contains(tc.ip))
		})
	}
}
