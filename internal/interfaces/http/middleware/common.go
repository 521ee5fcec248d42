// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Request ID propagation keys.
const (
	// HeaderRequestID is the canonical request ID header.
	HeaderRequestID = "X-Request-ID"
	// ContextRequestIDKey is the gin context key set by the RequestID middleware.
	ContextRequestIDKey = "request_id"
)

// RequestIDFromContext returns the request ID set by the RequestID
// middleware, falling back to the incoming header.
func RequestIDFromContext(c *gin.Context) string {
	if id := c.GetString(ContextRequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(HeaderRequestID)
}

// RequestID stamps each request with an identifier, reusing the caller's
// X-Request-ID header when one arrives.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Next()
	}
}

// generateRequestID returns 16 random bytes, hex encoded.
func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand failing is extraordinary; a timestamp still identifies the request
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(bytes)
}

// CORSConfig selects which cross-origin requests receive CORS response
// headers and what those headers say.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig is the policy the CORS middleware starts from.
// AllowOrigins is empty: an unconfigured allowlist rejects all cross-origin
// requests until origins are set via config.toml or environment variables.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID", "Accept", "Origin", "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-ID", "X-Process-Time", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS applies the default cross-origin policy.
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig returns a CORS middleware with custom configuration.
// An empty allowlist leaves every response without CORS headers, and a "*"
// entry allows any origin. Preflight requests are always answered with 204
// so they never surface as 404s; headers are attached only for allowed
// origins.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")

	// resolve maps a request origin to the Access-Control-Allow-Origin
	// value, or "" when the response carries no CORS headers.
	resolve := func(origin string) string {
		switch {
		case len(cfg.AllowOrigins) == 0:
			return ""
		case wildcard:
			return "*"
		case slices.Contains(cfg.AllowOrigins, origin):
			return origin
		}
		return ""
	}

	return func(c *gin.Context) {
		if allowed := resolve(c.Request.Header.Get("Origin")); allowed != "" {
			writeCORSHeaders(c, cfg, allowed)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// writeCORSHeaders attaches the CORS response headers for an allowed origin.
func writeCORSHeaders(c *gin.Context, cfg CORSConfig, allowedOrigin string) {
	h := c.Writer.Header()

	h.Set("Access-Control-Allow-Origin", allowedOrigin)
	// Browsers reject credentialed responses with a wildcard origin.
	if cfg.AllowCredentials && allowedOrigin != "*" {
		h.Set("Access-Control-Allow-Credentials", "true")
	}

	h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))

	if len(cfg.ExposeHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
	}
	if cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
	}
}

// SecurityConfig toggles the browser security headers attached to every
// response.
type SecurityConfig struct {
	// Strict-Transport-Security.
	HSTSEnabled           bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	// Content-Security-Policy.
	CSPEnabled   bool
	CSPDirective string

	// Permissions-Policy.
	PermissionsPolicyEnabled   bool
	PermissionsPolicyDirective string
}

// DefaultSecurityConfig enables everything that works over plain HTTP.
// HSTS stays off until the deployment serves HTTPS end to end.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSEnabled:           false,
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		HSTSPreload:           false,

		CSPEnabled: true,
		// Same-origin everything, inline styles tolerated, no framing.
		CSPDirective: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:; connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'",

		PermissionsPolicyEnabled:   true,
		PermissionsPolicyDirective: "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()",
	}
}

// Secure attaches the default security header set.
func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig adds security headers to responses. The header set is
// fixed per configuration, so it is computed once up front.
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	if cfg.CSPEnabled && cfg.CSPDirective != "" {
		headers["Content-Security-Policy"] = cfg.CSPDirective
	}
	if cfg.PermissionsPolicyEnabled && cfg.PermissionsPolicyDirective != "" {
		headers["Permissions-Policy"] = cfg.PermissionsPolicyDirective
	}
	// Only effective over HTTPS; harmless over HTTP.
	if cfg.HSTSEnabled {
		headers["Strict-Transport-Security"] = hstsValue(cfg)
	}

	return func(c *gin.Context) {
		for name, value := range headers {
			c.Writer.Header().Set(name, value)
		}
		c.Next()
	}
}

// hstsValue renders the Strict-Transport-Security header value.
func hstsValue(cfg SecurityConfig) string {
	v := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
	if cfg.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	if cfg.HSTSPreload {
		v += "; preload"
	}
	return v
}
