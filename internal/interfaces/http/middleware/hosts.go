package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// AllowedHosts returns a middleware that rejects requests whose Host header
// is not in the allowlist. An empty list or a "*" entry allows any host.
// Entries of the form "*.example.com" match any subdomain; matching ignores
// the port and letter case.
func AllowedHosts(hosts []string) gin.HandlerFunc {
	allowAll := len(hosts) == 0
	patterns := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h == "*" {
			allowAll = true
			break
		}
		patterns = append(patterns, strings.ToLower(h))
	}

	if allowAll {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !hostAllowed(c.Request.Host, patterns) {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Invalid host header"))
			return
		}
		c.Next()
	}
}

// hostAllowed reports whether the request host matches any allowlist pattern.
func hostAllowed(requestHost string, patterns []string) bool {
	host := strings.ToLower(requestHost)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return false
	}

	for _, pattern := range patterns {
		if wild, ok := strings.CutPrefix(pattern, "*."); ok {
			// "*.example.com" matches subdomains, not the apex
			if strings.HasSuffix(host, "."+wild) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}
	return false
}
