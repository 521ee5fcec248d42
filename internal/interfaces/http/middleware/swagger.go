package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apibase/backend/internal/interfaces/http/dto"
)

// SwaggerConfig guards the generated API documentation endpoints.
type SwaggerConfig struct {
	Enabled     bool     // serve documentation at all
	RequireAuth bool     // demand a valid bearer token
	AllowedIPs  []string // plain IPs or CIDR ranges; empty admits everyone
}

// ipAllowlist is the parsed form of SwaggerConfig.AllowedIPs. Malformed
// entries are dropped at parse time instead of failing requests later.
type ipAllowlist struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseAllowlist(entries []string) ipAllowlist {
	var list ipAllowlist
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				list.nets = append(list.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			list.ips = append(list.ips, ip)
		}
	}
	return list
}

func (l ipAllowlist) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SwaggerProtection guards the documentation routes it is mounted on.
// Disabled documentation answers 404 everywhere, an allowlist restricts
// access by client IP, and RequireAuth runs the given auth middleware.
// The checks stack, so a request must clear every configured one.
func SwaggerProtection(cfg SwaggerConfig, authMiddleware gin.HandlerFunc) gin.HandlerFunc {
	allowlist := parseAllowlist(cfg.AllowedIPs)
	restricted := len(cfg.AllowedIPs) > 0

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponse(dto.ErrCodeNotFound, "API documentation is not available"))
			return
		}

		if restricted && !allowlist.contains(clientAddr(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Access to API documentation is restricted"))
			return
		}

		if cfg.RequireAuth && authMiddleware != nil {
			authMiddleware(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

// clientAddr resolves the caller's IP. Gin's ClientIP accounts for
// trusted proxy headers; the raw remote address is the fallback.
func clientAddr(c *gin.Context) net.IP {
	if ip := net.ParseIP(c.ClientIP()); ip != nil {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}
