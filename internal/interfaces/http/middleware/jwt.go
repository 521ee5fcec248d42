package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/apibase/backend/internal/infrastructure/auth"
	"github.com/apibase/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Bearer auth context keys and header constants.
const (
	AuthClaimsKey   = "auth_claims"
	AuthSubjectKey  = "auth_subject"
	AuthUsernameKey = "auth_username"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// BearerAuthConfig holds configuration for the bearer token middleware
type BearerAuthConfig struct {
	// TokenService validates incoming tokens
	TokenService *auth.TokenService
	// SkipPaths are exact paths that bypass authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that bypass authentication
	SkipPathPrefixes []string
	// OnError overrides the default 401 response
	OnError func(c *gin.Context, err error)
	// Logger for authentication failures
	Logger *zap.Logger
}

// DefaultBearerAuthConfig returns a bearer auth configuration that leaves
// health and documentation endpoints open.
func DefaultBearerAuthConfig(tokenService *auth.TokenService) BearerAuthConfig {
	return BearerAuthConfig{
		TokenService: tokenService,
		SkipPaths: []string{
			"/",
			"/health",
		},
		SkipPathPrefixes: []string{
			"/swagger",
		},
	}
}

// BearerAuth creates bearer token authentication middleware
func BearerAuth(tokenService *auth.TokenService) gin.HandlerFunc {
	return BearerAuthWithConfig(DefaultBearerAuthConfig(tokenService))
}

// BearerAuthWithConfig creates bearer token authentication middleware with
// custom configuration. Validated claims are stored in the gin context.
func BearerAuthWithConfig(cfg BearerAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		open := slices.Contains(cfg.SkipPaths, path) ||
			slices.ContainsFunc(cfg.SkipPathPrefixes, func(p string) bool {
				return strings.HasPrefix(path, p)
			})
		if open {
			c.Next()
			return
		}

		token, err := extractBearerToken(c)
		if err != nil {
			handleAuthError(c, cfg, err, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.TokenService.Validate(token)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		setAuthContext(c, claims)
		c.Next()
	}
}

// OptionalBearerAuth extracts claims when a valid token is present but never
// rejects the request.
func OptionalBearerAuth(tokenService *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c)
		if err != nil {
			c.Next()
			return
		}

		claims, err := tokenService.Validate(token)
		if err != nil {
			c.Next()
			return
		}

		setAuthContext(c, claims)
		c.Next()
	}
}

// extractBearerToken pulls the token out of the Authorization header
func extractBearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" {
		return "", auth.ErrInvalidToken
	}
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", auth.ErrInvalidToken
	}
	token := strings.TrimPrefix(authHeader, BearerPrefix)
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

// setAuthContext stores validated claims in the gin context for handlers
func setAuthContext(c *gin.Context, claims *auth.Claims) {
	c.Set(AuthClaimsKey, claims)
	c.Set(AuthSubjectKey, claims.Subject)
	c.Set(AuthUsernameKey, claims.Username)
}

// handleAuthError writes the 401 response for a failed authentication
func handleAuthError(c *gin.Context, cfg BearerAuthConfig, err error, message string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("Authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code := dto.ErrCodeUnauthorized
	errMessage := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		errMessage = "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code = dto.ErrCodeTokenInvalid
		errMessage = "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingSubject), errors.Is(err, auth.ErrInvalidClaims):
		code = dto.ErrCodeTokenInvalid
		errMessage = "Invalid token claims"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
		code, errMessage, RequestIDFromContext(c)))
}

// GetClaims retrieves validated token claims from the gin context
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(AuthClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetSubject retrieves the authenticated subject from the gin context
func GetSubject(c *gin.Context) string {
	return c.GetString(AuthSubjectKey)
}

// GetUsername retrieves the authenticated username from the gin context
func GetUsername(c *gin.Context) string {
	return c.GetString(AuthUsernameKey)
}
