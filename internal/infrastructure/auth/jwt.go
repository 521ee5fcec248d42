package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/apibase/backend/internal/infrastructure/config"
)

// Validation failures map onto these sentinel errors so callers can
// branch with errors.Is without knowing the jwt library's error set.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not valid yet")
	ErrInvalidClaims    = errors.New("token claims are invalid")
	ErrMissingSubject   = errors.New("token subject is missing")
	ErrNoSecret         = errors.New("auth secret is not configured")
)

// Claims is the claim set issued with every token. Applications that
// grow a real identity model extend this struct with their own fields.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// SubjectUUID parses the subject claim back into a UUID.
func (c *Claims) SubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// ExpiresAtTime returns the expiry as a time.Time, zero when unset.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// RemainingTTL reports how long the token stays valid, never negative.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(0, time.Until(c.ExpiresAt.Time))
}

// TokenService issues and validates HMAC-signed bearer tokens.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// Expiration returns the configured token lifetime.
func (s *TokenService) Expiration() time.Duration {
	return s.expiration
}

// Generate issues a signed token for the subject and returns it
// together with its expiry time.
func (s *TokenService) Generate(subject uuid.UUID, username string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}

	now := time.Now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate verifies a token's signature and registered claims and
// returns the claim set. Only HS256 tokens are accepted.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
