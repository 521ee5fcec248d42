package auth

import (
	"testing"
	"time"

	"github.com/apibase/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestTokenService() *TokenService {
	cfg := config.AuthConfig{
		Secret:                testSecret,
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	}
	return NewTokenService(cfg)
}

func signedToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewTokenService(t *testing.T) {
	cfg := config.AuthConfig{
		Secret:                testSecret,
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	}

	svc := NewTokenService(cfg)

	assert.NotNil(t, svc)
	assert.Equal(t, []byte(cfg.Secret), svc.secret)
	assert.Equal(t, cfg.AccessTokenExpiration, svc.expiration)
	assert.Equal(t, cfg.Issuer, svc.issuer)
	assert.Equal(t, cfg.AccessTokenExpiration, svc.Expiration())
}

func TestTokenService_Generate(t *testing.T) {
	svc := newTestTokenService()
	subject := uuid.New()

	token, expiresAt, err := svc.Generate(subject, "testuser")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)
}

func TestTokenService_Generate_NoSecret(t *testing.T) {
	svc := NewTokenService(config.AuthConfig{
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})

	_, _, err := svc.Generate(uuid.New(), "testuser")

	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestTokenService_Validate_Success(t *testing.T) {
	svc := newTestTokenService()
	subject := uuid.New()

	token, expiresAt, err := svc.Generate(subject, "testuser")
	require.NoError(t, err)

	claims, err := svc.Validate(token)

	require.NoError(t, err)
	assert.Equal(t, subject.String(), claims.Subject)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Contains(t, claims.Audience, "test-issuer")
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.NotBefore)

	// Each token carries a unique, parseable identifier.
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestTokenService_Validate_ExpiredToken(t *testing.T) {
	cfg := config.AuthConfig{
		Secret:                testSecret,
		Issuer:                "test-issuer",
		AccessTokenExpiration: -1 * time.Hour, // Already expired
	}
	svc := NewTokenService(cfg)

	token, _, err := svc.Generate(uuid.New(), "testuser")
	require.NoError(t, err)

	_, err = svc.Validate(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_Validate_NotYetValid(t *testing.T) {
	svc := newTestTokenService()

	token := signedToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
	})

	_, err := svc.Validate(token)

	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestTokenService_Validate_InvalidToken(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Validate("invalid-token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Validate_DifferentSecret(t *testing.T) {
	svc1 := newTestTokenService()

	token, _, err := svc1.Generate(uuid.New(), "testuser")
	require.NoError(t, err)

	// Create service with different secret
	svc2 := NewTokenService(config.AuthConfig{
		Secret:                "different-secret-key-32-chars!",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})

	_, err = svc2.Validate(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Validate_WrongSigningMethod(t *testing.T) {
	svc := newTestTokenService()

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Validate_MissingSubject(t *testing.T) {
	svc := newTestTokenService()

	token := signedToken(t, testSecret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err := svc.Validate(token)

	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestTokenService_Validate_NoSecret(t *testing.T) {
	svc := NewTokenService(config.AuthConfig{})

	_, err := svc.Validate("whatever")

	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestClaims_SubjectUUID(t *testing.T) {
	svc := newTestTokenService()
	subject := uuid.New()

	token, _, err := svc.Generate(subject, "testuser")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	parsed, err := claims.SubjectUUID()

	require.NoError(t, err)
	assert.Equal(t, subject, parsed)
}

func TestClaims_ExpiresAtTime(t *testing.T) {
	svc := newTestTokenService()

	token, expiresAt, err := svc.Generate(uuid.New(), "testuser")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAtTime().Unix())
	assert.True(t, claims.ExpiresAtTime().After(time.Now()))

	empty := &Claims{}
	assert.True(t, empty.ExpiresAtTime().IsZero())
}

func TestClaims_RemainingTTL(t *testing.T) {
	svc := newTestTokenService()

	token, _, err := svc.Generate(uuid.New(), "testuser")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	remaining := claims.RemainingTTL()
	assert.Positive(t, remaining)
	assert.LessOrEqual(t, remaining, 15*time.Minute)

	expired := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	assert.Equal(t, time.Duration(0), expired.RemainingTTL())

	empty := &Claims{}
	assert.Equal(t, time.Duration(0), empty.RemainingTTL())
}
