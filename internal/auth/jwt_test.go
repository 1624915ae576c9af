package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearroute/clearroute/internal/auth"
	"github.com/clearroute/clearroute/internal/config"
)

func newService(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: key,
		Issuer:     issuer,
		Audience:   audience,
	})
}

func TestJWTService_GenerateAndValidateToken(t *testing.T) {
	svc := newService("test-secret-key-for-testing-only", "clearroute", "clearroute-admin")

	token, expiresAt, err := svc.GenerateToken("ops@clearroute", auth.RoleAdmin, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenExpiry), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@clearroute", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "clearroute", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newService("test-secret-key-for-testing-only", "clearroute", "clearroute-admin")

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	token, _, err := newService("key-one", "clearroute", "clearroute-admin").
		GenerateToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = newService("key-two", "clearroute", "clearroute-admin").ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_WrongIssuer(t *testing.T) {
	token, _, err := newService("test-key", "issuer-one", "clearroute-admin").
		GenerateToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = newService("test-key", "issuer-two", "clearroute-admin").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_WrongAudience(t *testing.T) {
	token, _, err := newService("test-key", "clearroute", "audience-one").
		GenerateToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = newService("test-key", "clearroute", "audience-two").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "clearroute",
		Audience:   "clearroute-admin",
		Now:        func() time.Time { return clock },
	})

	token, _, err := svc.GenerateToken("ops", auth.RoleAdmin, 10*time.Minute)
	require.NoError(t, err)

	clock = issuedAt.Add(11 * time.Minute)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_RequireRole(t *testing.T) {
	svc := newService("test-key", "clearroute", "clearroute-admin")

	admin, _, err := svc.GenerateToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)
	viewer, _, err := svc.GenerateToken("dash", "viewer", time.Hour)
	require.NoError(t, err)

	claims, err := svc.RequireRole(admin, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)

	_, err = svc.RequireRole(viewer, auth.RoleAdmin)
	assert.ErrorIs(t, err, auth.ErrInsufficientRole)
}

func TestFromAppConfig(t *testing.T) {
	got := auth.FromAppConfig(config.JWTConfig{
		SigningKey: "k",
		Issuer:     "i",
		Audience:   "a",
	})

	assert.Equal(t, "k", got.SigningKey)
	assert.Equal(t, "i", got.Issuer)
	assert.Equal(t, "a", got.Audience)
}
