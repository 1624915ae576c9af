// Package auth issues and validates bearer tokens for the admin endpoints.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clearroute/clearroute/internal/config"
)

// Admin tokens are short-lived HS256 JWTs. There is no refresh flow: operators
// mint a new token with `clearroute token issue` when one expires.

// DefaultTokenExpiry is how long issued tokens are valid unless a TTL is given.
const DefaultTokenExpiry = 1 * time.Hour

// RoleAdmin grants access to /v1/admin routes.
const RoleAdmin = "admin"

// Predefined JWT errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrInsufficientRole   = errors.New("insufficient role")
)

// Claims represents the claims in admin access tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the caller's role (e.g. "admin").
	Role string `json:"role"`
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign JWTs.
	SigningKey string

	// Issuer is the issuer claim for tokens (e.g., "clearroute").
	Issuer string

	// Audience is the audience claim for tokens (e.g., "clearroute-admin").
	Audience string

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// FromAppConfig maps application config to a JWTConfig.
func FromAppConfig(cfg config.JWTConfig) JWTConfig {
	return JWTConfig{
		SigningKey: cfg.SigningKey,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
	}
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		now:        now,
	}
}

// GenerateToken creates a signed token for subject with the given role.
// A non-positive ttl uses DefaultTokenExpiry.
func (s *JWTService) GenerateToken(subject, role string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

// RequireRole validates the token and checks it carries role.
func (s *JWTService) RequireRole(tokenString, role string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Role != role {
		return nil, fmt.Errorf("%w: have %q, need %q", ErrInsufficientRole, claims.Role, role)
	}
	return claims, nil
}
