package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearroute/clearroute/internal/api/middleware"
	"github.com/clearroute/clearroute/internal/auth"
)

func TestRateLimitConfigs(t *testing.T) {
	tests := []struct {
		name   string
		config middleware.RateLimitConfig
		limit  int
	}{
		{"predict", middleware.PredictRateLimit, 30},
		{"standard", middleware.StandardRateLimit, 100},
		{"admin", middleware.AdminRateLimit, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.limit, tt.config.RequestLimit)
			assert.Equal(t, time.Minute, tt.config.WindowLength)
		})
	}
}

func TestRateLimitByIP(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute}
	handler := middleware.RateLimitByIP(cfg)(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/predict", http.NoBody)
		req.RemoteAddr = ip + ":4321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	limited := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", limited.Header().Get("Content-Type"))
	assert.Contains(t, limited.Body.String(), "Rate limit exceeded")

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestRateLimitBySubject(t *testing.T) {
	svc := newJWT(nil)
	tokenA, _, err := svc.GenerateToken("alice", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)
	tokenB, _, err := svc.GenerateToken("bob", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute}
	handler := middleware.AdminAuth(svc)(middleware.RateLimitBySubject(cfg)(okHandler))

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/incidents/refresh", http.NoBody)
		req.RemoteAddr = "10.0.0.9:4321"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(tokenA))
	assert.Equal(t, http.StatusTooManyRequests, send(tokenA))
	// Same IP, different subject.
	assert.Equal(t, http.StatusOK, send(tokenB))
}

func TestRateLimitBySubject_FallsBackToIP(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute}
	handler := middleware.RateLimitBySubject(cfg)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "10.0.0.3:1"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
