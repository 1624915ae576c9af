package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/clearroute/clearroute/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// PredictRateLimit applies to /predict, which calls three upstreams (30 req/min).
	PredictRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to cheap read endpoints (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}

	// AdminRateLimit applies to /v1/admin (20 req/min per subject).
	AdminRateLimit = RateLimitConfig{
		RequestLimit: 20,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP limits by client IP (X-Forwarded-For aware via chi RealIP).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitHandler(cfg)),
	)
}

// RateLimitBySubject limits by the authenticated token subject, falling back
// to client IP. Mount it after AdminAuth.
func RateLimitBySubject(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyBySubjectOrIP),
		httprate.WithLimitHandler(limitHandler(cfg)),
	)
}

func keyBySubjectOrIP(r *http.Request) (string, error) {
	if sub := GetSubject(r.Context()); sub != "" {
		return "sub:" + sub, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitHandler writes a 429 problem. httprate does not expose the exact reset
// time, so Retry-After is the full window.
func limitHandler(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
		problem.Instance = r.URL.Path
		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w)
	}
}
