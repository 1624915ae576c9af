package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearroute/clearroute/internal/api/middleware"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"propagated when well formed", "abc-123_XYZ", true},
		{"replaced when it has spaces", "abc 123", false},
		{"replaced when it has control characters", "abc\x01", false},
		{"replaced when too long", strings.Repeat("a", 129), false},
		{"kept at the length limit", strings.Repeat("a", 128), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = middleware.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.incoming != "" {
				req.Header.Set("X-Request-Id", tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			headerID := rec.Header().Get("X-Request-Id")
			assert.Equal(t, headerID, ctxID)
			if tt.keep {
				assert.Equal(t, tt.incoming, headerID)
			} else {
				assert.True(t, strings.HasPrefix(headerID, "req_"), "got %q", headerID)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if got := middleware.GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
