package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearroute/clearroute/internal/api/middleware"
)

func TestContentTypeJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.ContentTypeJSON(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"json", http.MethodPost, "application/json", http.StatusOK},
		{"json with charset", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"missing content type", http.MethodPost, "", http.StatusOK},
		{"form body", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"unparseable", http.MethodPost, "json;;;", http.StatusUnsupportedMediaType},
		{"GET ignores content type", http.MethodGet, "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/predict", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			middleware.RequireJSON(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
