package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/auth"
)

type subjectKey struct{}

// AdminAuth validates a bearer token and requires the admin role.
func AdminAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAuthProblem(w, r, models.NewUnauthorized, "missing or malformed bearer token")
				return
			}

			claims, err := jwtService.RequireRole(token, auth.RoleAdmin)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrAccessTokenExpired):
					writeAuthProblem(w, r, models.NewUnauthorized, "access token has expired")
				case errors.Is(err, auth.ErrInsufficientRole):
					writeAuthProblem(w, r, models.NewForbidden, "admin role required")
				default:
					writeAuthProblem(w, r, models.NewUnauthorized, "invalid access token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Bearer <token>", case-insensitively.
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func writeAuthProblem(w http.ResponseWriter, r *http.Request, build func(traceID, detail string) *models.Problem, detail string) {
	problem := build(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetSubject returns the authenticated token subject, or "".
func GetSubject(ctx context.Context) string {
	if sub, ok := ctx.Value(subjectKey{}).(string); ok {
		return sub
	}
	return ""
}
