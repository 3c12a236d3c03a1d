package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreqcapital/coreq-migrate/internal/auth"
	"github.com/coreqcapital/coreq-migrate/internal/http/respond"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/models"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (auth.Claims, error)
}

type claimsKey struct{}

// ClaimsFrom returns the verified claims stored by RequireAdmin.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

// RequireAdmin rejects requests without a valid admin bearer token.
func RequireAdmin(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				respond.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				logger.CtxWarn(r.Context(), "rejected token", slog.String("error", err.Error()))
				respond.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if claims.Role != models.AdminRole {
				respond.Error(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
