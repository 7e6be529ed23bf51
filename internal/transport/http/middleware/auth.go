package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

type tokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
// A missing token is 401, an expired one 403 and anything else unverifiable 400.
func Auth(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "access token required")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				slog.DebugContext(r.Context(), "token rejected", "err", err)
				switch {
				case errors.Is(err, jwtinfra.ErrMissingToken):
					writeJSONError(w, http.StatusUnauthorized, "access token required")
				case errors.Is(err, jwtinfra.ErrExpiredToken):
					writeJSONError(w, http.StatusForbidden, "token expired")
				default:
					writeJSONError(w, http.StatusBadRequest, "malformed token")
				}
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
