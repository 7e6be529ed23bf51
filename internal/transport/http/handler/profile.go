package handler

import (
	"net/http"

	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	"github.com/go-auth-otp/internal/transport/http/middleware"
)

// ProfileEnvelope echoes the verified token claims.
type ProfileEnvelope struct {
	Message string           `json:"message"`
	User    *jwtinfra.Claims `json:"user"`
}

func Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Message: "Protected route works", User: claims})
}
