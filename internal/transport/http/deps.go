package http

import (
	"context"

	"github.com/go-auth-otp/internal/application/auth"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	"github.com/go-auth-otp/internal/pkg/clock"
)

// StorePinger is the minimal interface the router requires to report store health.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// TokenVerifier is the minimal interface the bearer middleware requires.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Deps holds all application dependencies for the router.
type Deps struct {
	Auth    auth.Service
	Tokens  TokenVerifier
	Store   StorePinger
	Clock   clock.Clock
	EchoOTP bool
}
