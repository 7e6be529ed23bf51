package jwtinfra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/go-auth-otp/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. Each wraps domain.ErrUnauthorized; transport maps them to distinct statuses.
var (
	ErrMissingToken   = fmt.Errorf("missing credential: %w", domain.ErrUnauthorized)
	ErrMalformedToken = fmt.Errorf("malformed token: %w", domain.ErrUnauthorized)
	ErrExpiredToken   = fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
)

// Claims holds the JWT payload fields. Password logins carry Email, Name and Role;
// OTP logins carry PhoneNumber only.
type Claims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a single process-wide secret.
type Provider struct {
	secret []byte
	clock  clock.Clock
}

func NewProvider(secret string, clk clock.Clock) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Provider{secret: []byte(secret), clock: clk}, nil
}

// Mint signs claims with iat=now and exp=now+ttl. Any registered claims on the
// input other than the subject are overwritten.
func (p *Provider) Mint(c Claims, ttl time.Duration) (string, time.Time, error) {
	now := p.clock.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   c.UserID,
		ID:        id.New(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, c.ExpiresAt.Time, nil
}

// Verify checks the signature, then expiry, and returns the decoded claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || !id.Valid(claims.ID) {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
