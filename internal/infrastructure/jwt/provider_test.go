package jwtinfra

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestProvider(t *testing.T, clk clock.Clock) *Provider {
	t.Helper()
	p, err := NewProvider(testSecret, clk)
	require.NoError(t, err)
	return p
}

func TestNewProvider_EmptySecret(t *testing.T) {
	_, err := NewProvider("", nil)
	assert.Error(t, err)
}

func TestMintVerify_RoundTrip(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := newTestProvider(t, clk)

	tok, exp, err := p.Mint(Claims{UserID: "u1", Email: "a@x.com", Name: "Ann", Role: domain.RoleUser}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clk.now.Add(time.Hour), exp)
	assert.Equal(t, 2, strings.Count(tok, "."))

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "Ann", claims.Name)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Empty(t, claims.PhoneNumber)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clk.now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, clk.now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestMint_ReturnedExpiryMatchesTokenSeconds(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 900_000_000, time.UTC)}
	p := newTestProvider(t, clk)

	tok, exp, err := p.Mint(Claims{UserID: "u1"}, time.Minute)
	require.NoError(t, err)
	claims, err := p.Verify(tok)
	require.NoError(t, err)

	assert.True(t, exp.Equal(claims.ExpiresAt.Time))
	assert.Equal(t, 0, exp.Nanosecond())
	assert.False(t, exp.After(clk.now.Add(time.Minute)))
}

func TestVerify_Missing(t *testing.T) {
	p := newTestProvider(t, nil)
	_, err := p.Verify("  ")
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerify_ZeroTTLIsExpired(t *testing.T) {
	p := newTestProvider(t, nil)
	tok, _, err := p.Mint(Claims{UserID: "u1"}, 0)
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.False(t, errors.Is(err, ErrMalformedToken))
}

func TestVerify_ExpiresAtBoundary(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := newTestProvider(t, clk)
	tok, _, err := p.Mint(Claims{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	clk.advance(time.Minute - time.Second)
	_, err = p.Verify(tok)
	require.NoError(t, err)

	clk.advance(time.Second)
	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_CorruptedSignatureIsMalformed(t *testing.T) {
	p := newTestProvider(t, nil)
	tok, _, err := p.Mint(Claims{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	// Flip a character inside the signature segment; every bit there is data.
	i := strings.LastIndex(tok, ".") + 5
	repl := byte('A')
	if tok[i] == 'A' {
		repl = 'B'
	}
	corrupted := tok[:i] + string(repl) + tok[i+1:]

	_, err = p.Verify(corrupted)
	assert.ErrorIs(t, err, ErrMalformedToken)
	assert.False(t, errors.Is(err, ErrExpiredToken))
}

func TestVerify_ExpiredAndCorruptedIsMalformed(t *testing.T) {
	p := newTestProvider(t, nil)
	tok, _, err := p.Mint(Claims{UserID: "u1"}, 0)
	require.NoError(t, err)

	other, err := NewProvider(strings.Repeat("z", 32), nil)
	require.NoError(t, err)
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_Garbage(t *testing.T) {
	p := newTestProvider(t, nil)
	_, err := p.Verify("not-a-real-token")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	p := newTestProvider(t, nil)
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	p := newTestProvider(t, nil)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_RotatedSecretInvalidatesTokens(t *testing.T) {
	p := newTestProvider(t, nil)
	tok, _, err := p.Mint(Claims{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	rotated, err := NewProvider(testSecret+"-rotated", nil)
	require.NoError(t, err)
	_, err = rotated.Verify(tok)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerify_RequiresULIDTokenID(t *testing.T) {
	p := newTestProvider(t, nil)
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "not-a-ulid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, ErrMalformedToken)
}
