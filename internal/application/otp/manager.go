// Package otp issues and consumes phone one-time passcodes.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/go-auth-otp/internal/pkg/id"
)

const (
	CodeLength = 6
	DefaultTTL = 5 * time.Minute
)

// ErrInvalidCode covers wrong number, wrong code, expired and already-consumed alike.
var ErrInvalidCode = fmt.Errorf("invalid or expired OTP: %w", domain.ErrUnauthorized)

type challengeStore interface {
	// UpsertChallenge replaces the outstanding code for ch.PhoneNumber. When linked
	// is true ch.SubjectID overwrites the stored subject; otherwise an existing
	// subject is kept and ch.SubjectID is used only for a first insert.
	UpsertChallenge(ctx context.Context, ch *domain.OTPChallenge, linked bool) (*domain.OTPChallenge, error)
	// ConsumeChallenge clears code and expiry if they match and now is before
	// expiry, in one conditional write. Returns domain.ErrNotFound otherwise.
	ConsumeChallenge(ctx context.Context, phone, code string, now time.Time) (string, error)
}

// Issued is the result of a successful Issue.
type Issued struct {
	PhoneNumber string
	SubjectID   string
	Code        string
	ExpiresAt   time.Time
}

type Manager struct {
	store  challengeStore
	clock  clock.Clock
	digits DigitSource
	ttl    time.Duration
}

type ManagerDeps struct {
	Store  challengeStore
	Clock  clock.Clock
	Digits DigitSource
	TTL    time.Duration
}

func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		store:  deps.Store,
		clock:  deps.Clock,
		digits: deps.Digits,
		ttl:    deps.TTL,
	}
	if m.clock == nil {
		m.clock = clock.System()
	}
	if m.digits == nil {
		m.digits = CryptoDigits{}
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	return m
}

// Issue generates a fresh code for phone and supersedes any outstanding one.
// accountID links the challenge to an existing account; pass "" for phone-only logins.
func (m *Manager) Issue(ctx context.Context, phone, accountID string) (*Issued, error) {
	code, err := m.digits.NextDigits(CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	if len(code) != CodeLength || code[0] == '0' {
		return nil, fmt.Errorf("digit source returned %d-digit code", len(code))
	}
	linked := accountID != ""
	subject := accountID
	if !linked {
		subject = id.New()
	}
	ch, err := m.store.UpsertChallenge(ctx, &domain.OTPChallenge{
		PhoneNumber: phone,
		SubjectID:   subject,
		Code:        code,
		ExpiresAt:   m.clock.Now().Add(m.ttl),
	}, linked)
	if err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}
	return &Issued{
		PhoneNumber: ch.PhoneNumber,
		SubjectID:   ch.SubjectID,
		Code:        ch.Code,
		ExpiresAt:   ch.ExpiresAt,
	}, nil
}

// Consume redeems code for phone at most once and returns the subject it was issued for.
func (m *Manager) Consume(ctx context.Context, phone, code string) (string, error) {
	if phone == "" || code == "" {
		return "", ErrInvalidCode
	}
	subject, err := m.store.ConsumeChallenge(ctx, phone, code, m.clock.Now())
	if errors.Is(err, domain.ErrNotFound) {
		return "", ErrInvalidCode
	}
	if err != nil {
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	return subject, nil
}
