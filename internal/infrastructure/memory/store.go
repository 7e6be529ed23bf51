// Package memory is an in-process account and challenge store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-auth-otp/internal/domain"
)

// Store keeps accounts and OTP challenges in maps guarded by one mutex, so each
// operation is a single atomic step like a conditional write.
type Store struct {
	mu         sync.Mutex
	accounts   map[string]domain.Account // user_id -> account
	byEmail    map[string]string         // email -> user_id
	byPhone    map[string]string         // phone -> user_id
	challenges map[string]domain.OTPChallenge
}

func NewStore() *Store {
	return &Store{
		accounts:   make(map[string]domain.Account),
		byEmail:    make(map[string]string),
		byPhone:    make(map[string]string),
		challenges: make(map[string]domain.OTPChallenge),
	}
}

func (s *Store) Create(ctx context.Context, a *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.UserID]; ok {
		return fmt.Errorf("user id taken: %w", domain.ErrConflict)
	}
	if _, ok := s.byEmail[a.Email]; ok {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if a.PhoneNumber != nil {
		if _, ok := s.byPhone[*a.PhoneNumber]; ok {
			return fmt.Errorf("phone number already registered: %w", domain.ErrConflict)
		}
		s.byPhone[*a.PhoneNumber] = a.UserID
	}
	s.byEmail[a.Email] = a.UserID
	s.accounts[a.UserID] = *a
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findBy(ctx, s.byEmail, email)
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return s.findBy(ctx, s.byPhone, phone)
}

func (s *Store) findBy(ctx context.Context, index map[string]string, key string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := index[key]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	a := s.accounts[uid]
	return &a, nil
}

func (s *Store) UpsertChallenge(ctx context.Context, ch *domain.OTPChallenge, linked bool) (*domain.OTPChallenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *ch
	if prev, ok := s.challenges[ch.PhoneNumber]; ok && !linked {
		next.SubjectID = prev.SubjectID
	}
	s.challenges[ch.PhoneNumber] = next
	return &next, nil
}

func (s *Store) ConsumeChallenge(ctx context.Context, phone, code string, now time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[phone]
	if !ok || ch.Code == "" || ch.Code != code || !now.Before(ch.ExpiresAt) {
		return "", fmt.Errorf("no valid challenge: %w", domain.ErrNotFound)
	}
	ch.Code = ""
	ch.ExpiresAt = time.Time{}
	s.challenges[phone] = ch
	return ch.SubjectID, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
