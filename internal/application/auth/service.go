package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-auth-otp/internal/application/otp"
	"github.com/go-auth-otp/internal/domain"
	jwtinfra "github.com/go-auth-otp/internal/infrastructure/jwt"
	"github.com/go-auth-otp/internal/infrastructure/sns"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/go-auth-otp/internal/pkg/id"
	"github.com/go-auth-otp/internal/pkg/password"
	"github.com/go-auth-otp/internal/pkg/validate"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultAccessTTL    = time.Hour
	defaultOTPTokenTTL  = 7 * 24 * time.Hour
)

type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email,max=254"`
	Password    string  `json:"password" validate:"required,max=72"`
	Name        string  `json:"name" validate:"required,notblank,max=200"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,notblank,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,notblank,max=32"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,notblank"`
	OTP         string `json:"otp" validate:"required"`
}

// Result is returned by every operation that mints a token. Account is nil for OTP logins.
type Result struct {
	Token       string
	ExpiresAt   time.Time
	Account     *domain.AccountSummary
	PhoneNumber string
}

// OTPDispatch acknowledges a send-otp request. Code is for the delivery channel
// and for tests; handlers only echo it when explicitly configured to.
type OTPDispatch struct {
	PhoneNumber string
	ExpiresAt   time.Time
	Code        string
	Delivered   bool
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Result, error)
	Login(ctx context.Context, req LoginRequest) (*Result, error)
	SendOTP(ctx context.Context, req SendOTPRequest) (*OTPDispatch, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Result, error)
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Account, error)
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string)
}

type otpManager interface {
	Issue(ctx context.Context, phone, accountID string) (*otp.Issued, error)
	Consume(ctx context.Context, phone, code string) (string, error)
}

type tokenMinter interface {
	Mint(c jwtinfra.Claims, ttl time.Duration) (string, time.Time, error)
}

type service struct {
	accounts     accountStore
	hasher       passwordHasher
	otp          otpManager
	tokens       tokenMinter
	smsSender    sns.SMSSender
	clock        clock.Clock
	accessTTL    time.Duration
	otpTokenTTL  time.Duration
	storeTimeout time.Duration
}

type ServiceDeps struct {
	Accounts     accountStore
	Hasher       passwordHasher
	OTP          otpManager
	Tokens       tokenMinter
	SMSSender    sns.SMSSender // optional; nil skips delivery
	Clock        clock.Clock
	AccessTTL    time.Duration
	OTPTokenTTL  time.Duration
	StoreTimeout time.Duration
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		accounts:     deps.Accounts,
		hasher:       deps.Hasher,
		otp:          deps.OTP,
		tokens:       deps.Tokens,
		smsSender:    deps.SMSSender,
		clock:        deps.Clock,
		accessTTL:    deps.AccessTTL,
		otpTokenTTL:  deps.OTPTokenTTL,
		storeTimeout: deps.StoreTimeout,
	}
	if s.clock == nil {
		s.clock = clock.System()
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	if s.accessTTL <= 0 {
		s.accessTTL = defaultAccessTTL
	}
	if s.otpTokenTTL <= 0 {
		s.otpTokenTTL = defaultOTPTokenTTL
	}
	return s
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	if req.PhoneNumber != nil {
		p := strings.TrimSpace(*req.PhoneNumber)
		req.PhoneNumber = &p
		if p == "" {
			req.PhoneNumber = nil
		}
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	// bcrypt's limit is in bytes; the validator's max counts runes.
	if len(req.Password) > password.MaxLength {
		return nil, fmt.Errorf("password longer than %d bytes: %w", password.MaxLength, domain.ErrBadRequest)
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError(ctx, "registration", err)
	}
	a := &domain.Account{
		UserID:       id.New(),
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		Role:         domain.RoleUser,
		CreatedAt:    s.clock.Now().UTC(),
	}
	err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
		return s.accounts.Create(ctx, a)
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("email or phone number already registered: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, internalError(ctx, "registration", err)
	}
	slog.InfoContext(ctx, "account registered", "user_id", a.UserID)
	return s.passwordResult(ctx, a, "registration")
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("please provide email and password: %w", domain.ErrBadRequest)
	}
	var a *domain.Account
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var ferr error
		a, ferr = s.accounts.FindByEmail(ctx, req.Email)
		return ferr
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.hasher.VerifyDummy(req.Password)
		return nil, errInvalidCredentials
	case err != nil:
		return nil, internalError(ctx, "login", err)
	}
	if !s.hasher.Verify(req.Password, a.PasswordHash) {
		return nil, errInvalidCredentials
	}
	return s.passwordResult(ctx, a, "login")
}

func (s *service) SendOTP(ctx context.Context, req SendOTPRequest) (*OTPDispatch, error) {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("phone number is required: %w", domain.ErrBadRequest)
	}
	var accountID string
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		a, ferr := s.accounts.FindByPhone(ctx, req.PhoneNumber)
		if ferr == nil {
			accountID = a.UserID
		}
		return ferr
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, internalError(ctx, "sending OTP", err)
	}
	var iss *otp.Issued
	err = s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var ierr error
		iss, ierr = s.otp.Issue(ctx, req.PhoneNumber, accountID)
		return ierr
	})
	if err != nil {
		return nil, internalError(ctx, "sending OTP", err)
	}
	out := &OTPDispatch{PhoneNumber: iss.PhoneNumber, ExpiresAt: iss.ExpiresAt, Code: iss.Code}
	if s.smsSender != nil {
		msg := fmt.Sprintf("Your login code is %s. It expires in %d minutes.", iss.Code, int(iss.ExpiresAt.Sub(s.clock.Now()).Round(time.Minute).Minutes()))
		if err := s.smsSender.SendSMS(ctx, iss.PhoneNumber, msg); err != nil {
			slog.WarnContext(ctx, "otp stored but not delivered; it stays valid until expiry or the next send",
				"subject_id", iss.SubjectID, "expires_at", iss.ExpiresAt)
			return nil, internalError(ctx, "sending OTP", err)
		}
		out.Delivered = true
	}
	slog.InfoContext(ctx, "otp issued", "subject_id", iss.SubjectID, "delivered", out.Delivered)
	return out, nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Result, error) {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("phone number and OTP required: %w", domain.ErrBadRequest)
	}
	var subject string
	err := s.withStoreTimeout(ctx, func(ctx context.Context) error {
		var cerr error
		subject, cerr = s.otp.Consume(ctx, req.PhoneNumber, strings.TrimSpace(req.OTP))
		return cerr
	})
	if errors.Is(err, domain.ErrUnauthorized) {
		return nil, otp.ErrInvalidCode
	}
	if err != nil {
		return nil, internalError(ctx, "verifying OTP", err)
	}
	token, exp, err := s.tokens.Mint(jwtinfra.Claims{UserID: subject, PhoneNumber: req.PhoneNumber}, s.otpTokenTTL)
	if err != nil {
		return nil, internalError(ctx, "verifying OTP", err)
	}
	return &Result{Token: token, ExpiresAt: exp, PhoneNumber: req.PhoneNumber}, nil
}

func (s *service) passwordResult(ctx context.Context, a *domain.Account, op string) (*Result, error) {
	token, exp, err := s.tokens.Mint(jwtinfra.Claims{
		UserID: a.UserID,
		Email:  a.Email,
		Name:   a.Name,
		Role:   a.Role,
	}, s.accessTTL)
	if err != nil {
		return nil, internalError(ctx, op, err)
	}
	return &Result{Token: token, ExpiresAt: exp, Account: a.Summary()}, nil
}

// withStoreTimeout bounds a storage round trip so a stalled backend surfaces as an error.
func (s *service) withStoreTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(ctx)
}

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)

// internalError logs the cause and returns a generic error safe to show callers.
func internalError(ctx context.Context, op string, cause error) error {
	slog.ErrorContext(ctx, "credential operation failed", "operation", op, "err", cause)
	return fmt.Errorf("server error during %s: %w", op, domain.ErrInternal)
}
