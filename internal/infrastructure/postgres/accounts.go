package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-auth-otp/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const selectAccount = `SELECT user_id, email, name, password_hash, phone_number, role, created_at FROM accounts`

// AccountRepo stores accounts; the unique indexes on email and phone_number
// make Create the single uniqueness check.
type AccountRepo struct {
	db querier
}

func NewAccountRepo(db querier) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO accounts (user_id, email, name, password_hash, phone_number, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.UserID, a.Email, a.Name, a.PasswordHash, a.PhoneNumber, a.Role, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("account already exists (%s): %w", pgErr.ConstraintName, domain.ErrConflict)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, selectAccount+` WHERE email = $1`, email)
}

func (r *AccountRepo) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.findOne(ctx, selectAccount+` WHERE phone_number = $1`, phone)
}

func (r *AccountRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *AccountRepo) findOne(ctx context.Context, query, arg string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.UserID, &a.Email, &a.Name, &a.PasswordHash, &a.PhoneNumber, &a.Role, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
