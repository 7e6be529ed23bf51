package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ChallengeRepo keeps one OTP challenge row per phone number.
type ChallengeRepo struct {
	db querier
}

func NewChallengeRepo(db querier) *ChallengeRepo {
	return &ChallengeRepo{db: db}
}

// UpsertChallenge inserts or replaces the phone's code and expiry in one
// statement. An existing subject_id is kept unless linked is true.
func (r *ChallengeRepo) UpsertChallenge(ctx context.Context, ch *domain.OTPChallenge, linked bool) (*domain.OTPChallenge, error) {
	out := domain.OTPChallenge{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO otp_challenges (phone_number, subject_id, otp_code, otp_expiry)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (phone_number) DO UPDATE SET
		     otp_code = EXCLUDED.otp_code,
		     otp_expiry = EXCLUDED.otp_expiry,
		     subject_id = CASE WHEN $5::boolean THEN EXCLUDED.subject_id ELSE otp_challenges.subject_id END
		 RETURNING phone_number, subject_id, otp_code, otp_expiry`,
		ch.PhoneNumber, ch.SubjectID, ch.Code, ch.ExpiresAt, linked,
	).Scan(&out.PhoneNumber, &out.SubjectID, &out.Code, &out.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("upsert challenge: %w", err)
	}
	out.ExpiresAt = out.ExpiresAt.UTC()
	return &out, nil
}

// ConsumeChallenge clears code and expiry if code matches and the challenge
// is still valid at now. No matching row is domain.ErrNotFound.
func (r *ChallengeRepo) ConsumeChallenge(ctx context.Context, phone, code string, now time.Time) (string, error) {
	var subjectID string
	err := r.db.QueryRow(ctx,
		`UPDATE otp_challenges SET otp_code = NULL, otp_expiry = NULL
		 WHERE phone_number = $1 AND otp_code = $2 AND otp_expiry > $3
		 RETURNING subject_id`,
		phone, code, now,
	).Scan(&subjectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("no valid challenge: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	return subjectID, nil
}
