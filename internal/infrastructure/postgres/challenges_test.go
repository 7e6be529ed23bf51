package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestChallengeRepo_UpsertChallenge(t *testing.T) {
	for _, linked := range []bool{false, true} {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)

		mock.ExpectQuery(`(?s)INSERT INTO otp_challenges.*ON CONFLICT \(phone_number\) DO UPDATE`).
			WithArgs("+1555", "fresh", "123456", t0, linked).
			WillReturnRows(pgxmock.NewRows([]string{"phone_number", "subject_id", "otp_code", "otp_expiry"}).
				AddRow("+1555", "stored", "123456", t0))

		got, err := NewChallengeRepo(mock).UpsertChallenge(context.Background(), &domain.OTPChallenge{
			PhoneNumber: "+1555",
			SubjectID:   "fresh",
			Code:        "123456",
			ExpiresAt:   t0,
		}, linked)
		require.NoError(t, err)
		assert.Equal(t, "stored", got.SubjectID)
		assert.True(t, got.ExpiresAt.Equal(t0))
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	}
}

func TestChallengeRepo_ConsumeChallenge(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      string
		wantErr   error
		errMsg    string
	}{
		{
			name: "matching unexpired code",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE otp_challenges SET otp_code = NULL, otp_expiry = NULL`).
					WithArgs("+1555", "123456", t0).
					WillReturnRows(pgxmock.NewRows([]string{"subject_id"}).AddRow("subject-1"))
			},
			want: "subject-1",
		},
		{
			name: "no row matched",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE otp_challenges`).
					WithArgs("+1555", "123456", t0).
					WillReturnRows(pgxmock.NewRows([]string{"subject_id"}))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`UPDATE otp_challenges`).
					WithArgs("+1555", "123456", t0).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewChallengeRepo(mock).ConsumeChallenge(context.Background(), "+1555", "123456", t0)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrNotFound)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
