package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"user_id", "expires_at", "revoked_at"}

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantID  uint64
		wantErr error
	}{
		{"live token", sqlmock.NewRows(cols).AddRow(3, now.Add(time.Hour), nil), 3, nil},
		{"expired", sqlmock.NewRows(cols).AddRow(3, now.Add(-time.Second), nil), 0, ErrTokenInvalid},
		{"revoked", sqlmock.NewRows(cols).AddRow(3, now.Add(time.Hour), now.Add(-time.Minute)), 0, ErrTokenInvalid},
		{"unknown", sqlmock.NewRows(cols), 0, ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewTokenRepo(db)
			mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).WithArgs("h").WillReturnRows(tt.rows)

			id, err := repo.ValidateRefresh(context.Background(), "h", now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestTokenRepo_StoreAndRevoke(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	exp := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`^INSERT INTO refresh_tokens`).WithArgs(4, "h", exp).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`^UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP\(\) WHERE token_hash=\?`).
		WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP\(\) WHERE user_id=\?`).
		WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 2))

	ctx := context.Background()
	require.NoError(t, repo.StoreRefresh(ctx, 4, "h", exp))
	require.NoError(t, repo.RevokeByHash(ctx, "h"))
	require.NoError(t, repo.RevokeAllForUser(ctx, 4))
}
