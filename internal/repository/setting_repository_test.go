package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingRepo_All(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSettingRepo(db)

	mock.ExpectQuery(`SELECT setting_key, setting_value FROM system_settings`).
		WillReturnRows(sqlmock.NewRows([]string{"setting_key", "setting_value"}).
			AddRow("base_resource_count", "40").
			AddRow("target_contribution_goal", "10"))

	got, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"base_resource_count": "40", "target_contribution_goal": "10"}, got)
}

func TestSettingRepo_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSettingRepo(db)

	mock.ExpectExec(`INSERT INTO system_settings .* ON DUPLICATE KEY UPDATE`).
		WithArgs("base_student_reach", "120").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Upsert(context.Background(), "base_student_reach", "120"))
}
