package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/models"
)

func TestProfileFindByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_academic_profiles WHERE user_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "academic_year_id", "academic_stream_id", "created_at", "updated_at"}).
			AddRow(int64(7), int64(3), nil, now, now))

	profile, err := repo.FindByUser(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, profile.AcademicYearID)
	assert.Equal(t, int64(3), *profile.AcademicYearID)
	assert.Nil(t, profile.AcademicStreamID)
	assert.False(t, profile.Complete())

	mock.ExpectQuery("FROM user_academic_profiles").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByUser(context.Background(), 8)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestProfileUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	year, stream := int64(3), int64(9)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).
		WithArgs(int64(7), year, stream, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &models.AcademicProfile{UserID: 7, AcademicYearID: &year, AcademicStreamID: &stream}
	require.NoError(t, repo.Upsert(context.Background(), profile))
	assert.False(t, profile.CreatedAt.IsZero())
	assert.Equal(t, profile.CreatedAt, profile.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
