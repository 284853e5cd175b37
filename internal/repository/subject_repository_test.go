package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/models"
)

func TestSubjectRepositoryListAppliesStreamVisibility(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	stream, year := int64(7), int64(3)
	mock.ExpectQuery(regexp.QuoteMeta("(s.academic_stream_ids IS NULL OR jsonb_array_length(s.academic_stream_ids) = 0 OR s.academic_stream_ids @> jsonb_build_array($1::bigint))")).
		WithArgs(stream, year).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name_ar", "slug", "academic_year_id", "academic_stream_ids", "coefficient", "order", "is_active", "contents_count"}).
			AddRow(int64(1), "رياضيات", "math", year, []byte(`[7, "9"]`), 5.0, 1, true, 12).
			AddRow(int64(2), "فلسفة", "philo", year, nil, nil, 2, true, 4))

	subjects, err := repo.List(context.Background(), models.SubjectFilter{YearID: &year, StreamID: &stream, OnlyWithContents: true})
	require.NoError(t, err)
	require.Len(t, subjects, 2)

	assert.Equal(t, models.IDSet{7, 9}, subjects[0].AcademicStreamIDs)
	assert.Equal(t, 12, subjects[0].ContentsCount)
	require.NotNil(t, subjects[0].Coefficient)
	assert.Equal(t, 5.0, *subjects[0].Coefficient)
	assert.True(t, subjects[1].AcademicStreamIDs.Empty())
	assert.Nil(t, subjects[1].Coefficient)
}

func TestSubjectRepositoryListByYearOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	year := int64(3)
	mock.ExpectQuery(regexp.QuoteMeta("s.academic_year_id = $1")).
		WithArgs(year).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	subjects, err := repo.List(context.Background(), models.SubjectFilter{YearID: &year})
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

func TestSubjectRepositoryFindStreamOverride(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery("FROM subject_stream").
		WithArgs(int64(1), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "academic_stream_id", "coefficient", "category", "is_active"}).
			AddRow(int64(5), int64(1), int64(7), 3.5, "HARD_CORE", true))

	row, err := repo.FindStreamOverride(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 3.5, row.Coefficient)
	require.NotNil(t, row.Category)
	assert.Equal(t, models.CategoryHardCore, *row.Category)
}

func TestSubjectRepositoryFindStreamOverrideMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery("FROM subject_stream").
		WithArgs(int64(1), int64(8)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindStreamOverride(context.Background(), 1, 8)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
