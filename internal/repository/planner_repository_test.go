package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/models"
)

func plannerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "subject_id", "difficulty_level", "last_year_average", "priority",
		"progress_percentage", "last_studied_at", "is_active", "created_at", "updated_at"})
}

func batchRows() []*models.PlannerSubject {
	avg := 14.5
	return []*models.PlannerSubject{
		{UserID: 9, SubjectID: 1, DifficultyLevel: 3, Priority: models.PriorityHigh, IsActive: true},
		{UserID: 9, SubjectID: 2, DifficultyLevel: 2, LastYearAverage: &avg, Priority: models.PriorityLow, ProgressPercentage: 10, IsActive: true},
	}
}

func TestPlannerRepositoryCreateBatchCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO planner_subjects").
		WithArgs(int64(9), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))
	mock.ExpectQuery("INSERT INTO planner_subjects").
		WithArgs(int64(9), int64(2), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(32)))
	mock.ExpectCommit()

	rows := batchRows()
	require.NoError(t, repo.CreateBatch(context.Background(), rows))

	assert.Equal(t, int64(31), rows[0].ID)
	assert.Equal(t, int64(32), rows[1].ID)
	assert.False(t, rows[0].CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlannerRepositoryCreateBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO planner_subjects").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))
	mock.ExpectQuery("INSERT INTO planner_subjects").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), batchRows())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert planner subject 2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlannerRepositoryCreateBatchRollsBackOnCommitFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO planner_subjects").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))
	mock.ExpectQuery("INSERT INTO planner_subjects").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(32)))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := repo.CreateBatch(context.Background(), batchRows())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit planner batch")
}

func TestPlannerRepositoryListBySubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT id, user_id, subject_id").
		WithArgs(int64(9), sqlmock.AnyArg()).
		WillReturnRows(plannerRows().AddRow(int64(4), int64(9), int64(2), 3, nil, "medium", 0.0, nil, true, now, now))

	rows, err := repo.ListBySubjects(context.Background(), 9, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].SubjectID)
	assert.Equal(t, models.PriorityMedium, rows[0].Priority)
	assert.Nil(t, rows[0].LastYearAverage)
}

func TestPlannerRepositoryListBySubjectsEmptyInput(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	rows, err := repo.ListBySubjects(context.Background(), 9, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlannerRepositoryUpdateScopesByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	mock.ExpectExec("UPDATE planner_subjects SET difficulty_level").
		WithArgs(int64(9), int64(4), 5, nil, sqlmock.AnyArg(), 25.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	row := &models.PlannerSubject{ID: 4, UserID: 9, DifficultyLevel: 5, Priority: models.PriorityHigh, ProgressPercentage: 25}
	require.NoError(t, repo.Update(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlannerRepositoryDeleteReportsMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlannerRepository(db)

	mock.ExpectExec("DELETE FROM planner_subjects").
		WithArgs(int64(9), int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), 9, 77)
	require.NoError(t, err)
	assert.False(t, deleted)
}
