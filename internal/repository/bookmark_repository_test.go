package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/models"
)

func TestBookmarkListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookmarkRepository(db)

	now := time.Now()
	subjectID := int64(4)
	rows := sqlmock.NewRows([]string{"id", "user_id", "content_id", "created_at", "updated_at", "content_title_ar", "subject_id", "type_id"}).
		AddRow(int64(11), int64(7), int64(30), now, now, "ملخص", int64(4), int64(1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.user_id = $1 AND c.subject_id = $2 ORDER BY b.created_at DESC, b.id DESC")).
		WithArgs(int64(7), subjectID).
		WillReturnRows(rows)

	bookmarks, err := repo.List(context.Background(), 7, models.BookmarkFilter{SubjectID: &subjectID})
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, int64(30), bookmarks[0].ContentID)
	assert.Equal(t, "ملخص", bookmarks[0].ContentTitleAr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkUpsertReturnsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookmarkRepository(db)

	created := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	page := 12
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, content_id) DO UPDATE")).
		WithArgs(int64(7), int64(30), page, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	bookmark := &models.ContentBookmark{UserID: 7, ContentID: 30, PageNumber: &page}
	require.NoError(t, repo.Upsert(context.Background(), bookmark))
	assert.Equal(t, int64(11), bookmark.ID)
	assert.Equal(t, created, bookmark.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookmarkDeleteReportsMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookmarkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM content_bookmarks WHERE user_id = $1 AND content_id = $2")).
		WithArgs(int64(7), int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), 7, 30)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestBookmarkCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBookmarkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM content_bookmarks WHERE user_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
