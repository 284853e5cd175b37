package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type fakeBookmarkRepo struct {
	rows       map[int64]*models.BookmarkWithContent
	nextID     int64
	lastFilter models.BookmarkFilter
}

func newFakeBookmarkRepo() *fakeBookmarkRepo {
	return &fakeBookmarkRepo{rows: map[int64]*models.BookmarkWithContent{}, nextID: 1}
}

func (f *fakeBookmarkRepo) List(ctx context.Context, userID int64, filter models.BookmarkFilter) ([]models.BookmarkWithContent, error) {
	f.lastFilter = filter
	var out []models.BookmarkWithContent
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeBookmarkRepo) Find(ctx context.Context, userID, contentID int64) (*models.BookmarkWithContent, error) {
	if row, ok := f.rows[contentID]; ok && row.UserID == userID {
		copyRow := *row
		return &copyRow, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookmarkRepo) Upsert(ctx context.Context, bookmark *models.ContentBookmark) error {
	row, ok := f.rows[bookmark.ContentID]
	if !ok {
		row = &models.BookmarkWithContent{ContentTitleAr: "درس الدوال", SubjectID: 10, SubjectNameAr: "رياضيات", TypeID: 1, TypeNameAr: "درس"}
		bookmark.ID = f.nextID
		bookmark.CreatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		f.nextID++
	} else {
		bookmark.ID = row.ID
		bookmark.CreatedAt = row.CreatedAt
	}
	bookmark.UpdatedAt = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	row.ContentBookmark = *bookmark
	f.rows[bookmark.ContentID] = row
	return nil
}

func (f *fakeBookmarkRepo) Delete(ctx context.Context, userID, contentID int64) (bool, error) {
	if row, ok := f.rows[contentID]; ok && row.UserID == userID {
		delete(f.rows, contentID)
		return true, nil
	}
	return false, nil
}

func (f *fakeBookmarkRepo) Count(ctx context.Context, userID int64) (int, error) {
	total := 0
	for _, row := range f.rows {
		if row.UserID == userID {
			total++
		}
	}
	return total, nil
}

func TestBookmarkLifecycle(t *testing.T) {
	repo := newFakeBookmarkRepo()
	svc := NewBookmarkService(repo, newFakeContentRepo(contentFixture()...), nil, nil)
	ctx := context.Background()

	check, err := svc.Check(ctx, student, 1)
	require.NoError(t, err)
	assert.False(t, check.IsBookmarked)
	assert.Nil(t, check.Bookmark)

	view, err := svc.Store(ctx, student, 1, dto.StoreBookmarkRequest{PageNumber: intp(3), Notes: str("revoir")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, int64(1), view.Content.ID)
	assert.Equal(t, 3, *view.PageNumber)
	assert.Equal(t, "رياضيات", view.Content.Subject.NameAr)

	replaced, err := svc.Store(ctx, student, 1, dto.StoreBookmarkRequest{TimestampSeconds: intp(90)})
	require.NoError(t, err)
	assert.Equal(t, view.ID, replaced.ID)
	assert.Nil(t, replaced.PageNumber)
	assert.Equal(t, 90, *replaced.TimestampSeconds)

	check, err = svc.Check(ctx, student, 1)
	require.NoError(t, err)
	assert.True(t, check.IsBookmarked)
	require.NotNil(t, check.Bookmark)

	count, err := svc.Count(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, 1, count.TotalBookmarks)

	list, err := svc.List(ctx, student, dto.BookmarkQuery{SubjectID: i64(10)})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(10), *repo.lastFilter.SubjectID)

	require.NoError(t, svc.Destroy(ctx, student, 1))
	err = svc.Destroy(ctx, student, 1)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestBookmarkStoreRequiresPublishedContent(t *testing.T) {
	repo := newFakeBookmarkRepo()
	svc := NewBookmarkService(repo, newFakeContentRepo(contentFixture()...), nil, nil)

	_, err := svc.Store(context.Background(), student, 4, dto.StoreBookmarkRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
	assert.Empty(t, repo.rows)
}

func TestBookmarkStoreValidation(t *testing.T) {
	svc := NewBookmarkService(newFakeBookmarkRepo(), newFakeContentRepo(contentFixture()...), nil, nil)

	_, err := svc.Store(context.Background(), student, 1, dto.StoreBookmarkRequest{PageNumber: intp(0), TimestampSeconds: intp(-1)})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "page_number")
	assert.Contains(t, appErr.Fields, "timestamp_seconds")
}
