package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type bookmarkRepository interface {
	List(ctx context.Context, userID int64, filter models.BookmarkFilter) ([]models.BookmarkWithContent, error)
	Find(ctx context.Context, userID, contentID int64) (*models.BookmarkWithContent, error)
	Upsert(ctx context.Context, bookmark *models.ContentBookmark) error
	Delete(ctx context.Context, userID, contentID int64) (bool, error)
	Count(ctx context.Context, userID int64) (int, error)
}

type publishedChecker interface {
	PublishedExists(ctx context.Context, id int64) (bool, error)
}

// BookmarkService manages the principal's content bookmarks.
type BookmarkService struct {
	bookmarks bookmarkRepository
	contents  publishedChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookmarkService constructs a BookmarkService.
func NewBookmarkService(bookmarks bookmarkRepository, contents publishedChecker, validate *validator.Validate, logger *zap.Logger) *BookmarkService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkService{bookmarks: bookmarks, contents: contents, validator: validate, logger: logger}
}

// List returns the principal's bookmarks, newest first.
func (s *BookmarkService) List(ctx context.Context, principal models.Principal, query dto.BookmarkQuery) ([]dto.BookmarkView, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}
	rows, err := s.bookmarks.List(ctx, principal.UserID, models.BookmarkFilter{ContentTypeID: query.ContentTypeID, SubjectID: query.SubjectID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookmarks")
	}
	views := make([]dto.BookmarkView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toBookmarkView(row))
	}
	return views, nil
}

// Store bookmarks a published content, replacing any previous bookmark on it.
func (s *BookmarkService) Store(ctx context.Context, principal models.Principal, contentID int64, req dto.StoreBookmarkRequest) (*dto.BookmarkView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := requirePublished(ctx, s.contents, contentID); err != nil {
		return nil, err
	}

	bookmark := &models.ContentBookmark{
		UserID:           principal.UserID,
		ContentID:        contentID,
		PageNumber:       req.PageNumber,
		TimestampSeconds: req.TimestampSeconds,
		Notes:            req.Notes,
	}
	if err := s.bookmarks.Upsert(ctx, bookmark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save bookmark")
	}
	row, err := s.bookmarks.Find(ctx, principal.UserID, contentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookmark")
	}
	view := toBookmarkView(*row)
	return &view, nil
}

// Check reports whether the principal bookmarked the content.
func (s *BookmarkService) Check(ctx context.Context, principal models.Principal, contentID int64) (*dto.BookmarkCheck, error) {
	row, err := s.bookmarks.Find(ctx, principal.UserID, contentID)
	if err != nil {
		if isNoRows(err) {
			return &dto.BookmarkCheck{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookmark")
	}
	view := toBookmarkView(*row)
	return &dto.BookmarkCheck{IsBookmarked: true, Bookmark: &view}, nil
}

// Destroy removes the principal's bookmark on the content.
func (s *BookmarkService) Destroy(ctx context.Context, principal models.Principal, contentID int64) error {
	deleted, err := s.bookmarks.Delete(ctx, principal.UserID, contentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete bookmark")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "bookmark not found")
	}
	return nil
}

// Count returns how many bookmarks the principal has.
func (s *BookmarkService) Count(ctx context.Context, principal models.Principal) (*dto.BookmarkCount, error) {
	total, err := s.bookmarks.Count(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count bookmarks")
	}
	return &dto.BookmarkCount{TotalBookmarks: total}, nil
}

// requirePublished returns NOT_FOUND unless contentID is a published content.
func requirePublished(ctx context.Context, contents publishedChecker, contentID int64) error {
	ok, err := contents.PublishedExists(ctx, contentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	return nil
}

func toBookmarkView(row models.BookmarkWithContent) dto.BookmarkView {
	content := dto.BookmarkContent{
		ID:                       row.ContentID,
		TitleAr:                  row.ContentTitleAr,
		TitleFr:                  row.ContentTitleFr,
		Slug:                     row.ContentSlug,
		DifficultyLevel:          row.ContentDifficulty,
		EstimatedDurationMinutes: row.ContentEstimatedDuration,
		IsPremium:                row.ContentIsPremium,
		Subject:                  dto.Ref{ID: row.SubjectID, NameAr: row.SubjectNameAr, Color: row.SubjectColor, Icon: row.SubjectIcon},
		Type:                     dto.Ref{ID: row.TypeID, NameAr: row.TypeNameAr, Icon: row.TypeIcon},
	}
	if row.ChapterID != nil && row.ChapterTitleAr != nil {
		content.Chapter = &dto.ChapterRef{ID: *row.ChapterID, TitleAr: *row.ChapterTitleAr}
	}
	return dto.BookmarkView{
		ID:               row.ID,
		Content:          content,
		PageNumber:       row.PageNumber,
		TimestampSeconds: row.TimestampSeconds,
		Notes:            row.Notes,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
