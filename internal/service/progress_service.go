package service

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type progressRepository interface {
	Find(ctx context.Context, userID, contentID int64) (*models.ContentProgress, error)
	Save(ctx context.Context, progress *models.ContentProgress) error
	ListWithContent(ctx context.Context, userID int64) ([]models.ProgressWithContent, error)
	SubjectStats(ctx context.Context, userID, subjectID int64) (*models.SubjectProgressStats, error)
	FindRating(ctx context.Context, userID, contentID int64) (*models.ContentRating, error)
	SaveRating(ctx context.Context, rating *models.ContentRating) error
}

type progressSubjectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

// ProgressService tracks the principal's progress on and ratings of contents.
type ProgressService struct {
	progress  progressRepository
	contents  publishedChecker
	subjects  progressSubjectReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProgressService constructs a ProgressService.
func NewProgressService(progress progressRepository, contents publishedChecker, subjects progressSubjectReader, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{progress: progress, contents: contents, subjects: subjects, validator: validate, logger: logger, now: time.Now}
}

// Get returns the principal's progress on a content, or the zero state when none is recorded.
func (s *ProgressService) Get(ctx context.Context, principal models.Principal, contentID int64) (*dto.ProgressView, error) {
	if err := requirePublished(ctx, s.contents, contentID); err != nil {
		return nil, err
	}
	row, err := s.progress.Find(ctx, principal.UserID, contentID)
	if err != nil {
		if isNoRows(err) {
			return &dto.ProgressView{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	return toProgressView(row), nil
}

// Update records a progress percentage. time_spent replaces the stored value.
func (s *ProgressService) Update(ctx context.Context, principal models.Principal, contentID int64, req dto.UpdateProgressRequest) (*dto.ProgressView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := requirePublished(ctx, s.contents, contentID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	pct := *req.Progress
	row := &models.ContentProgress{
		UserID:             principal.UserID,
		ContentID:          contentID,
		Status:             models.StatusForPercentage(pct),
		ProgressPercentage: pct,
		IsCompleted:        pct >= 100,
		StartedAt:          &now,
		LastAccessedAt:     &now,
	}
	if req.TimeSpent != nil {
		row.TimeSpentSeconds = *req.TimeSpent
	}
	if row.IsCompleted {
		row.CompletedAt = &now
	}
	if err := s.progress.Save(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save progress")
	}
	return toProgressView(row), nil
}

// Complete marks the content completed, keeping the recorded time spent.
func (s *ProgressService) Complete(ctx context.Context, principal models.Principal, contentID int64) (*dto.ProgressView, error) {
	if err := requirePublished(ctx, s.contents, contentID); err != nil {
		return nil, err
	}
	existing, err := s.progress.Find(ctx, principal.UserID, contentID)
	if err != nil && !isNoRows(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}

	now := s.now().UTC()
	row := &models.ContentProgress{
		UserID:             principal.UserID,
		ContentID:          contentID,
		Status:             models.ProgressCompleted,
		ProgressPercentage: 100,
		IsCompleted:        true,
		StartedAt:          &now,
		CompletedAt:        &now,
		LastAccessedAt:     &now,
	}
	if existing != nil {
		row.TimeSpentSeconds = existing.TimeSpentSeconds
	}
	if err := s.progress.Save(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save progress")
	}
	return toProgressView(row), nil
}

// SubjectProgress summarises the principal's progress over a subject's published contents.
func (s *ProgressService) SubjectProgress(ctx context.Context, principal models.Principal, subjectID int64) (*dto.SubjectProgressView, error) {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		return nil, notFoundOrInternal(err, "subject not found", "failed to load subject")
	}
	stats, err := s.progress.SubjectStats(ctx, principal.UserID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject progress")
	}

	view := &dto.SubjectProgressView{
		TotalContents:         stats.TotalContents,
		CompletedContents:     stats.CompletedContents,
		InProgressContents:    stats.InProgressContents,
		NotStartedContents:    stats.TotalContents - stats.CompletedContents - stats.InProgressContents,
		TotalTimeSpentSeconds: stats.TotalTimeSpent,
		TotalTimeSpentHours:   round2(float64(stats.TotalTimeSpent) / 3600),
	}
	if view.NotStartedContents < 0 {
		view.NotStartedContents = 0
	}
	if stats.TotalContents > 0 {
		view.CompletionPercentage = round2(float64(stats.CompletedContents) / float64(stats.TotalContents) * 100)
	}
	return view, nil
}

// Rate stores the principal's rating of a published content.
func (s *ProgressService) Rate(ctx context.Context, principal models.Principal, contentID int64, req dto.RateContentRequest) (*dto.RatingView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if err := requirePublished(ctx, s.contents, contentID); err != nil {
		return nil, err
	}
	rating := &models.ContentRating{UserID: principal.UserID, ContentID: contentID, Rating: req.Rating, Comment: req.Comment}
	if err := s.progress.SaveRating(ctx, rating); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rating")
	}
	return &dto.RatingView{Rating: rating.Rating, Comment: rating.Comment, CreatedAt: rating.CreatedAt}, nil
}

// Rating returns the principal's rating of a content, or nil when there is none.
func (s *ProgressService) Rating(ctx context.Context, principal models.Principal, contentID int64) (*dto.RatingView, error) {
	rating, err := s.progress.FindRating(ctx, principal.UserID, contentID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	updated := rating.UpdatedAt
	return &dto.RatingView{Rating: rating.Rating, Comment: rating.Comment, CreatedAt: rating.CreatedAt, UpdatedAt: &updated}, nil
}

// List returns every progress row of the principal, most recently accessed first.
func (s *ProgressService) List(ctx context.Context, principal models.Principal) ([]dto.ProgressListItem, error) {
	rows, err := s.progress.ListWithContent(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list progress")
	}
	items := make([]dto.ProgressListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.ProgressListItem{
			Content: dto.ProgressContent{
				ID:      row.ContentID,
				TitleAr: row.ContentTitleAr,
				Slug:    row.ContentSlug,
				Subject: dto.Ref{ID: row.SubjectID, NameAr: row.SubjectNameAr, Color: row.SubjectColor},
				Type:    dto.Ref{ID: row.TypeID, NameAr: row.TypeNameAr, Icon: row.TypeIcon},
			},
			Progress:         row.ProgressPercentage,
			IsCompleted:      row.IsCompleted,
			TimeSpentSeconds: row.TimeSpentSeconds,
			LastAccessedAt:   row.LastAccessedAt,
		})
	}
	return items, nil
}

func toProgressView(row *models.ContentProgress) *dto.ProgressView {
	spent := row.TimeSpentSeconds
	return &dto.ProgressView{
		Progress:         row.ProgressPercentage,
		IsCompleted:      row.IsCompleted,
		Status:           row.Status,
		TimeSpentSeconds: &spent,
		StartedAt:        row.StartedAt,
		CompletedAt:      row.CompletedAt,
		LastAccessedAt:   row.LastAccessedAt,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
