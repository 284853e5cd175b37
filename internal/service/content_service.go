package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
	"github.com/memo-edu/memo-api/pkg/jobs"
	"github.com/memo-edu/memo-api/pkg/storage"
)

const minSearchLength = 2

// Counter job types handled by HandleCounterJob.
const (
	CounterJobView     = "content.view"
	CounterJobDownload = "content.download"
)

type contentRepository interface {
	List(ctx context.Context, filter models.ContentFilter) ([]models.ContentDetail, int, error)
	FindPublished(ctx context.Context, id int64) (*models.ContentDetail, error)
	IncrementViews(ctx context.Context, id int64) error
	IncrementDownloads(ctx context.Context, id int64) error
	ListByChapter(ctx context.Context, chapterID int64, streamID *int64) ([]models.ContentDetail, error)
	ListTypes(ctx context.Context) ([]models.ContentType, error)
	FindActiveChapter(ctx context.Context, id int64) (*models.ContentChapter, error)
	ListChapters(ctx context.Context, subjectID int64, streamID *int64) ([]models.ChapterCounts, error)
}

type counterQueue interface {
	Enqueue(job jobs.Job) error
}

type contentSubjectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type contentProgressReader interface {
	Find(ctx context.Context, userID, contentID int64) (*models.ContentProgress, error)
	ListForContents(ctx context.Context, userID int64, contentIDs []int64) ([]models.ContentProgress, error)
}

type contentFileStore interface {
	Open(relPath, fallbackType string) (*storage.File, error)
}

type fileSigner interface {
	Generate(contentID int64, relPath string) (string, time.Time, error)
	Verify(token string, contentID int64) (string, error)
}

// ContentConfig shapes the file links of content payloads.
type ContentConfig struct {
	APIPrefix     string
	PublicBaseURL string
}

// ContentService serves published contents, their chapters and files.
type ContentService struct {
	contents  contentRepository
	subjects  contentSubjectReader
	progress  contentProgressReader
	scopes    *ScopeResolver
	files     contentFileStore
	signer    fileSigner
	metrics   *MetricsService
	counters  counterQueue
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ContentConfig
}

// NewContentService constructs a ContentService.
func NewContentService(contents contentRepository, subjects contentSubjectReader, progress contentProgressReader, scopes *ScopeResolver, files contentFileStore, signer fileSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ContentConfig) *ContentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &ContentService{
		contents:  contents,
		subjects:  subjects,
		progress:  progress,
		scopes:    scopes,
		files:     files,
		signer:    signer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns a page of published contents visible to the effective stream.
func (s *ContentService) List(ctx context.Context, principal *models.Principal, query dto.ContentQuery) ([]dto.ContentItem, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err)
	}
	if query.OrderBy != "" && !models.ContentSortColumns[query.OrderBy] {
		return nil, nil, fieldError("order_by", "must be one of: order, views_count, created_at")
	}
	return s.page(ctx, principal, query, "")
}

// Search ranks published contents matching q by title, then description, then keywords.
func (s *ContentService) Search(ctx context.Context, principal *models.Principal, query dto.ContentQuery) ([]dto.ContentItem, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err)
	}
	term := strings.TrimSpace(query.Q)
	if utf8.RuneCountInString(term) < minSearchLength {
		return nil, nil, fieldError("q", fmt.Sprintf("must be at least %d characters", minSearchLength))
	}
	return s.page(ctx, principal, query, term)
}

func (s *ContentService) page(ctx context.Context, principal *models.Principal, query dto.ContentQuery, term string) ([]dto.ContentItem, *models.Pagination, error) {
	streamID, err := s.scopes.Stream(ctx, principal, query.StreamID)
	if err != nil {
		return nil, nil, err
	}

	page, perPage := pageBounds(query.Page, query.PerPage)
	filter := models.ContentFilter{
		StreamID:      streamID,
		SubjectID:     query.SubjectID,
		ChapterID:     query.ChapterID,
		ContentTypeID: query.ContentTypeID,
		Difficulty:    query.Difficulty,
		Premium:       query.Premium,
		Search:        term,
		OrderBy:       query.OrderBy,
		OrderDesc:     strings.EqualFold(query.OrderDirection, "desc"),
		Page:          page,
		PerPage:       perPage,
	}
	rows, total, err := s.contents.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contents")
	}

	items, err := s.withProgress(ctx, principal, rows)
	if err != nil {
		return nil, nil, err
	}
	return items, models.NewPagination(total, perPage, page), nil
}

// Show returns a published content and counts the view.
func (s *ContentService) Show(ctx context.Context, principal *models.Principal, id int64) (*dto.ContentDetailItem, error) {
	content, err := s.contents.FindPublished(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "content not found", "failed to load content")
	}
	if s.count(ctx, CounterJobView, id) {
		content.ViewsCount++
	}

	item := toContentItem(*content)
	if principal != nil {
		progress, err := s.progress.Find(ctx, principal.UserID, id)
		if err != nil && !isNoRows(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
		}
		item.UserProgress = toUserProgress(progress)
	}

	detail := &dto.ContentDetailItem{
		ContentItem:   item,
		ContentBodyAr: content.ContentBodyAr,
		ContentBodyFr: content.ContentBodyFr,
		Tags:          content.Tags,
		Files: dto.ContentFiles{
			HasFile:  content.HasFile,
			FilePath: content.FilePath,
			FileType: content.FileType,
			VideoURL: content.VideoURL,
			HasVideo: content.HasVideo,
		},
		PublishedAt: content.PublishedAt,
		CreatedAt:   content.CreatedAt,
		UpdatedAt:   content.UpdatedAt,
	}
	if detail.Tags == nil {
		detail.Tags = models.StringList{}
	}
	if relPath, ok := content.DownloadableFile(); ok {
		file, err := s.fileLink(content.ID, relPath)
		if err != nil {
			return nil, err
		}
		file.Type = content.FileType
		file.Size = content.FileSize
		detail.Files.PDF = file
	}
	return detail, nil
}

// fileLink points public files at the public disk and everything else at the signed file route.
func (s *ContentService) fileLink(contentID int64, relPath string) (*dto.ContentFile, error) {
	file := &dto.ContentFile{Name: path.Base(relPath)}
	if storage.IsPublic(relPath) {
		file.URL = s.cfg.PublicBaseURL + "/storage/" + strings.TrimPrefix(relPath, storage.PublicPrefix)
		return file, nil
	}
	token, expiresAt, err := s.signer.Generate(contentID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign file link")
	}
	file.URL = fmt.Sprintf("%s%s/contents/%d/file?token=%s", s.cfg.PublicBaseURL, s.cfg.APIPrefix, contentID, token)
	file.ExpiresAt = &expiresAt
	return file, nil
}

// Chapters lists a subject's active chapters with per-type counters for the effective stream.
func (s *ContentService) Chapters(ctx context.Context, principal *models.Principal, query dto.ChapterQuery) ([]dto.ChapterItem, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.subjects.FindByID(ctx, query.SubjectID); err != nil {
		if isNoRows(err) {
			return nil, fieldError("subject_id", "the selected subject is invalid")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	streamID, err := s.scopes.Stream(ctx, principal, query.StreamID)
	if err != nil {
		return nil, err
	}

	chapters, err := s.contents.ListChapters(ctx, query.SubjectID, streamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chapters")
	}
	items := make([]dto.ChapterItem, 0, len(chapters))
	for _, ch := range chapters {
		counts := dto.ContentCounts{
			Lessons:   ch.LessonsCount,
			Summaries: ch.SummariesCount,
			Exercises: ch.ExercisesCount,
			Tests:     ch.TestsCount,
		}
		titleFr := ch.TitleAr
		if ch.TitleFr != nil && *ch.TitleFr != "" {
			titleFr = *ch.TitleFr
		}
		items = append(items, dto.ChapterItem{
			ID:               ch.ID,
			SubjectID:        ch.SubjectID,
			AcademicStreamID: ch.AcademicStreamID,
			TitleAr:          ch.TitleAr,
			TitleFr:          titleFr,
			Slug:             ch.Slug,
			DescriptionAr:    ch.DescriptionAr,
			Order:            ch.Order,
			IsActive:         ch.IsActive,
			ContentCounts:    counts,
			TotalCount:       counts.Lessons + counts.Summaries + counts.Exercises + counts.Tests,
		})
	}
	return items, nil
}

// ChapterContents lists the published contents of an active chapter for the effective stream.
func (s *ContentService) ChapterContents(ctx context.Context, principal *models.Principal, chapterID int64, streamParam *int64) (*dto.ChapterContents, error) {
	chapter, err := s.contents.FindActiveChapter(ctx, chapterID)
	if err != nil {
		return nil, notFoundOrInternal(err, "chapter not found", "failed to load chapter")
	}
	streamID, err := s.scopes.Stream(ctx, principal, streamParam)
	if err != nil {
		return nil, err
	}
	rows, err := s.contents.ListByChapter(ctx, chapter.ID, streamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chapter contents")
	}
	items, err := s.withProgress(ctx, principal, rows)
	if err != nil {
		return nil, err
	}
	return &dto.ChapterContents{
		Chapter: dto.ChapterHeader{
			ID:               chapter.ID,
			TitleAr:          chapter.TitleAr,
			TitleFr:          chapter.TitleFr,
			DescriptionAr:    chapter.DescriptionAr,
			AcademicStreamID: chapter.AcademicStreamID,
		},
		Contents: items,
	}, nil
}

// Types lists the content types.
func (s *ContentService) Types(ctx context.Context) ([]models.ContentType, error) {
	types, err := s.contents.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content types")
	}
	if types == nil {
		types = []models.ContentType{}
	}
	return types, nil
}

// Download opens the content file as an attachment and counts the download.
// The caller closes the returned file.
func (s *ContentService) Download(ctx context.Context, id int64) (*storage.File, error) {
	content, err := s.contents.FindPublished(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "content not found", "failed to load content")
	}
	relPath, ok := content.DownloadableFile()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no file available for this content")
	}
	file, err := s.open(relPath, content.FileType)
	if err != nil {
		return nil, err
	}
	s.count(ctx, CounterJobDownload, id)
	return file, nil
}

// OpenFile verifies a signed file token and opens the file it names.
func (s *ContentService) OpenFile(ctx context.Context, id int64, token string) (*storage.File, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "file token required")
	}
	relPath, err := s.signer.Verify(token, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired file link")
	}
	content, err := s.contents.FindPublished(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "content not found", "failed to load content")
	}
	return s.open(relPath, content.FileType)
}

func (s *ContentService) open(relPath string, fileType *string) (*storage.File, error) {
	fallback := ""
	if fileType != nil && strings.Contains(*fileType, "/") {
		fallback = *fileType
	}
	file, err := s.files.Open(relPath, fallback)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return file, nil
}

func (s *ContentService) withProgress(ctx context.Context, principal *models.Principal, rows []models.ContentDetail) ([]dto.ContentItem, error) {
	items := make([]dto.ContentItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toContentItem(row))
	}
	if principal == nil || len(rows) == 0 {
		return items, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	progress, err := s.progress.ListForContents(ctx, principal.UserID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	byContent := make(map[int64]*models.ContentProgress, len(progress))
	for i := range progress {
		byContent[progress[i].ContentID] = &progress[i]
	}
	for i := range items {
		items[i].UserProgress = toUserProgress(byContent[items[i].ID])
	}
	return items, nil
}

func toContentItem(c models.ContentDetail) dto.ContentItem {
	item := dto.ContentItem{
		ID:                       c.ID,
		AcademicStreamID:         c.AcademicStreamID,
		TitleAr:                  c.TitleAr,
		TitleFr:                  c.TitleFr,
		DescriptionAr:            c.DescriptionAr,
		DescriptionFr:            c.DescriptionFr,
		Slug:                     c.Slug,
		DifficultyLevel:          c.DifficultyLevel,
		EstimatedDurationMinutes: c.EstimatedDurationMinutes,
		IsPremium:                c.IsPremium,
		ViewsCount:               c.ViewsCount,
		DownloadsCount:           c.DownloadsCount,
		AverageRating:            c.AverageRating,
		TotalRatings:             c.TotalRatings,
		Order:                    c.Order,
		Subject:                  dto.Ref{ID: c.SubjectID, NameAr: c.SubjectNameAr, NameFr: c.SubjectNameFr, Color: c.SubjectColor, Icon: c.SubjectIcon},
		Type:                     dto.Ref{ID: c.ContentTypeID, NameAr: c.TypeNameAr, NameFr: c.TypeNameFr, Icon: c.TypeIcon},
	}
	if c.AcademicStreamID != nil && c.StreamNameAr != nil {
		item.AcademicStream = &dto.Ref{ID: *c.AcademicStreamID, NameAr: *c.StreamNameAr}
	}
	if c.ChapterID != nil && c.ChapterTitleAr != nil {
		item.Chapter = &dto.ChapterRef{ID: *c.ChapterID, TitleAr: *c.ChapterTitleAr, TitleFr: c.ChapterTitleFr}
	}
	return item
}

func toUserProgress(p *models.ContentProgress) *dto.UserProgressView {
	if p == nil {
		return nil
	}
	return &dto.UserProgressView{
		ProgressPercentage: p.ProgressPercentage,
		IsCompleted:        p.IsCompleted,
		Status:             p.Status,
		TimeSpentSeconds:   p.TimeSpentSeconds,
		StartedAt:          p.StartedAt,
		CompletedAt:        p.CompletedAt,
		LastAccessedAt:     p.LastAccessedAt,
	}
}

// pageBounds applies the listing defaults: page 1, 20 per page, at most 50.
func pageBounds(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 50 {
		perPage = 50
	}
	return page, perPage
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// WithCounterQueue moves view and download counting onto q.
func (s *ContentService) WithCounterQueue(q counterQueue) *ContentService {
	s.counters = q
	return s
}

// HandleCounterJob applies a queued view or download increment.
func (s *ContentService) HandleCounterJob(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case CounterJobView:
		return s.contents.IncrementViews(ctx, job.Key)
	case CounterJobDownload:
		return s.contents.IncrementDownloads(ctx, job.Key)
	default:
		return fmt.Errorf("unknown counter job %q", job.Type)
	}
}

// count records a view or download. It falls back to a direct update when the queue refuses the job.
func (s *ContentService) count(ctx context.Context, kind string, id int64) bool {
	event := strings.TrimPrefix(kind, "content.")
	if s.counters != nil {
		err := s.counters.Enqueue(jobs.Job{Type: kind, Key: id})
		if err == nil {
			s.metrics.RecordContentEvent(event)
			return true
		}
		s.logger.Warn("counter queue refused job", zap.String("type", kind), zap.Int64("content_id", id), zap.Error(err))
	}
	if err := s.HandleCounterJob(ctx, jobs.Job{Type: kind, Key: id}); err != nil {
		s.logger.Warn("failed to increment content counter", zap.String("type", kind), zap.Int64("content_id", id), zap.Error(err))
		return false
	}
	s.metrics.RecordContentEvent(event)
	return true
}
