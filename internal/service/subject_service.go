package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/cache"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, error)
	FindActiveSummary(ctx context.Context, id int64) (*models.SubjectSummary, error)
	FindStreamOverride(ctx context.Context, subjectID, streamID int64) (*models.SubjectStream, error)
	ListStreamOverrides(ctx context.Context, streamID int64, subjectIDs []int64) ([]models.SubjectStream, error)
}

type subjectAcademicReader interface {
	FindActiveYear(ctx context.Context, id int64) (*models.AcademicYear, error)
	FindActiveStream(ctx context.Context, id int64) (*models.AcademicStream, error)
	StreamsByIDs(ctx context.Context, ids []int64) ([]models.AcademicStream, error)
}

type subjectContentReader interface {
	ListChapters(ctx context.Context, subjectID int64, streamID *int64) ([]models.ChapterCounts, error)
	CountPublishedBySubject(ctx context.Context, subjectID int64) (int, error)
}

// SubjectService lists subjects for an academic scope.
type SubjectService struct {
	subjects  subjectRepository
	academic  subjectAcademicReader
	contents  subjectContentReader
	scopes    *ScopeResolver
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(subjects subjectRepository, academic subjectAcademicReader, contents subjectContentReader, scopes *ScopeResolver, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{
		subjects:  subjects,
		academic:  academic,
		contents:  contents,
		scopes:    scopes,
		cache:     cacheSvc,
		validator: validate,
		logger:    logger,
	}
}

// List returns the subjects having content for the requested scope, falling back to the
// principal's profile only when the request names neither year nor stream.
func (s *SubjectService) List(ctx context.Context, principal *models.Principal, query dto.SubjectQuery) ([]dto.SubjectItem, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}
	scope, err := s.scopes.SubjectScope(ctx, principal, Scope{YearID: query.YearID, StreamID: query.StreamID})
	if err != nil {
		return nil, err
	}

	key := cache.Key(cacheScopeSubjects, "list", idPart(scope.YearID), idPart(scope.StreamID))
	var cached []dto.SubjectItem
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	items, err := s.list(ctx, models.SubjectFilter{YearID: scope.YearID, StreamID: scope.StreamID, OnlyWithContents: true})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, items, 0)
	return items, nil
}

// ByAcademic lists active subjects for the given year and/or stream without consulting the profile.
func (s *SubjectService) ByAcademic(ctx context.Context, query dto.SubjectQuery) ([]dto.SubjectItem, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}
	if query.YearID != nil {
		if _, err := s.academic.FindActiveYear(ctx, *query.YearID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fieldError("year_id", "the selected academic year is invalid")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
		}
	}
	if query.StreamID != nil {
		if _, err := s.academic.FindActiveStream(ctx, *query.StreamID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fieldError("stream_id", "the selected stream is invalid")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stream")
		}
	}
	return s.list(ctx, models.SubjectFilter{YearID: query.YearID, StreamID: query.StreamID})
}

func (s *SubjectService) list(ctx context.Context, filter models.SubjectFilter) ([]dto.SubjectItem, error) {
	subjects, err := s.subjects.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	overrides := map[int64]*models.SubjectStream{}
	if filter.StreamID != nil && len(subjects) > 0 {
		ids := make([]int64, len(subjects))
		for i, subject := range subjects {
			ids[i] = subject.ID
		}
		rows, err := s.subjects.ListStreamOverrides(ctx, *filter.StreamID, ids)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject coefficients")
		}
		for i := range rows {
			overrides[rows[i].SubjectID] = &rows[i]
		}
	}

	items := make([]dto.SubjectItem, 0, len(subjects))
	for _, subject := range subjects {
		items = append(items, toSubjectItem(subject, overrides[subject.ID]))
	}
	return items, nil
}

// Get returns an active subject with its chapters and counters. The coefficient follows the
// principal's stream when one is configured.
func (s *SubjectService) Get(ctx context.Context, principal *models.Principal, id int64) (*dto.SubjectDetail, error) {
	subject, err := s.subjects.FindActiveSummary(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "subject not found", "failed to load subject")
	}

	streamID, err := s.scopes.Stream(ctx, principal, nil)
	if err != nil {
		return nil, err
	}
	var override *models.SubjectStream
	if streamID != nil {
		override, err = s.subjects.FindStreamOverride(ctx, subject.ID, *streamID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject coefficient")
		}
	}

	detail := dto.SubjectDetailItem{SubjectItem: toSubjectItem(*subject, override), AcademicStreams: []dto.SubjectStreamRef{}}
	if subject.AcademicYearID != nil && subject.YearNameAr != nil {
		year := &dto.SubjectYear{ID: *subject.AcademicYearID, NameAr: *subject.YearNameAr, NameFr: subject.YearNameFr}
		if subject.YearPhaseID != nil {
			year.AcademicPhaseID = *subject.YearPhaseID
		}
		detail.AcademicYear = year
	}
	if !subject.AcademicStreamIDs.Empty() {
		streams, err := s.academic.StreamsByIDs(ctx, subject.AcademicStreamIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject streams")
		}
		for _, st := range streams {
			detail.AcademicStreams = append(detail.AcademicStreams, dto.SubjectStreamRef{ID: st.ID, NameAr: st.NameAr, NameFr: st.NameFr})
		}
	}

	chapters, err := s.contents.ListChapters(ctx, subject.ID, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chapters")
	}
	total, err := s.contents.CountPublishedBySubject(ctx, subject.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count contents")
	}

	out := &dto.SubjectDetail{
		Subject:  detail,
		Chapters: make([]dto.SubjectChapter, 0, len(chapters)),
		Stats:    dto.SubjectStats{TotalContents: total, TotalChapters: len(chapters)},
	}
	for _, ch := range chapters {
		out.Chapters = append(out.Chapters, dto.SubjectChapter{
			ID:            ch.ID,
			TitleAr:       ch.TitleAr,
			TitleFr:       ch.TitleFr,
			DescriptionAr: ch.DescriptionAr,
			DescriptionFr: ch.DescriptionFr,
			Slug:          ch.Slug,
			Order:         ch.Order,
			ContentsCount: ch.ContentsCount,
		})
	}
	return out, nil
}

// Coefficient returns the coefficient of subjectID within streamID.
func (s *SubjectService) Coefficient(ctx context.Context, subjectID, streamID int64) (float64, error) {
	subject, err := s.subjects.FindActiveSummary(ctx, subjectID)
	if err != nil {
		return 0, notFoundOrInternal(err, "subject not found", "failed to load subject")
	}
	override, err := s.subjects.FindStreamOverride(ctx, subjectID, streamID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject coefficient")
	}
	return ResolveCoefficient(subject.Subject, override), nil
}

func toSubjectItem(subject models.SubjectSummary, override *models.SubjectStream) dto.SubjectItem {
	return dto.SubjectItem{
		ID:                subject.ID,
		NameAr:            subject.NameAr,
		NameFr:            subject.NameFr,
		DescriptionAr:     subject.DescriptionAr,
		DescriptionFr:     subject.DescriptionFr,
		Slug:              subject.Slug,
		Coefficient:       listingCoefficient(subject.Subject, override),
		Color:             subject.Color,
		Icon:              subject.Icon,
		Order:             subject.Order,
		AcademicYearID:    subject.AcademicYearID,
		AcademicStreamIDs: subject.AcademicStreamIDs,
		ContentsCount:     subject.ContentsCount,
	}
}

func idPart(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
