package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/cache"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type academicRepository interface {
	ListPhases(ctx context.Context) ([]models.AcademicPhase, error)
	ListYears(ctx context.Context, phaseID *int64) ([]models.AcademicYear, error)
	ListStreams(ctx context.Context, yearID *int64) ([]models.AcademicStream, error)
	FindActivePhase(ctx context.Context, id int64) (*models.AcademicPhase, error)
	FindActiveYear(ctx context.Context, id int64) (*models.AcademicYear, error)
	FindActiveStream(ctx context.Context, id int64) (*models.AcademicStream, error)
}

type profileRepository interface {
	FindByUser(ctx context.Context, userID int64) (*models.AcademicProfile, error)
	Upsert(ctx context.Context, profile *models.AcademicProfile) error
}

// AcademicService serves the phases, years and streams tree and the user's academic profile.
type AcademicService struct {
	repo      academicRepository
	profiles  profileRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicService constructs an AcademicService.
func NewAcademicService(repo academicRepository, profiles profileRepository, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicService{repo: repo, profiles: profiles, cache: cacheSvc, validator: validate, logger: logger}
}

// Structure returns every active phase with its active years and streams.
func (s *AcademicService) Structure(ctx context.Context) (*models.AcademicStructure, error) {
	key := cache.Key(cacheScopeAcademic, "structure")
	var cached models.AcademicStructure
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	phases, err := s.repo.ListPhases(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list phases")
	}
	years, err := s.repo.ListYears(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list years")
	}
	streams, err := s.repo.ListStreams(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list streams")
	}

	streamsByYear := make(map[int64][]models.StreamNode)
	for _, st := range streams {
		streamsByYear[st.AcademicYearID] = append(streamsByYear[st.AcademicYearID], models.StreamNode{
			ID: st.ID, NameAr: st.NameAr, NameFr: st.NameFr, Slug: st.Slug, Order: st.Order,
		})
	}
	yearsByPhase := make(map[int64][]models.YearNode)
	for _, y := range years {
		nodes := streamsByYear[y.ID]
		if nodes == nil {
			nodes = []models.StreamNode{}
		}
		yearsByPhase[y.AcademicPhaseID] = append(yearsByPhase[y.AcademicPhaseID], models.YearNode{
			ID: y.ID, NameAr: y.NameAr, NameFr: y.NameFr, Slug: y.Slug, Order: y.Order, Streams: nodes,
		})
	}

	structure := &models.AcademicStructure{Phases: make([]models.PhaseNode, 0, len(phases))}
	for _, p := range phases {
		nodes := yearsByPhase[p.ID]
		if nodes == nil {
			nodes = []models.YearNode{}
		}
		structure.Phases = append(structure.Phases, models.PhaseNode{
			ID: p.ID, NameAr: p.NameAr, NameFr: p.NameFr, Slug: p.Slug, Order: p.Order, Years: nodes,
		})
	}

	s.cache.Set(ctx, key, structure, 0)
	return structure, nil
}

// Phases lists the active phases.
func (s *AcademicService) Phases(ctx context.Context) ([]dto.PhaseItem, error) {
	phases, err := s.repo.ListPhases(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list phases")
	}
	items := make([]dto.PhaseItem, 0, len(phases))
	for _, p := range phases {
		items = append(items, dto.PhaseItem{ID: p.ID, NameAr: p.NameAr, Slug: p.Slug, Order: p.Order})
	}
	return items, nil
}

// PhaseYears lists the active years of an active phase.
func (s *AcademicService) PhaseYears(ctx context.Context, phaseID int64) (*dto.PhaseYears, error) {
	phase, err := s.repo.FindActivePhase(ctx, phaseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "academic phase not found", "failed to load phase")
	}
	years, err := s.repo.ListYears(ctx, &phase.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list years")
	}
	out := &dto.PhaseYears{Phase: dto.AcademicRef{ID: phase.ID, NameAr: phase.NameAr}, Years: make([]dto.YearItem, 0, len(years))}
	for _, y := range years {
		out.Years = append(out.Years, dto.YearItem{
			ID: y.ID, NameAr: y.NameAr, LevelNumber: y.LevelNumber, Order: y.Order, AcademicPhaseID: y.AcademicPhaseID,
		})
	}
	return out, nil
}

// YearStreams lists the active streams of an active year.
func (s *AcademicService) YearStreams(ctx context.Context, yearID int64) (*dto.YearStreams, error) {
	year, err := s.repo.FindActiveYear(ctx, yearID)
	if err != nil {
		return nil, notFoundOrInternal(err, "academic year not found", "failed to load year")
	}
	streams, err := s.repo.ListStreams(ctx, &year.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list streams")
	}
	out := &dto.YearStreams{Year: dto.AcademicRef{ID: year.ID, NameAr: year.NameAr}, Streams: make([]dto.StreamItem, 0, len(streams))}
	for _, st := range streams {
		out.Streams = append(out.Streams, dto.StreamItem{
			ID: st.ID, NameAr: st.NameAr, Slug: st.Slug, DescriptionAr: st.DescriptionAr, Order: st.Order,
		})
	}
	return out, nil
}

// GetProfile returns the principal's academic profile. A missing profile is reported as incomplete.
func (s *AcademicService) GetProfile(ctx context.Context, principal models.Principal) (*dto.AcademicProfileView, error) {
	profile, err := s.profiles.FindByUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.AcademicProfileView{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic profile")
	}
	return s.profileView(ctx, profile), nil
}

// UpdateProfile stores the principal's year and stream. The stream must belong to the year.
func (s *AcademicService) UpdateProfile(ctx context.Context, principal models.Principal, req dto.UpdateAcademicProfileRequest) (*dto.AcademicProfileView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.repo.FindActiveYear(ctx, req.AcademicYearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fieldError("academic_year_id", "the selected academic year is invalid")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}
	if req.AcademicStreamID != nil {
		stream, err := s.repo.FindActiveStream(ctx, *req.AcademicStreamID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stream")
		}
		if stream == nil || stream.AcademicYearID != req.AcademicYearID {
			return nil, fieldError("academic_stream_id", "the selected stream does not belong to the academic year")
		}
	}

	yearID := req.AcademicYearID
	profile := &models.AcademicProfile{UserID: principal.UserID, AcademicYearID: &yearID, AcademicStreamID: req.AcademicStreamID}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save academic profile")
	}
	s.logger.Info("academic profile updated", zap.Int64("user_id", principal.UserID), zap.Int64("academic_year_id", yearID))
	return s.profileView(ctx, profile), nil
}

func (s *AcademicService) profileView(ctx context.Context, profile *models.AcademicProfile) *dto.AcademicProfileView {
	view := &dto.AcademicProfileView{
		AcademicYearID:   profile.AcademicYearID,
		AcademicStreamID: profile.AcademicStreamID,
		IsComplete:       profile.Complete(),
	}
	if profile.AcademicYearID != nil {
		if year, err := s.repo.FindActiveYear(ctx, *profile.AcademicYearID); err == nil {
			view.Year = &dto.AcademicRef{ID: year.ID, NameAr: year.NameAr}
		}
	}
	if profile.AcademicStreamID != nil {
		if stream, err := s.repo.FindActiveStream(ctx, *profile.AcademicStreamID); err == nil {
			view.Stream = &dto.AcademicRef{ID: stream.ID, NameAr: stream.NameAr}
		}
	}
	return view
}

// notFoundOrInternal maps sql.ErrNoRows to NOT_FOUND and anything else to INTERNAL_ERROR.
func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
