package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
	"github.com/memo-edu/memo-api/pkg/export"
	"github.com/memo-edu/memo-api/pkg/middleware/requestid"
)

const (
	defaultPlannerColor = "#3B82F6"
	defaultPlannerIcon  = "book"

	// MessageProfileNotConfigured accompanies an empty planner listing.
	MessageProfileNotConfigured = "Academic profile not configured"
)

type plannerRepository interface {
	FindByID(ctx context.Context, userID, id int64) (*models.PlannerSubject, error)
	FindBySubject(ctx context.Context, userID, subjectID int64) (*models.PlannerSubject, error)
	ListBySubjects(ctx context.Context, userID int64, subjectIDs []int64) ([]models.PlannerSubject, error)
	CreateBatch(ctx context.Context, rows []*models.PlannerSubject) error
	Create(ctx context.Context, row *models.PlannerSubject) error
	Update(ctx context.Context, row *models.PlannerSubject) error
	Delete(ctx context.Context, userID, id int64) (bool, error)
}

type plannerSubjectReader interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, error)
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	ListByIDs(ctx context.Context, ids []int64, activeOnly bool) ([]models.Subject, error)
	ListStreamOverrides(ctx context.Context, streamID int64, subjectIDs []int64) ([]models.SubjectStream, error)
}

type plannerExporter interface {
	Render(format, baseName string, table export.Table) (*dto.PlannerExport, error)
}

// PlannerConfig tunes the planner service.
type PlannerConfig struct {
	BatchMax int
}

// PlannerService manages the per-user planner subjects.
type PlannerService struct {
	planner   plannerRepository
	subjects  plannerSubjectReader
	scopes    *ScopeResolver
	exporter  plannerExporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PlannerConfig
}

// NewPlannerService constructs a PlannerService.
func NewPlannerService(planner plannerRepository, subjects plannerSubjectReader, scopes *ScopeResolver, exporter plannerExporter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PlannerConfig) *PlannerService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchMax <= 0 {
		cfg.BatchMax = 20
	}
	return &PlannerService{
		planner:   planner,
		subjects:  subjects,
		scopes:    scopes,
		exporter:  exporter,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// BatchCreate creates every requested planner subject or none of them.
//
// The duplicate check against existing rows runs before the transaction and nothing in the
// schema enforces (user_id, subject_id) uniqueness, so two concurrent batches for the same
// user can both pass it.
func (s *PlannerService) BatchCreate(ctx context.Context, principal models.Principal, req dto.BatchCreatePlannerSubjectsRequest) (*dto.BatchCreatePlannerSubjectsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordPlannerBatch("rejected")
		return nil, validationError(err)
	}
	if len(req.Subjects) > s.cfg.BatchMax {
		s.metrics.RecordPlannerBatch("rejected")
		return nil, fieldError("subjects", fmt.Sprintf("may not contain more than %d items", s.cfg.BatchMax))
	}

	subjectIDs := make([]int64, len(req.Subjects))
	seen := make(map[int64]struct{}, len(req.Subjects))
	for i, item := range req.Subjects {
		if _, dup := seen[item.SubjectID]; dup {
			s.metrics.RecordPlannerBatch("rejected")
			return nil, appErrors.ErrDuplicateInRequest
		}
		seen[item.SubjectID] = struct{}{}
		subjectIDs[i] = item.SubjectID
	}

	subjects, err := s.subjects.ListByIDs(ctx, subjectIDs, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	byID := make(map[int64]models.Subject, len(subjects))
	for _, subject := range subjects {
		byID[subject.ID] = subject
	}
	for i, id := range subjectIDs {
		if _, ok := byID[id]; !ok {
			s.metrics.RecordPlannerBatch("rejected")
			return nil, fieldError(fmt.Sprintf("subjects.%d.subject_id", i), "the selected subject is invalid")
		}
	}

	existing, err := s.planner.ListBySubjects(ctx, principal.UserID, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check planner subjects")
	}
	if len(existing) > 0 {
		first := existing[0]
		s.metrics.RecordPlannerBatch("rejected")
		return nil, appErrors.WithData(appErrors.ErrDuplicateSubject,
			fmt.Sprintf("subject %d already exists in planner", first.SubjectID),
			dto.DuplicateSubjectData{SubjectID: first.SubjectID, ExistingPlannerSubjectID: first.ID})
	}

	rows := make([]*models.PlannerSubject, len(req.Subjects))
	for i, item := range req.Subjects {
		row := &models.PlannerSubject{
			UserID:          principal.UserID,
			SubjectID:       item.SubjectID,
			DifficultyLevel: item.DifficultyLevel,
			LastYearAverage: item.LastYearAverage,
			Priority:        models.Priority(item.Priority),
			IsActive:        true,
		}
		if item.ProgressPercentage != nil {
			row.ProgressPercentage = float64(*item.ProgressPercentage)
		}
		rows[i] = row
	}

	start := time.Now()
	err = s.planner.CreateBatch(ctx, rows)
	s.metrics.ObserveDBOperation("planner_batch_create", time.Since(start))
	if err != nil {
		s.metrics.RecordPlannerBatch("failed")
		s.logger.Error("planner batch transaction failed",
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Int64("user_id", principal.UserID),
			zap.Int64s("subject_ids", subjectIDs),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, appErrors.ErrTransactionFailed.Message)
	}
	s.metrics.RecordPlannerBatch("created")

	created := make([]models.PlannerSubject, len(rows))
	for i, row := range rows {
		subject := byID[row.SubjectID]
		row.Subject = &subject
		created[i] = *row
	}
	return &dto.BatchCreatePlannerSubjectsResult{CreatedCount: len(created), Subjects: created}, nil
}

// List returns the subjects of the principal's year visible to their stream merged with
// their planner rows. It returns nil when the academic profile is incomplete.
func (s *PlannerService) List(ctx context.Context, principal models.Principal) ([]dto.PlannerListItem, error) {
	profile, err := s.scopes.Profile(ctx, &principal)
	if err != nil {
		return nil, err
	}
	if !profile.Complete() {
		return nil, nil
	}
	streamID := *profile.AcademicStreamID

	subjects, err := s.subjects.List(ctx, models.SubjectFilter{YearID: profile.AcademicYearID, StreamID: &streamID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	ids := make([]int64, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}

	overrides, err := s.subjects.ListStreamOverrides(ctx, streamID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject coefficients")
	}
	overrideBySubject := make(map[int64]*models.SubjectStream, len(overrides))
	for i := range overrides {
		overrideBySubject[overrides[i].SubjectID] = &overrides[i]
	}

	rows, err := s.planner.ListBySubjects(ctx, principal.UserID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list planner subjects")
	}
	rowBySubject := make(map[int64]*models.PlannerSubject, len(rows))
	for i := range rows {
		if _, ok := rowBySubject[rows[i].SubjectID]; !ok {
			rowBySubject[rows[i].SubjectID] = &rows[i]
		}
	}

	items := make([]dto.PlannerListItem, 0, len(subjects))
	for _, subject := range subjects {
		items = append(items, buildPlannerItem(subject.Subject, overrideBySubject[subject.ID], rowBySubject[subject.ID]))
	}
	return items, nil
}

func buildPlannerItem(subject models.Subject, override *models.SubjectStream, row *models.PlannerSubject) dto.PlannerListItem {
	color := stringOr(subject.Color, defaultPlannerColor)
	icon := stringOr(subject.Icon, defaultPlannerIcon)
	category := ResolveCategory(subject, override)

	item := dto.PlannerListItem{
		ID:              subject.ID,
		SubjectID:       subject.ID,
		Name:            subject.NameAr,
		NameAr:          subject.NameAr,
		ColorHex:        color,
		Color:           color,
		IconName:        icon,
		Icon:            icon,
		Coefficient:     ResolveCoefficient(subject, override),
		Category:        category,
		CategoryWeight:  category.Weight(),
		DifficultyLevel: models.ListingDefaultDifficulty,
		Priority:        models.PriorityMedium,
		IsActive:        true,
	}
	if row != nil {
		id := row.ID
		item.PlannerSubjectID = &id
		item.DifficultyLevel = row.DifficultyLevel
		item.ProgressPercentage = row.ProgressPercentage
		item.LastStudiedAt = row.LastStudiedAt
		item.LastYearAverage = row.LastYearAverage
		item.Priority = row.Priority
		item.IsActive = row.IsActive
	}
	return item
}

// Get resolves id as a planner subject id first, then as a subject id.
func (s *PlannerService) Get(ctx context.Context, principal models.Principal, id int64) (*models.PlannerSubject, error) {
	row, err := s.find(ctx, principal.UserID, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "planner subject not found")
	}
	subject, err := s.subjects.FindByID(ctx, row.SubjectID)
	if err == nil {
		row.Subject = subject
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return row, nil
}

// Upsert updates the planner row addressed by id, creating it from the subject when absent.
func (s *PlannerService) Upsert(ctx context.Context, principal models.Principal, id int64, req dto.UpdatePlannerSubjectRequest) (*dto.UpsertPlannerSubjectResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.LastYearAverage.Value != nil {
		if v := *req.LastYearAverage.Value; v < 0 || v > 20 {
			return nil, fieldError("last_year_average", "must be between 0 and 20")
		}
	}

	row, err := s.find(ctx, principal.UserID, id)
	if err != nil {
		return nil, err
	}

	patch := toPlannerPatch(req)
	outcome := models.OutcomeUpdated
	if row == nil {
		if _, err := s.subjects.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		row = &models.PlannerSubject{
			UserID:          principal.UserID,
			SubjectID:       id,
			DifficultyLevel: models.DefaultPlannerDifficulty,
			Priority:        models.PriorityMedium,
			IsActive:        true,
		}
		patch.Apply(row)
		if err := s.planner.Create(ctx, row); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create planner subject")
		}
		outcome = models.OutcomeCreated
	} else if !patch.Empty() {
		patch.Apply(row)
		if err := s.planner.Update(ctx, row); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update planner subject")
		}
	}

	return &dto.UpsertPlannerSubjectResult{
		ID:              row.SubjectID,
		DifficultyLevel: row.DifficultyLevel,
		LastYearAverage: row.LastYearAverage,
		Outcome:         outcome,
	}, nil
}

func toPlannerPatch(req dto.UpdatePlannerSubjectRequest) models.PlannerSubjectPatch {
	var patch models.PlannerSubjectPatch
	if req.DifficultyLevel != nil {
		level := CompressDifficulty(*req.DifficultyLevel)
		patch.DifficultyLevel = &level
	}
	if req.LastYearAverage.Set {
		if req.LastYearAverage.Value == nil {
			patch.ClearLastYearAverage = true
		} else {
			v := *req.LastYearAverage.Value
			patch.LastYearAverage = &v
		}
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.ProgressPercentage != nil {
		v := *req.ProgressPercentage
		patch.ProgressPercentage = &v
	}
	return patch
}

// Delete removes the planner row addressed by planner id or subject id.
func (s *PlannerService) Delete(ctx context.Context, principal models.Principal, id int64) error {
	row, err := s.find(ctx, principal.UserID, id)
	if err != nil {
		return err
	}
	if row == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "planner subject not found")
	}
	deleted, err := s.planner.Delete(ctx, principal.UserID, row.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete planner subject")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "planner subject not found")
	}
	return nil
}

var plannerExportColumns = []export.Column{
	{Key: "name", Label: "Subject"},
	{Key: "coefficient", Label: "Coefficient", Width: 24},
	{Key: "category", Label: "Category", Width: 32},
	{Key: "difficulty", Label: "Difficulty", Width: 22},
	{Key: "priority", Label: "Priority", Width: 24},
	{Key: "progress", Label: "Progress %", Width: 24},
	{Key: "last_year_average", Label: "Last year avg", Width: 28},
}

// Export renders the planner listing as csv or pdf.
func (s *PlannerService) Export(ctx context.Context, principal models.Principal, query dto.PlannerExportQuery) (*dto.PlannerExport, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}
	items, err := s.List(ctx, principal)
	if err != nil {
		return nil, err
	}

	table := export.Table{Title: "Study planner", Columns: plannerExportColumns, Rows: make([]map[string]string, 0, len(items))}
	for _, item := range items {
		average := ""
		if item.LastYearAverage != nil {
			average = strconv.FormatFloat(*item.LastYearAverage, 'f', 2, 64)
		}
		table.Rows = append(table.Rows, map[string]string{
			"name":              item.Name,
			"coefficient":       strconv.FormatFloat(item.Coefficient, 'f', -1, 64),
			"category":          string(item.Category),
			"difficulty":        strconv.Itoa(item.DifficultyLevel),
			"priority":          string(item.Priority),
			"progress":          strconv.FormatFloat(item.ProgressPercentage, 'f', 0, 64),
			"last_year_average": average,
		})
	}
	return s.exporter.Render(query.Format, "planner", table)
}

// find returns nil without error when neither lookup matches.
func (s *PlannerService) find(ctx context.Context, userID, id int64) (*models.PlannerSubject, error) {
	row, err := s.planner.FindByID(ctx, userID, id)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner subject")
	}
	row, err = s.planner.FindBySubject(ctx, userID, id)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planner subject")
	}
	return nil, nil
}

func stringOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
