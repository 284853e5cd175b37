package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

const (
	phaseColumns  = `id, name_ar, name_fr, slug, "order", is_active`
	yearColumns   = `id, academic_phase_id, name_ar, name_fr, slug, level_number, "order", is_active`
	streamColumns = `id, academic_year_id, name_ar, name_fr, slug, description_ar, "order", is_active`
)

// AcademicRepository reads the academic structure reference data.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository creates a new repository instance.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// ListPhases returns active phases ordered for display.
func (r *AcademicRepository) ListPhases(ctx context.Context) ([]models.AcademicPhase, error) {
	query := `SELECT ` + phaseColumns + ` FROM academic_phases WHERE is_active = TRUE ORDER BY "order", id`
	var phases []models.AcademicPhase
	if err := r.db.SelectContext(ctx, &phases, query); err != nil {
		return nil, fmt.Errorf("list academic phases: %w", err)
	}
	return phases, nil
}

// ListYears returns active years, optionally restricted to one phase.
func (r *AcademicRepository) ListYears(ctx context.Context, phaseID *int64) ([]models.AcademicYear, error) {
	query := `SELECT ` + yearColumns + ` FROM academic_years WHERE is_active = TRUE`
	var args []interface{}
	if phaseID != nil {
		query += ` AND academic_phase_id = $1`
		args = append(args, *phaseID)
	}
	query += ` ORDER BY "order", id`

	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// ListStreams returns active streams, optionally restricted to one year.
func (r *AcademicRepository) ListStreams(ctx context.Context, yearID *int64) ([]models.AcademicStream, error) {
	query := `SELECT ` + streamColumns + ` FROM academic_streams WHERE is_active = TRUE`
	var args []interface{}
	if yearID != nil {
		query += ` AND academic_year_id = $1`
		args = append(args, *yearID)
	}
	query += ` ORDER BY "order", id`

	var streams []models.AcademicStream
	if err := r.db.SelectContext(ctx, &streams, query, args...); err != nil {
		return nil, fmt.Errorf("list academic streams: %w", err)
	}
	return streams, nil
}

// StreamsByIDs returns streams regardless of their active flag.
func (r *AcademicRepository) StreamsByIDs(ctx context.Context, ids []int64) ([]models.AcademicStream, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + streamColumns + ` FROM academic_streams WHERE id = ANY($1) ORDER BY "order", id`
	var streams []models.AcademicStream
	if err := r.db.SelectContext(ctx, &streams, query, int64Array(ids)); err != nil {
		return nil, fmt.Errorf("list streams by ids: %w", err)
	}
	return streams, nil
}

// FindActivePhase returns an active phase by id.
func (r *AcademicRepository) FindActivePhase(ctx context.Context, id int64) (*models.AcademicPhase, error) {
	var phase models.AcademicPhase
	query := `SELECT ` + phaseColumns + ` FROM academic_phases WHERE id = $1 AND is_active = TRUE`
	if err := r.db.GetContext(ctx, &phase, query, id); err != nil {
		return nil, err
	}
	return &phase, nil
}

// FindActiveYear returns an active year by id.
func (r *AcademicRepository) FindActiveYear(ctx context.Context, id int64) (*models.AcademicYear, error) {
	var year models.AcademicYear
	query := `SELECT ` + yearColumns + ` FROM academic_years WHERE id = $1 AND is_active = TRUE`
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindActiveStream returns an active stream by id.
func (r *AcademicRepository) FindActiveStream(ctx context.Context, id int64) (*models.AcademicStream, error) {
	var stream models.AcademicStream
	query := `SELECT ` + streamColumns + ` FROM academic_streams WHERE id = $1 AND is_active = TRUE`
	if err := r.db.GetContext(ctx, &stream, query, id); err != nil {
		return nil, err
	}
	return &stream, nil
}
