package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

const subjectColumns = `s.id, s.name_ar, s.name_fr, s.description_ar, s.description_fr, s.slug, s.color, s.icon,
s.academic_year_id, s.academic_stream_ids, s.coefficient, s.category, s."order", s.is_active, s.created_at, s.updated_at`

const subjectSummaryQuery = `SELECT ` + subjectColumns + `,
(SELECT COUNT(*) FROM contents c WHERE c.subject_id = s.id AND c.is_published = TRUE AND c.deleted_at IS NULL) AS contents_count,
y.name_ar AS year_name_ar, y.name_fr AS year_name_fr, y.academic_phase_id AS year_phase_id
FROM subjects s LEFT JOIN academic_years y ON y.id = s.academic_year_id`

// SubjectRepository handles read access to subjects and their per-stream overrides.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns active subjects matching the filter ordered by display order.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectSummary, error) {
	var where whereBuilder
	where.add("s.is_active = TRUE")
	if filter.StreamID != nil {
		where.addStreamSet("s.academic_stream_ids", *filter.StreamID)
	}
	if filter.YearID != nil {
		where.add("s.academic_year_id = ?", *filter.YearID)
	}
	if filter.OnlyWithContents {
		where.add("EXISTS (SELECT 1 FROM contents c WHERE c.subject_id = s.id AND c.deleted_at IS NULL)")
	}

	query := subjectSummaryQuery + where.sql() + ` ORDER BY s."order", s.id`
	var subjects []models.SubjectSummary
	if err := r.db.SelectContext(ctx, &subjects, query, where.args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject regardless of its active flag.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects s WHERE s.id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindActiveSummary returns an active subject with its counters.
func (r *SubjectRepository) FindActiveSummary(ctx context.Context, id int64) (*models.SubjectSummary, error) {
	query := subjectSummaryQuery + ` WHERE s.id = $1 AND s.is_active = TRUE`
	var subject models.SubjectSummary
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByIDs returns the subjects among ids; activeOnly drops inactive ones.
func (r *SubjectRepository) ListByIDs(ctx context.Context, ids []int64, activeOnly bool) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + subjectColumns + ` FROM subjects s WHERE s.id = ANY($1)`
	if activeOnly {
		query += ` AND s.is_active = TRUE`
	}
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, int64Array(ids)); err != nil {
		return nil, fmt.Errorf("list subjects by ids: %w", err)
	}
	return subjects, nil
}

// FindStreamOverride returns the subject_stream row for the pair or sql.ErrNoRows.
func (r *SubjectRepository) FindStreamOverride(ctx context.Context, subjectID, streamID int64) (*models.SubjectStream, error) {
	const query = `SELECT id, subject_id, academic_stream_id, coefficient, category, is_active FROM subject_stream WHERE subject_id = $1 AND academic_stream_id = $2 LIMIT 1`
	var row models.SubjectStream
	if err := r.db.GetContext(ctx, &row, query, subjectID, streamID); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListStreamOverrides returns the overrides for streamID among subjectIDs.
func (r *SubjectRepository) ListStreamOverrides(ctx context.Context, streamID int64, subjectIDs []int64) ([]models.SubjectStream, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, subject_id, academic_stream_id, coefficient, category, is_active FROM subject_stream WHERE academic_stream_id = $1 AND subject_id = ANY($2)`
	var rows []models.SubjectStream
	if err := r.db.SelectContext(ctx, &rows, query, streamID, int64Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list subject stream overrides: %w", err)
	}
	return rows, nil
}
