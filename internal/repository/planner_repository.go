package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

const plannerColumns = `id, user_id, subject_id, difficulty_level, last_year_average, priority, progress_percentage,
last_studied_at, is_active, created_at, updated_at`

const plannerInsert = `INSERT INTO planner_subjects (user_id, subject_id, difficulty_level, last_year_average, priority,
progress_percentage, last_studied_at, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`

// PlannerRepository persists per-user planner subjects. Every query is scoped by user_id.
type PlannerRepository struct {
	db *sqlx.DB
}

// NewPlannerRepository creates a new repository instance.
func NewPlannerRepository(db *sqlx.DB) *PlannerRepository {
	return &PlannerRepository{db: db}
}

// FindByID returns the user's planner subject by primary id or sql.ErrNoRows.
func (r *PlannerRepository) FindByID(ctx context.Context, userID, id int64) (*models.PlannerSubject, error) {
	query := `SELECT ` + plannerColumns + ` FROM planner_subjects WHERE user_id = $1 AND id = $2`
	var row models.PlannerSubject
	if err := r.db.GetContext(ctx, &row, query, userID, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindBySubject returns the user's oldest planner subject for subjectID or sql.ErrNoRows.
func (r *PlannerRepository) FindBySubject(ctx context.Context, userID, subjectID int64) (*models.PlannerSubject, error) {
	query := `SELECT ` + plannerColumns + ` FROM planner_subjects WHERE user_id = $1 AND subject_id = $2 ORDER BY id LIMIT 1`
	var row models.PlannerSubject
	if err := r.db.GetContext(ctx, &row, query, userID, subjectID); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListBySubjects returns the user's planner subjects among subjectIDs ordered by id.
func (r *PlannerRepository) ListBySubjects(ctx context.Context, userID int64, subjectIDs []int64) ([]models.PlannerSubject, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + plannerColumns + ` FROM planner_subjects WHERE user_id = $1 AND subject_id = ANY($2) ORDER BY id`
	var rows []models.PlannerSubject
	if err := r.db.SelectContext(ctx, &rows, query, userID, int64Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list planner subjects by subject: %w", err)
	}
	return rows, nil
}

// CreateBatch inserts every row in one transaction. Any failure rolls back all rows.
func (r *PlannerRepository) CreateBatch(ctx context.Context, rows []*models.PlannerSubject) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin planner batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, row := range rows {
		row.CreatedAt = now
		row.UpdatedAt = now
		if err = insertPlannerSubject(ctx, tx, row); err != nil {
			return fmt.Errorf("insert planner subject %d: %w", row.SubjectID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit planner batch: %w", err)
	}
	return nil
}

// Create inserts a single planner subject.
func (r *PlannerRepository) Create(ctx context.Context, row *models.PlannerSubject) error {
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := insertPlannerSubject(ctx, r.db, row); err != nil {
		return fmt.Errorf("create planner subject: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a planner subject.
func (r *PlannerRepository) Update(ctx context.Context, row *models.PlannerSubject) error {
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE planner_subjects SET difficulty_level = $3, last_year_average = $4, priority = $5,
progress_percentage = $6, updated_at = $7 WHERE user_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, row.UserID, row.ID, row.DifficultyLevel, row.LastYearAverage,
		row.Priority, row.ProgressPercentage, row.UpdatedAt); err != nil {
		return fmt.Errorf("update planner subject: %w", err)
	}
	return nil
}

// Delete removes the user's planner subject and reports whether a row was deleted.
func (r *PlannerRepository) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM planner_subjects WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return false, fmt.Errorf("delete planner subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete planner subject rows: %w", err)
	}
	return affected > 0, nil
}

type rowQueryer interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

func insertPlannerSubject(ctx context.Context, q rowQueryer, row *models.PlannerSubject) error {
	return q.QueryRowxContext(ctx, plannerInsert, row.UserID, row.SubjectID, row.DifficultyLevel, row.LastYearAverage,
		row.Priority, row.ProgressPercentage, row.LastStudiedAt, row.IsActive, row.CreatedAt, row.UpdatedAt).Scan(&row.ID)
}
