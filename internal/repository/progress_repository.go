package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

const progressColumns = `p.id, p.user_id, p.content_id, p.status, p.progress_percentage, p.time_spent_seconds, p.is_completed,
p.started_at, p.completed_at, p.last_accessed_at, p.created_at, p.updated_at`

// ProgressRepository persists content progress and ratings.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Find returns the user's progress on a content or sql.ErrNoRows.
func (r *ProgressRepository) Find(ctx context.Context, userID, contentID int64) (*models.ContentProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_content_progress p WHERE p.user_id = $1 AND p.content_id = $2`
	var progress models.ContentProgress
	if err := r.db.GetContext(ctx, &progress, query, userID, contentID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// ListForContents returns the user's progress rows among contentIDs.
func (r *ProgressRepository) ListForContents(ctx context.Context, userID int64, contentIDs []int64) ([]models.ContentProgress, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + progressColumns + ` FROM user_content_progress p WHERE p.user_id = $1 AND p.content_id = ANY($2)`
	var rows []models.ContentProgress
	if err := r.db.SelectContext(ctx, &rows, query, userID, int64Array(contentIDs)); err != nil {
		return nil, fmt.Errorf("list content progress: %w", err)
	}
	return rows, nil
}

// Save upserts the progress row. An existing started_at is never overwritten.
func (r *ProgressRepository) Save(ctx context.Context, progress *models.ContentProgress) error {
	now := time.Now().UTC()
	progress.UpdatedAt = now
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}

	const query = `INSERT INTO user_content_progress (user_id, content_id, status, progress_percentage, time_spent_seconds, is_completed,
started_at, completed_at, last_accessed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (user_id, content_id) DO UPDATE SET status = EXCLUDED.status, progress_percentage = EXCLUDED.progress_percentage,
time_spent_seconds = EXCLUDED.time_spent_seconds, is_completed = EXCLUDED.is_completed,
started_at = COALESCE(user_content_progress.started_at, EXCLUDED.started_at),
completed_at = EXCLUDED.completed_at, last_accessed_at = EXCLUDED.last_accessed_at, updated_at = EXCLUDED.updated_at
RETURNING id, started_at, created_at`
	row := r.db.QueryRowxContext(ctx, query, progress.UserID, progress.ContentID, progress.Status, progress.ProgressPercentage,
		progress.TimeSpentSeconds, progress.IsCompleted, progress.StartedAt, progress.CompletedAt, progress.LastAccessedAt,
		progress.CreatedAt, progress.UpdatedAt)
	if err := row.Scan(&progress.ID, &progress.StartedAt, &progress.CreatedAt); err != nil {
		return fmt.Errorf("save content progress: %w", err)
	}
	return nil
}

// ListWithContent returns every progress row of the user, most recently accessed first.
func (r *ProgressRepository) ListWithContent(ctx context.Context, userID int64) ([]models.ProgressWithContent, error) {
	query := `SELECT ` + progressColumns + `,
c.title_ar AS content_title_ar, c.slug AS content_slug,
s.id AS subject_id, s.name_ar AS subject_name_ar, s.color AS subject_color,
t.id AS type_id, t.name_ar AS type_name_ar, t.icon AS type_icon
FROM user_content_progress p
JOIN contents c ON c.id = p.content_id
JOIN subjects s ON s.id = c.subject_id
JOIN content_types t ON t.id = c.content_type_id
WHERE p.user_id = $1
ORDER BY p.last_accessed_at DESC NULLS LAST, p.id DESC`
	var rows []models.ProgressWithContent
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

// SubjectStats aggregates the user's progress over a subject's published contents.
func (r *ProgressRepository) SubjectStats(ctx context.Context, userID, subjectID int64) (*models.SubjectProgressStats, error) {
	const query = `SELECT
COUNT(c.id) AS total_contents,
COUNT(p.id) FILTER (WHERE p.is_completed) AS completed_contents,
COUNT(p.id) FILTER (WHERE NOT p.is_completed AND p.progress_percentage > 0) AS in_progress_contents,
COALESCE(SUM(p.time_spent_seconds), 0) AS total_time_spent
FROM contents c
LEFT JOIN user_content_progress p ON p.content_id = c.id AND p.user_id = $1
WHERE c.subject_id = $2 AND c.is_published = TRUE AND c.deleted_at IS NULL`
	var stats models.SubjectProgressStats
	if err := r.db.GetContext(ctx, &stats, query, userID, subjectID); err != nil {
		return nil, fmt.Errorf("subject progress stats: %w", err)
	}
	return &stats, nil
}

// FindRating returns the user's rating of a content or sql.ErrNoRows.
func (r *ProgressRepository) FindRating(ctx context.Context, userID, contentID int64) (*models.ContentRating, error) {
	const query = `SELECT id, user_id, content_id, rating, comment, created_at, updated_at FROM content_ratings WHERE user_id = $1 AND content_id = $2`
	var rating models.ContentRating
	if err := r.db.GetContext(ctx, &rating, query, userID, contentID); err != nil {
		return nil, err
	}
	return &rating, nil
}

// SaveRating upserts the user's rating of a content.
func (r *ProgressRepository) SaveRating(ctx context.Context, rating *models.ContentRating) error {
	now := time.Now().UTC()
	rating.CreatedAt = now
	rating.UpdatedAt = now

	const query = `INSERT INTO content_ratings (user_id, content_id, rating, comment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, content_id) DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, rating.UserID, rating.ContentID, rating.Rating, rating.Comment, rating.CreatedAt, rating.UpdatedAt)
	if err := row.Scan(&rating.ID, &rating.CreatedAt); err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	return nil
}
