package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

const bookmarkSelect = `SELECT b.id, b.user_id, b.content_id, b.page_number, b.timestamp_seconds, b.notes, b.created_at, b.updated_at,
c.title_ar AS content_title_ar, c.title_fr AS content_title_fr, c.slug AS content_slug,
c.difficulty_level AS content_difficulty_level, c.estimated_duration_minutes AS content_estimated_duration_minutes,
c.is_premium AS content_is_premium,
s.id AS subject_id, s.name_ar AS subject_name_ar, s.color AS subject_color, s.icon AS subject_icon,
t.id AS type_id, t.name_ar AS type_name_ar, t.icon AS type_icon,
ch.id AS chapter_id, ch.title_ar AS chapter_title_ar
FROM content_bookmarks b
JOIN contents c ON c.id = b.content_id
JOIN subjects s ON s.id = c.subject_id
JOIN content_types t ON t.id = c.content_type_id
LEFT JOIN content_chapters ch ON ch.id = c.chapter_id`

// BookmarkRepository persists per-user content bookmarks.
type BookmarkRepository struct {
	db *sqlx.DB
}

// NewBookmarkRepository creates a new repository instance.
func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// List returns the user's bookmarks, newest first.
func (r *BookmarkRepository) List(ctx context.Context, userID int64, filter models.BookmarkFilter) ([]models.BookmarkWithContent, error) {
	var where whereBuilder
	where.add("b.user_id = ?", userID)
	if filter.ContentTypeID != nil {
		where.add("c.content_type_id = ?", *filter.ContentTypeID)
	}
	if filter.SubjectID != nil {
		where.add("c.subject_id = ?", *filter.SubjectID)
	}

	var bookmarks []models.BookmarkWithContent
	if err := r.db.SelectContext(ctx, &bookmarks, bookmarkSelect+where.sql()+` ORDER BY b.created_at DESC, b.id DESC`, where.args...); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return bookmarks, nil
}

// Find returns the user's bookmark on a content or sql.ErrNoRows.
func (r *BookmarkRepository) Find(ctx context.Context, userID, contentID int64) (*models.BookmarkWithContent, error) {
	var bookmark models.BookmarkWithContent
	query := bookmarkSelect + ` WHERE b.user_id = $1 AND b.content_id = $2`
	if err := r.db.GetContext(ctx, &bookmark, query, userID, contentID); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// Upsert creates the bookmark or replaces its position and notes.
func (r *BookmarkRepository) Upsert(ctx context.Context, bookmark *models.ContentBookmark) error {
	now := time.Now().UTC()
	bookmark.CreatedAt = now
	bookmark.UpdatedAt = now

	const query = `INSERT INTO content_bookmarks (user_id, content_id, page_number, timestamp_seconds, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, content_id) DO UPDATE SET page_number = EXCLUDED.page_number, timestamp_seconds = EXCLUDED.timestamp_seconds,
notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, bookmark.UserID, bookmark.ContentID, bookmark.PageNumber,
		bookmark.TimestampSeconds, bookmark.Notes, bookmark.CreatedAt, bookmark.UpdatedAt)
	if err := row.Scan(&bookmark.ID, &bookmark.CreatedAt); err != nil {
		return fmt.Errorf("upsert bookmark: %w", err)
	}
	return nil
}

// Delete removes the user's bookmark on a content and reports whether one existed.
func (r *BookmarkRepository) Delete(ctx context.Context, userID, contentID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_bookmarks WHERE user_id = $1 AND content_id = $2`, userID, contentID)
	if err != nil {
		return false, fmt.Errorf("delete bookmark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete bookmark rows: %w", err)
	}
	return affected > 0, nil
}

// Count returns how many bookmarks the user has.
func (r *BookmarkRepository) Count(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM content_bookmarks WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count bookmarks: %w", err)
	}
	return count, nil
}
