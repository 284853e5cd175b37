package models

import "time"

// ContentBookmark marks a content for later; unique per (user_id, content_id).
type ContentBookmark struct {
	ID               int64     `db:"id"`
	UserID           int64     `db:"user_id"`
	ContentID        int64     `db:"content_id"`
	PageNumber       *int      `db:"page_number"`
	TimestampSeconds *int      `db:"timestamp_seconds"`
	Notes            *string   `db:"notes"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// BookmarkWithContent is a bookmark joined with the labels shown in bookmark lists.
type BookmarkWithContent struct {
	ContentBookmark
	ContentTitleAr           string  `db:"content_title_ar"`
	ContentTitleFr           *string `db:"content_title_fr"`
	ContentSlug              string  `db:"content_slug"`
	ContentDifficulty        *string `db:"content_difficulty_level"`
	ContentEstimatedDuration *int    `db:"content_estimated_duration_minutes"`
	ContentIsPremium         bool    `db:"content_is_premium"`
	SubjectID                int64   `db:"subject_id"`
	SubjectNameAr            string  `db:"subject_name_ar"`
	SubjectColor             *string `db:"subject_color"`
	SubjectIcon              *string `db:"subject_icon"`
	TypeID                   int64   `db:"type_id"`
	TypeNameAr               string  `db:"type_name_ar"`
	TypeIcon                 *string `db:"type_icon"`
	ChapterID                *int64  `db:"chapter_id"`
	ChapterTitleAr           *string `db:"chapter_title_ar"`
}

// BookmarkFilter narrows a user's bookmark list.
type BookmarkFilter struct {
	ContentTypeID *int64
	SubjectID     *int64
}
