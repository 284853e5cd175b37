package dto

import "time"

// BookmarkQuery filters the bookmark list.
type BookmarkQuery struct {
	ContentTypeID *int64 `form:"content_type_id" validate:"omitnil,gt=0"`
	SubjectID     *int64 `form:"subject_id" validate:"omitnil,gt=0"`
}

// StoreBookmarkRequest creates or replaces a bookmark.
type StoreBookmarkRequest struct {
	PageNumber       *int    `json:"page_number" validate:"omitnil,min=1"`
	TimestampSeconds *int    `json:"timestamp_seconds" validate:"omitnil,min=0"`
	Notes            *string `json:"notes" validate:"omitnil,max=1000"`
}

// BookmarkContent is the content summary embedded in a bookmark.
type BookmarkContent struct {
	ID                       int64       `json:"id"`
	TitleAr                  string      `json:"title_ar"`
	TitleFr                  *string     `json:"title_fr"`
	Slug                     string      `json:"slug"`
	DifficultyLevel          *string     `json:"difficulty_level"`
	EstimatedDurationMinutes *int        `json:"estimated_duration_minutes"`
	IsPremium                bool        `json:"is_premium"`
	Subject                  Ref         `json:"subject"`
	Type                     Ref         `json:"type"`
	Chapter                  *ChapterRef `json:"chapter"`
}

// BookmarkView is a bookmark as returned to its owner.
type BookmarkView struct {
	ID               int64           `json:"id"`
	Content          BookmarkContent `json:"content"`
	PageNumber       *int            `json:"page_number"`
	TimestampSeconds *int            `json:"timestamp_seconds"`
	Notes            *string         `json:"notes"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BookmarkCheck reports whether a content is bookmarked.
type BookmarkCheck struct {
	IsBookmarked bool          `json:"is_bookmarked"`
	Bookmark     *BookmarkView `json:"bookmark"`
}

// BookmarkCount is the payload of the count endpoint.
type BookmarkCount struct {
	TotalBookmarks int `json:"total_bookmarks"`
}
