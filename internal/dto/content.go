package dto

import (
	"time"

	"github.com/memo-edu/memo-api/internal/models"
)

// ContentQuery carries the filters of content listings and search.
type ContentQuery struct {
	StreamID       *int64 `form:"stream_id" validate:"omitnil,gt=0"`
	SubjectID      *int64 `form:"subject_id" validate:"omitnil,gt=0"`
	ChapterID      *int64 `form:"chapter_id" validate:"omitnil,gt=0"`
	ContentTypeID  *int64 `form:"content_type_id" validate:"omitnil,gt=0"`
	Difficulty     string `form:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Premium        *bool  `form:"premium"`
	OrderBy        string `form:"order_by"`
	OrderDirection string `form:"order_direction" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	PerPage        int    `form:"per_page" validate:"omitempty,min=1"`
	Q              string `form:"q"`
}

// ChapterQuery selects the subject whose chapters are listed.
type ChapterQuery struct {
	SubjectID int64  `form:"subject_id" validate:"required,gt=0"`
	StreamID  *int64 `form:"stream_id" validate:"omitnil,gt=0"`
}

// Ref is a labelled relation embedded in content payloads.
type Ref struct {
	ID     int64   `json:"id"`
	NameAr string  `json:"name_ar"`
	NameFr *string `json:"name_fr,omitempty"`
	Color  *string `json:"color,omitempty"`
	Icon   *string `json:"icon,omitempty"`
}

// ChapterRef is a chapter relation embedded in content payloads.
type ChapterRef struct {
	ID      int64   `json:"id"`
	TitleAr string  `json:"title_ar"`
	TitleFr *string `json:"title_fr,omitempty"`
}

// UserProgressView is the caller's progress embedded in content payloads.
type UserProgressView struct {
	ProgressPercentage int                   `json:"progress_percentage"`
	IsCompleted        bool                  `json:"is_completed"`
	Status             models.ProgressStatus `json:"status"`
	TimeSpentSeconds   int64                 `json:"time_spent_seconds"`
	StartedAt          *time.Time            `json:"started_at"`
	CompletedAt        *time.Time            `json:"completed_at"`
	LastAccessedAt     *time.Time            `json:"last_accessed_at"`
}

// ContentItem is a content as returned by listings.
type ContentItem struct {
	ID                       int64             `json:"id"`
	AcademicStreamID         *int64            `json:"academic_stream_id"`
	TitleAr                  string            `json:"title_ar"`
	TitleFr                  *string           `json:"title_fr"`
	DescriptionAr            *string           `json:"description_ar"`
	DescriptionFr            *string           `json:"description_fr"`
	Slug                     string            `json:"slug"`
	DifficultyLevel          *string           `json:"difficulty_level"`
	EstimatedDurationMinutes *int              `json:"estimated_duration_minutes"`
	IsPremium                bool              `json:"is_premium"`
	ViewsCount               int64             `json:"views_count"`
	DownloadsCount           int64             `json:"downloads_count"`
	AverageRating            *float64          `json:"average_rating"`
	TotalRatings             int               `json:"total_ratings"`
	Order                    int               `json:"order"`
	Subject                  Ref               `json:"subject"`
	Type                     Ref               `json:"type"`
	AcademicStream           *Ref              `json:"academic_stream,omitempty"`
	Chapter                  *ChapterRef       `json:"chapter,omitempty"`
	UserProgress             *UserProgressView `json:"user_progress"`
}

// ContentFile describes the downloadable file of a content.
type ContentFile struct {
	URL       string     `json:"url"`
	Name      string     `json:"name"`
	Type      *string    `json:"type"`
	Size      *int64     `json:"size"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ContentFiles groups the file and video attributes of a detailed content.
type ContentFiles struct {
	PDF      *ContentFile `json:"pdf"`
	HasFile  bool         `json:"has_file"`
	FilePath *string      `json:"file_path"`
	FileType *string      `json:"file_type"`
	VideoURL *string      `json:"video_url"`
	HasVideo bool         `json:"has_video"`
}

// ContentDetailItem is the payload of the content show endpoint.
type ContentDetailItem struct {
	ContentItem
	ContentBodyAr *string           `json:"content_body_ar"`
	ContentBodyFr *string           `json:"content_body_fr"`
	Tags          models.StringList `json:"tags"`
	Files         ContentFiles      `json:"files"`
	PublishedAt   *time.Time        `json:"published_at"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ContentCounts breaks a chapter's published contents down by type.
type ContentCounts struct {
	Lessons   int `json:"lessons"`
	Summaries int `json:"summaries"`
	Exercises int `json:"exercises"`
	Tests     int `json:"tests"`
}

// ChapterItem is a chapter with its content counters.
type ChapterItem struct {
	ID               int64         `json:"id"`
	SubjectID        int64         `json:"subject_id"`
	AcademicStreamID *int64        `json:"academic_stream_id"`
	TitleAr          string        `json:"title_ar"`
	TitleFr          string        `json:"title_fr"`
	Slug             string        `json:"slug"`
	DescriptionAr    *string       `json:"description_ar"`
	Order            int           `json:"order"`
	IsActive         bool          `json:"is_active"`
	ContentCounts    ContentCounts `json:"content_counts"`
	TotalCount       int           `json:"total_count"`
}

// ChapterHeader describes the chapter of a chapter contents listing.
type ChapterHeader struct {
	ID               int64   `json:"id"`
	TitleAr          string  `json:"title_ar"`
	TitleFr          *string `json:"title_fr"`
	DescriptionAr    *string `json:"description_ar"`
	AcademicStreamID *int64  `json:"academic_stream_id"`
}

// ChapterContents is the payload of the chapter contents endpoint.
type ChapterContents struct {
	Chapter  ChapterHeader `json:"chapter"`
	Contents []ContentItem `json:"contents"`
}
