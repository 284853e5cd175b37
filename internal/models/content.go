package models

import "time"

// Content type ids used for the per-chapter counters.
const (
	ContentTypeLesson   int64 = 1
	ContentTypeSummary  int64 = 2
	ContentTypeExercise int64 = 3
	ContentTypeTest     int64 = 4
)

// ContentType describes the nature of a content item (lesson, summary, ...).
type ContentType struct {
	ID     int64   `db:"id" json:"id"`
	NameAr string  `db:"name_ar" json:"name_ar"`
	NameFr *string `db:"name_fr" json:"name_fr"`
	Slug   string  `db:"slug" json:"slug"`
	Icon   *string `db:"icon" json:"icon"`
}

// ContentChapter groups contents of a subject. A nil stream means shared by all streams.
type ContentChapter struct {
	ID               int64   `db:"id" json:"id"`
	SubjectID        int64   `db:"subject_id" json:"subject_id"`
	AcademicStreamID *int64  `db:"academic_stream_id" json:"academic_stream_id"`
	TitleAr          string  `db:"title_ar" json:"title_ar"`
	TitleFr          *string `db:"title_fr" json:"title_fr"`
	Slug             string  `db:"slug" json:"slug"`
	DescriptionAr    *string `db:"description_ar" json:"description_ar"`
	DescriptionFr    *string `db:"description_fr" json:"description_fr"`
	Order            int     `db:"order" json:"order"`
	IsActive         bool    `db:"is_active" json:"is_active"`
}

// ChapterCounts is a chapter with published content counters per type.
type ChapterCounts struct {
	ContentChapter
	LessonsCount   int `db:"lessons_count"`
	SummariesCount int `db:"summaries_count"`
	ExercisesCount int `db:"exercises_count"`
	TestsCount     int `db:"tests_count"`
	ContentsCount  int `db:"contents_count"`
}

// Content is a publishable learning resource.
type Content struct {
	ID                       int64      `db:"id"`
	SubjectID                int64      `db:"subject_id"`
	AcademicStreamID         *int64     `db:"academic_stream_id"`
	ContentTypeID            int64      `db:"content_type_id"`
	ChapterID                *int64     `db:"chapter_id"`
	TitleAr                  string     `db:"title_ar"`
	TitleFr                  *string    `db:"title_fr"`
	DescriptionAr            *string    `db:"description_ar"`
	DescriptionFr            *string    `db:"description_fr"`
	ContentBodyAr            *string    `db:"content_body_ar"`
	ContentBodyFr            *string    `db:"content_body_fr"`
	Slug                     string     `db:"slug"`
	DifficultyLevel          *string    `db:"difficulty_level"`
	EstimatedDurationMinutes *int       `db:"estimated_duration_minutes"`
	Order                    int        `db:"order"`
	HasFile                  bool       `db:"has_file"`
	FilePath                 *string    `db:"file_path"`
	FileType                 *string    `db:"file_type"`
	FileSize                 *int64     `db:"file_size"`
	HasVideo                 bool       `db:"has_video"`
	VideoURL                 *string    `db:"video_url"`
	IsPublished              bool       `db:"is_published"`
	PublishedAt              *time.Time `db:"published_at"`
	IsPremium                bool       `db:"is_premium"`
	Tags                     StringList `db:"tags"`
	SearchKeywords           *string    `db:"search_keywords"`
	ViewsCount               int64      `db:"views_count"`
	DownloadsCount           int64      `db:"downloads_count"`
	CreatedAt                time.Time  `db:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at"`
}

// DownloadableFile returns the stored file path when the content carries a file.
func (c Content) DownloadableFile() (string, bool) {
	if !c.HasFile || c.FilePath == nil || *c.FilePath == "" {
		return "", false
	}
	return *c.FilePath, true
}

// ContentDetail is a content row joined with its subject, type, chapter, stream and rating aggregate.
type ContentDetail struct {
	Content
	SubjectNameAr  string   `db:"subject_name_ar"`
	SubjectNameFr  *string  `db:"subject_name_fr"`
	SubjectColor   *string  `db:"subject_color"`
	SubjectIcon    *string  `db:"subject_icon"`
	TypeNameAr     string   `db:"type_name_ar"`
	TypeNameFr     *string  `db:"type_name_fr"`
	TypeIcon       *string  `db:"type_icon"`
	ChapterTitleAr *string  `db:"chapter_title_ar"`
	ChapterTitleFr *string  `db:"chapter_title_fr"`
	StreamNameAr   *string  `db:"stream_name_ar"`
	AverageRating  *float64 `db:"average_rating"`
	TotalRatings   int      `db:"total_ratings"`
}

// Sort columns accepted by content listings.
var ContentSortColumns = map[string]bool{
	"order":       true,
	"views_count": true,
	"created_at":  true,
}

// ContentFilter narrows published content listings.
type ContentFilter struct {
	StreamID      *int64
	SubjectID     *int64
	ChapterID     *int64
	ContentTypeID *int64
	Difficulty    string
	Premium       *bool
	Search        string
	OrderBy       string
	OrderDesc     bool
	Page          int
	PerPage       int
}
