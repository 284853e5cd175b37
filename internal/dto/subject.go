package dto

import "github.com/memo-edu/memo-api/internal/models"

// SubjectQuery carries the optional scope parameters of subject listings.
type SubjectQuery struct {
	YearID   *int64 `form:"year_id" validate:"omitnil,gt=0"`
	StreamID *int64 `form:"stream_id" validate:"omitnil,gt=0"`
}

// SubjectItem is a subject as returned by listings.
type SubjectItem struct {
	ID                int64        `json:"id"`
	NameAr            string       `json:"name_ar"`
	NameFr            *string      `json:"name_fr"`
	DescriptionAr     *string      `json:"description_ar"`
	DescriptionFr     *string      `json:"description_fr"`
	Slug              string       `json:"slug"`
	Coefficient       *float64     `json:"coefficient"`
	Color             *string      `json:"color"`
	Icon              *string      `json:"icon"`
	Order             int          `json:"order"`
	AcademicYearID    *int64       `json:"academic_year_id"`
	AcademicStreamIDs models.IDSet `json:"academic_stream_ids"`
	ContentsCount     int          `json:"contents_count"`
}

// SubjectYear labels the year of a detailed subject.
type SubjectYear struct {
	ID              int64   `json:"id"`
	NameAr          string  `json:"name_ar"`
	NameFr          *string `json:"name_fr"`
	AcademicPhaseID int64   `json:"academic_phase_id"`
}

// SubjectStreamRef labels a stream of a detailed subject.
type SubjectStreamRef struct {
	ID     int64   `json:"id"`
	NameAr string  `json:"name_ar"`
	NameFr *string `json:"name_fr"`
}

// SubjectDetailItem extends SubjectItem with its year and streams.
type SubjectDetailItem struct {
	SubjectItem
	AcademicYear    *SubjectYear       `json:"academic_year"`
	AcademicStreams []SubjectStreamRef `json:"academic_streams"`
}

// SubjectChapter is a chapter listed under a subject.
type SubjectChapter struct {
	ID            int64   `json:"id"`
	TitleAr       string  `json:"title_ar"`
	TitleFr       *string `json:"title_fr"`
	DescriptionAr *string `json:"description_ar"`
	DescriptionFr *string `json:"description_fr"`
	Slug          string  `json:"slug"`
	Order         int     `json:"order"`
	ContentsCount int     `json:"contents_count"`
}

// SubjectStats summarises a subject's published material.
type SubjectStats struct {
	TotalContents int `json:"total_contents"`
	TotalChapters int `json:"total_chapters"`
}

// SubjectDetail is the payload of the subject show endpoint.
type SubjectDetail struct {
	Subject  SubjectDetailItem `json:"subject"`
	Chapters []SubjectChapter  `json:"chapters"`
	Stats    SubjectStats      `json:"stats"`
}
