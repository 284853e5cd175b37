package models

import "time"

// SubjectCategory classifies how a subject is studied within a stream.
type SubjectCategory string

const (
	CategoryHardCore     SubjectCategory = "HARD_CORE"
	CategoryMemorization SubjectCategory = "MEMORIZATION"
	CategoryLanguage     SubjectCategory = "LANGUAGE"
	CategoryOther        SubjectCategory = "OTHER"
)

// Weight returns the planner weighting factor for the category.
func (c SubjectCategory) Weight() float64 {
	switch c {
	case CategoryHardCore:
		return 1.10
	case CategoryLanguage:
		return 0.95
	default:
		return 1.00
	}
}

// Valid reports whether c is a known category.
func (c SubjectCategory) Valid() bool {
	switch c {
	case CategoryHardCore, CategoryMemorization, CategoryLanguage, CategoryOther:
		return true
	}
	return false
}

// Subject is shared reference data describing a taught subject.
type Subject struct {
	ID                int64            `db:"id" json:"id"`
	NameAr            string           `db:"name_ar" json:"name_ar"`
	NameFr            *string          `db:"name_fr" json:"name_fr"`
	DescriptionAr     *string          `db:"description_ar" json:"description_ar"`
	DescriptionFr     *string          `db:"description_fr" json:"description_fr"`
	Slug              string           `db:"slug" json:"slug"`
	Color             *string          `db:"color" json:"color"`
	Icon              *string          `db:"icon" json:"icon"`
	AcademicYearID    *int64           `db:"academic_year_id" json:"academic_year_id"`
	AcademicStreamIDs IDSet            `db:"academic_stream_ids" json:"academic_stream_ids"`
	Coefficient       *float64         `db:"coefficient" json:"coefficient"`
	Category          *SubjectCategory `db:"category" json:"category,omitempty"`
	Order             int              `db:"order" json:"order"`
	IsActive          bool             `db:"is_active" json:"is_active"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// VisibleToStream applies the stream visibility rule: a subject without a stream
// restriction is shared by every stream of its year.
func (s Subject) VisibleToStream(streamID int64) bool {
	return s.AcademicStreamIDs.Empty() || s.AcademicStreamIDs.Contains(streamID)
}

// SubjectStream overrides a subject's coefficient and category for one stream.
// At most one row exists per (subject_id, academic_stream_id).
type SubjectStream struct {
	ID               int64            `db:"id" json:"id"`
	SubjectID        int64            `db:"subject_id" json:"subject_id"`
	AcademicStreamID int64            `db:"academic_stream_id" json:"academic_stream_id"`
	Coefficient      float64          `db:"coefficient" json:"coefficient"`
	Category         *SubjectCategory `db:"category" json:"category"`
	IsActive         bool             `db:"is_active" json:"is_active"`
}

// SubjectFilter narrows subject listings. A nil field applies no filter.
type SubjectFilter struct {
	YearID           *int64
	StreamID         *int64
	OnlyWithContents bool
}

// SubjectSummary is a subject row with its published content count and year labels.
type SubjectSummary struct {
	Subject
	ContentsCount int     `db:"contents_count" json:"contents_count"`
	YearNameAr    *string `db:"year_name_ar" json:"-"`
	YearNameFr    *string `db:"year_name_fr" json:"-"`
	YearPhaseID   *int64  `db:"year_phase_id" json:"-"`
}
