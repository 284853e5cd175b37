package models

import "time"

// AcademicPhase is the top level of the academic structure (e.g. secondary school).
type AcademicPhase struct {
	ID       int64   `db:"id" json:"id"`
	NameAr   string  `db:"name_ar" json:"name_ar"`
	NameFr   *string `db:"name_fr" json:"name_fr"`
	Slug     string  `db:"slug" json:"slug"`
	Order    int     `db:"order" json:"order"`
	IsActive bool    `db:"is_active" json:"-"`
}

// AcademicYear belongs to a phase.
type AcademicYear struct {
	ID              int64   `db:"id" json:"id"`
	AcademicPhaseID int64   `db:"academic_phase_id" json:"academic_phase_id"`
	NameAr          string  `db:"name_ar" json:"name_ar"`
	NameFr          *string `db:"name_fr" json:"name_fr"`
	Slug            string  `db:"slug" json:"slug"`
	LevelNumber     *int    `db:"level_number" json:"level_number"`
	Order           int     `db:"order" json:"order"`
	IsActive        bool    `db:"is_active" json:"-"`
}

// AcademicStream is a track within a year, e.g. science or literature.
type AcademicStream struct {
	ID             int64   `db:"id" json:"id"`
	AcademicYearID int64   `db:"academic_year_id" json:"academic_year_id"`
	NameAr         string  `db:"name_ar" json:"name_ar"`
	NameFr         *string `db:"name_fr" json:"name_fr"`
	Slug           string  `db:"slug" json:"slug"`
	DescriptionAr  *string `db:"description_ar" json:"description_ar"`
	Order          int     `db:"order" json:"order"`
	IsActive       bool    `db:"is_active" json:"-"`
}

// AcademicProfile stores the user's current academic scope.
type AcademicProfile struct {
	UserID           int64     `db:"user_id" json:"user_id"`
	AcademicYearID   *int64    `db:"academic_year_id" json:"academic_year_id"`
	AcademicStreamID *int64    `db:"academic_stream_id" json:"academic_stream_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Complete reports whether both year and stream are configured.
func (p *AcademicProfile) Complete() bool {
	return p != nil && p.AcademicYearID != nil && p.AcademicStreamID != nil
}

// StreamNode is a stream inside the academic structure tree.
type StreamNode struct {
	ID     int64   `json:"id"`
	NameAr string  `json:"name_ar"`
	NameFr *string `json:"name_fr"`
	Slug   string  `json:"slug"`
	Order  int     `json:"order"`
}

// YearNode is a year with its active streams.
type YearNode struct {
	ID      int64        `json:"id"`
	NameAr  string       `json:"name_ar"`
	NameFr  *string      `json:"name_fr"`
	Slug    string       `json:"slug"`
	Order   int          `json:"order"`
	Streams []StreamNode `json:"streams"`
}

// PhaseNode is a phase with its active years.
type PhaseNode struct {
	ID     int64      `json:"id"`
	NameAr string     `json:"name_ar"`
	NameFr *string    `json:"name_fr"`
	Slug   string     `json:"slug"`
	Order  int        `json:"order"`
	Years  []YearNode `json:"years"`
}

// AcademicStructure is the full phases → years → streams tree.
type AcademicStructure struct {
	Phases []PhaseNode `json:"phases"`
}
