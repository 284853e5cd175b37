package dto

// UpdateAcademicProfileRequest sets the user's year and optional stream.
type UpdateAcademicProfileRequest struct {
	AcademicYearID   int64  `json:"academic_year_id" validate:"required,gt=0"`
	AcademicStreamID *int64 `json:"academic_stream_id" validate:"omitnil,gt=0"`
}

// AcademicRef is a minimal id and label pair.
type AcademicRef struct {
	ID     int64  `json:"id"`
	NameAr string `json:"name_ar"`
}

// PhaseYears lists the active years of a phase.
type PhaseYears struct {
	Phase AcademicRef `json:"phase"`
	Years []YearItem  `json:"years"`
}

// YearItem is a year row of the years endpoint.
type YearItem struct {
	ID              int64  `json:"id"`
	NameAr          string `json:"name_ar"`
	LevelNumber     *int   `json:"level_number"`
	Order           int    `json:"order"`
	AcademicPhaseID int64  `json:"academic_phase_id"`
}

// YearStreams lists the active streams of a year.
type YearStreams struct {
	Year    AcademicRef  `json:"year"`
	Streams []StreamItem `json:"streams"`
}

// StreamItem is a stream row of the streams endpoint.
type StreamItem struct {
	ID            int64   `json:"id"`
	NameAr        string  `json:"name_ar"`
	Slug          string  `json:"slug"`
	DescriptionAr *string `json:"description_ar"`
	Order         int     `json:"order"`
}

// PhaseItem is a phase row of the phases endpoint.
type PhaseItem struct {
	ID     int64  `json:"id"`
	NameAr string `json:"name_ar"`
	Slug   string `json:"slug"`
	Order  int    `json:"order"`
}

// AcademicProfileView is the user's academic profile with labels.
type AcademicProfileView struct {
	AcademicYearID   *int64       `json:"academic_year_id"`
	AcademicStreamID *int64       `json:"academic_stream_id"`
	Year             *AcademicRef `json:"academic_year"`
	Stream           *AcademicRef `json:"academic_stream"`
	IsComplete       bool         `json:"is_complete"`
}
