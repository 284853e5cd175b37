package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/memo-edu/memo-api/internal/models"
)

// BatchPlannerSubjectItem is one entry of a batch create request.
type BatchPlannerSubjectItem struct {
	SubjectID          int64    `json:"subject_id" validate:"required,gt=0"`
	DifficultyLevel    int      `json:"difficulty_level" validate:"required,min=1,max=5"`
	LastYearAverage    *float64 `json:"last_year_average" validate:"omitnil,min=0,max=20"`
	Priority           string   `json:"priority" validate:"required,oneof=low medium high critical"`
	ProgressPercentage *int     `json:"progress_percentage" validate:"omitnil,min=0,max=100"`
}

// BatchCreatePlannerSubjectsRequest creates several planner subjects at once.
type BatchCreatePlannerSubjectsRequest struct {
	Subjects []BatchPlannerSubjectItem `json:"subjects" validate:"required,min=1,dive"`
}

// BatchCreatePlannerSubjectsResult lists the rows created by a batch.
type BatchCreatePlannerSubjectsResult struct {
	CreatedCount int                     `json:"created_count"`
	Subjects     []models.PlannerSubject `json:"subjects"`
}

// DuplicateSubjectData names the first planner subject that blocked a batch.
type DuplicateSubjectData struct {
	SubjectID                int64 `json:"subject_id"`
	ExistingPlannerSubjectID int64 `json:"existing_planner_subject_id"`
}

// OptionalFloat tells an absent JSON field apart from an explicit null.
type OptionalFloat struct {
	Set   bool
	Value *float64
}

// UnmarshalJSON records presence; null leaves Value nil.
func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// UpdatePlannerSubjectRequest is a partial update; difficulty uses the 1-10 input scale.
type UpdatePlannerSubjectRequest struct {
	DifficultyLevel    *int          `json:"difficulty_level" validate:"omitnil,min=1,max=10"`
	LastYearAverage    OptionalFloat `json:"last_year_average" validate:"-"`
	Priority           *string       `json:"priority" validate:"omitnil,oneof=low medium high critical"`
	ProgressPercentage *float64      `json:"progress_percentage" validate:"omitnil,min=0,max=100"`
}

// UpsertPlannerSubjectResult is returned by the upsert endpoint. ID is the subject id.
type UpsertPlannerSubjectResult struct {
	ID              int64                `json:"id"`
	DifficultyLevel int                  `json:"difficulty_level"`
	LastYearAverage *float64             `json:"last_year_average"`
	Outcome         models.UpsertOutcome `json:"outcome"`
}

// PlannerListItem is a subject of the user's year and stream merged with their planner row.
type PlannerListItem struct {
	ID                 int64                  `json:"id"`
	SubjectID          int64                  `json:"subject_id"`
	PlannerSubjectID   *int64                 `json:"planner_subject_id"`
	Name               string                 `json:"name"`
	NameAr             string                 `json:"name_ar"`
	ColorHex           string                 `json:"color_hex"`
	Color              string                 `json:"color"`
	IconName           string                 `json:"icon_name"`
	Icon               string                 `json:"icon"`
	Coefficient        float64                `json:"coefficient"`
	Category           models.SubjectCategory `json:"category"`
	CategoryWeight     float64                `json:"category_weight"`
	DifficultyLevel    int                    `json:"difficulty_level"`
	ProgressPercentage float64                `json:"progress_percentage"`
	LastStudiedAt      *time.Time             `json:"last_studied_at"`
	TotalChapters      int                    `json:"total_chapters"`
	CompletedChapters  int                    `json:"completed_chapters"`
	AverageScore       float64                `json:"average_score"`
	LastYearAverage    *float64               `json:"last_year_average"`
	Priority           models.Priority        `json:"priority"`
	IsActive           bool                   `json:"is_active"`
}

// PlannerExportQuery selects the export format.
type PlannerExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// PlannerExport is a rendered planner sheet.
type PlannerExport struct {
	FileName    string
	ContentType string
	Body        []byte
}
