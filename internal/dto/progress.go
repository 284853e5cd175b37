package dto

import (
	"time"

	"github.com/memo-edu/memo-api/internal/models"
)

// UpdateProgressRequest records progress on a content.
type UpdateProgressRequest struct {
	Progress  *int   `json:"progress" validate:"required,min=0,max=100"`
	TimeSpent *int64 `json:"time_spent" validate:"omitnil,min=0"`
}

// RateContentRequest rates a content.
type RateContentRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitnil,max=1000"`
}

// ProgressView is the caller's progress on one content.
type ProgressView struct {
	Progress         int                   `json:"progress"`
	IsCompleted      bool                  `json:"is_completed"`
	Status           models.ProgressStatus `json:"status,omitempty"`
	TimeSpentSeconds *int64                `json:"time_spent_seconds,omitempty"`
	StartedAt        *time.Time            `json:"started_at"`
	CompletedAt      *time.Time            `json:"completed_at"`
	LastAccessedAt   *time.Time            `json:"last_accessed_at,omitempty"`
}

// SubjectProgressView summarises the caller's progress over a subject.
type SubjectProgressView struct {
	TotalContents         int     `json:"total_contents"`
	CompletedContents     int     `json:"completed_contents"`
	InProgressContents    int     `json:"in_progress_contents"`
	NotStartedContents    int     `json:"not_started_contents"`
	CompletionPercentage  float64 `json:"completion_percentage"`
	TotalTimeSpentSeconds int64   `json:"total_time_spent_seconds"`
	TotalTimeSpentHours   float64 `json:"total_time_spent_hours"`
}

// RatingView is the caller's rating of a content.
type RatingView struct {
	Rating    int        `json:"rating"`
	Comment   *string    `json:"comment"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ProgressContent is the content summary embedded in the progress list.
type ProgressContent struct {
	ID      int64  `json:"id"`
	TitleAr string `json:"title_ar"`
	Slug    string `json:"slug"`
	Subject Ref    `json:"subject"`
	Type    Ref    `json:"type"`
}

// ProgressListItem is one row of the caller's progress list.
type ProgressListItem struct {
	Content          ProgressContent `json:"content"`
	Progress         int             `json:"progress"`
	IsCompleted      bool            `json:"is_completed"`
	TimeSpentSeconds int64           `json:"time_spent_seconds"`
	LastAccessedAt   *time.Time      `json:"last_accessed_at"`
}
