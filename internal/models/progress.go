package models

import "time"

// ProgressStatus is the lifecycle of a user's progress on a content.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// StatusForPercentage derives the status from a 0-100 percentage.
func StatusForPercentage(pct int) ProgressStatus {
	switch {
	case pct >= 100:
		return ProgressCompleted
	case pct > 0:
		return ProgressInProgress
	default:
		return ProgressNotStarted
	}
}

// ContentProgress is one user's progress on one content; unique per (user_id, content_id).
type ContentProgress struct {
	ID                 int64          `db:"id"`
	UserID             int64          `db:"user_id"`
	ContentID          int64          `db:"content_id"`
	Status             ProgressStatus `db:"status"`
	ProgressPercentage int            `db:"progress_percentage"`
	TimeSpentSeconds   int64          `db:"time_spent_seconds"`
	IsCompleted        bool           `db:"is_completed"`
	StartedAt          *time.Time     `db:"started_at"`
	CompletedAt        *time.Time     `db:"completed_at"`
	LastAccessedAt     *time.Time     `db:"last_accessed_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// ProgressWithContent is a progress row joined with content, subject and type labels.
type ProgressWithContent struct {
	ContentProgress
	ContentTitleAr string  `db:"content_title_ar"`
	ContentSlug    string  `db:"content_slug"`
	SubjectID      int64   `db:"subject_id"`
	SubjectNameAr  string  `db:"subject_name_ar"`
	SubjectColor   *string `db:"subject_color"`
	TypeID         int64   `db:"type_id"`
	TypeNameAr     string  `db:"type_name_ar"`
	TypeIcon       *string `db:"type_icon"`
}

// SubjectProgressStats aggregates a user's progress over a subject's published contents.
type SubjectProgressStats struct {
	TotalContents      int   `db:"total_contents"`
	CompletedContents  int   `db:"completed_contents"`
	InProgressContents int   `db:"in_progress_contents"`
	TotalTimeSpent     int64 `db:"total_time_spent"`
}

// ContentRating is a user's 1-5 rating of a content; unique per (user_id, content_id).
type ContentRating struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ContentID int64     `db:"content_id"`
	Rating    int       `db:"rating"`
	Comment   *string   `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
