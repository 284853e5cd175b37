package models

import "time"

// Priority ranks a planner subject.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Defaults applied when a planner subject is created implicitly.
const (
	DefaultPlannerDifficulty = 3
	ListingDefaultDifficulty = 5
)

// PlannerSubject is a user's tracking record for one subject.
// (user_id, subject_id) is kept unique by pre-insert checks only; there is no database constraint.
type PlannerSubject struct {
	ID                 int64      `db:"id" json:"id"`
	UserID             int64      `db:"user_id" json:"user_id"`
	SubjectID          int64      `db:"subject_id" json:"subject_id"`
	DifficultyLevel    int        `db:"difficulty_level" json:"difficulty_level"`
	LastYearAverage    *float64   `db:"last_year_average" json:"last_year_average"`
	Priority           Priority   `db:"priority" json:"priority"`
	ProgressPercentage float64    `db:"progress_percentage" json:"progress_percentage"`
	LastStudiedAt      *time.Time `db:"last_studied_at" json:"last_studied_at"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
	Subject            *Subject   `db:"-" json:"subject,omitempty"`
}

// UpsertOutcome tags the result of an upsert.
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)

// PlannerSubjectPatch carries the fields present in an update request. Nil means absent.
// ClearLastYearAverage distinguishes an explicit null from an absent field.
type PlannerSubjectPatch struct {
	DifficultyLevel      *int
	LastYearAverage      *float64
	ClearLastYearAverage bool
	Priority             *Priority
	ProgressPercentage   *float64
}

// Empty reports whether the patch changes nothing.
func (p PlannerSubjectPatch) Empty() bool {
	return p.DifficultyLevel == nil && p.LastYearAverage == nil && !p.ClearLastYearAverage &&
		p.Priority == nil && p.ProgressPercentage == nil
}

// Apply copies the present fields onto ps.
func (p PlannerSubjectPatch) Apply(ps *PlannerSubject) {
	if p.DifficultyLevel != nil {
		ps.DifficultyLevel = *p.DifficultyLevel
	}
	if p.ClearLastYearAverage {
		ps.LastYearAverage = nil
	} else if p.LastYearAverage != nil {
		v := *p.LastYearAverage
		ps.LastYearAverage = &v
	}
	if p.Priority != nil {
		ps.Priority = *p.Priority
	}
	if p.ProgressPercentage != nil {
		ps.ProgressPercentage = *p.ProgressPercentage
	}
}
