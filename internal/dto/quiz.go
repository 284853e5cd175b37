package dto

import (
	"encoding/json"
	"time"

	"github.com/memo-edu/memo-api/internal/models"
)

// QuizQuery carries the filters of quiz listings.
type QuizQuery struct {
	StreamID   *int64 `form:"stream_id" validate:"omitnil,gt=0"`
	YearID     *int64 `form:"year_id" validate:"omitnil,gt=0"`
	SubjectID  *int64 `form:"subject_id" validate:"omitnil,gt=0"`
	ChapterID  *int64 `form:"chapter_id" validate:"omitnil,gt=0"`
	Difficulty string `form:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	QuizType   string `form:"quiz_type" validate:"omitempty,oneof=practice timed exam"`
	Duration   string `form:"duration" validate:"omitempty,oneof=short medium long"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PerPage    int    `form:"per_page" validate:"omitempty,min=1"`
}

// QuizUserStats summarises the caller's attempts of a quiz.
type QuizUserStats struct {
	Attempts        int        `json:"attempts"`
	BestScore       *float64   `json:"best_score"`
	AverageScore    *float64   `json:"average_score"`
	LastAttemptID   *int64     `json:"last_attempt_id"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
	HasInProgress   bool       `json:"has_in_progress"`
}

// QuizItem is a quiz as returned by listings.
type QuizItem struct {
	ID                       int64         `json:"id"`
	TitleAr                  string        `json:"title_ar"`
	Slug                     string        `json:"slug"`
	DescriptionAr            *string       `json:"description_ar"`
	QuizType                 string        `json:"quiz_type"`
	TimeLimitMinutes         *int          `json:"time_limit_minutes"`
	PassingScore             float64       `json:"passing_score"`
	DifficultyLevel          *string       `json:"difficulty_level"`
	EstimatedDurationMinutes *int          `json:"estimated_duration_minutes"`
	TotalQuestions           int           `json:"total_questions"`
	AverageScore             float64       `json:"average_score"`
	TotalAttempts            int           `json:"total_attempts"`
	IsPremium                bool          `json:"is_premium"`
	Tags                     []string      `json:"tags"`
	Subject                  *Ref          `json:"subject,omitempty"`
	Chapter                  *ChapterRef   `json:"chapter,omitempty"`
	AcademicStream           *Ref          `json:"academic_stream,omitempty"`
	UserStats                QuizUserStats `json:"user_stats"`
}

// QuizDetailItem adds the settings and start eligibility shown on a quiz page.
type QuizDetailItem struct {
	QuizItem
	ShuffleQuestions   bool `json:"shuffle_questions"`
	ShuffleAnswers     bool `json:"shuffle_answers"`
	ShowCorrectAnswers bool `json:"show_correct_answers"`
	AllowReview        bool `json:"allow_review"`
	CanStart           bool `json:"can_start"`
}

// StartQuizRequest optionally fixes the shuffle seed of a new attempt.
type StartQuizRequest struct {
	Seed *int64 `json:"seed" validate:"omitnil,gt=0"`
}

// AttemptQuestion is a question as shown during an attempt; answers are never included.
type AttemptQuestion struct {
	ID               int64           `json:"id"`
	QuestionType     string          `json:"question_type"`
	QuestionTextAr   string          `json:"question_text_ar"`
	QuestionImageURL *string         `json:"question_image_url"`
	Options          json.RawMessage `json:"options"`
	Points           float64         `json:"points"`
	Difficulty       *string         `json:"difficulty"`
	Order            int             `json:"order"`
}

// AttemptView is a running attempt with its questions and saved answers.
type AttemptView struct {
	AttemptID        int64                 `json:"attempt_id"`
	QuizID           int64                 `json:"quiz_id"`
	QuizTitleAr      string                `json:"quiz_title_ar"`
	QuizType         string                `json:"quiz_type"`
	Status           models.AttemptStatus  `json:"status"`
	StartedAt        time.Time             `json:"started_at"`
	ExpiresAt        *time.Time            `json:"expires_at"`
	TimeLimitSeconds *int                  `json:"time_limit_seconds"`
	RemainingSeconds *int64                `json:"remaining_seconds"`
	Resumed          bool                  `json:"resumed"`
	Seed             int64                 `json:"seed"`
	Questions        []AttemptQuestion     `json:"questions"`
	Answers          models.AttemptAnswers `json:"answers"`
}

// SaveAnswerRequest records one answer of a running attempt.
type SaveAnswerRequest struct {
	QuestionID int64           `json:"question_id" validate:"required,gt=0"`
	Answer     json.RawMessage `json:"answer"`
	TimeSpent  *int            `json:"time_spent" validate:"omitnil,min=0"`
}

// AnswerFeedback is returned for practice quizzes that reveal answers immediately.
type AnswerFeedback struct {
	IsCorrect     bool            `json:"is_correct"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	ExplanationAr *string         `json:"explanation_ar"`
}

// SaveAnswerResult acknowledges a saved answer.
type SaveAnswerResult struct {
	QuestionID    int64           `json:"question_id"`
	AnsweredCount int             `json:"answered_count"`
	Feedback      *AnswerFeedback `json:"feedback,omitempty"`
}

// SubmitAnswer is one entry of a submission; a bare value is taken as the answer.
type SubmitAnswer struct {
	Answer    json.RawMessage
	TimeSpent *int
}

// UnmarshalJSON accepts either {"answer": ..., "time_spent": n} or the answer itself.
func (a *SubmitAnswer) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Answer    *json.RawMessage `json:"answer"`
		TimeSpent *int             `json:"time_spent"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Answer != nil {
		a.Answer = *wrapped.Answer
		a.TimeSpent = wrapped.TimeSpent
		return nil
	}
	a.Answer = append(json.RawMessage(nil), data...)
	a.TimeSpent = nil
	return nil
}

// SubmitAttemptRequest finalises an attempt; answers are keyed by question id.
// final_answers is accepted as an alias of answers.
type SubmitAttemptRequest struct {
	Answers      map[string]SubmitAnswer `json:"answers"`
	FinalAnswers map[string]SubmitAnswer `json:"final_answers"`
}

// Merged returns answers overlaid with final_answers.
func (r SubmitAttemptRequest) Merged() map[string]SubmitAnswer {
	out := make(map[string]SubmitAnswer, len(r.Answers)+len(r.FinalAnswers))
	for k, v := range r.Answers {
		out[k] = v
	}
	for k, v := range r.FinalAnswers {
		out[k] = v
	}
	return out
}

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	QuestionID     int64           `json:"question_id"`
	QuestionType   string          `json:"question_type"`
	QuestionTextAr string          `json:"question_text_ar"`
	UserAnswer     json.RawMessage `json:"user_answer"`
	CorrectAnswer  json.RawMessage `json:"correct_answer,omitempty"`
	Outcome        string          `json:"outcome"`
	PointsEarned   float64         `json:"points_earned"`
	Points         float64         `json:"points"`
	ExplanationAr  *string         `json:"explanation_ar,omitempty"`
}

// AttemptResults is the scored summary of a completed attempt.
type AttemptResults struct {
	AttemptID          int64                `json:"attempt_id"`
	QuizID             int64                `json:"quiz_id"`
	QuizTitleAr        string               `json:"quiz_title_ar"`
	Status             models.AttemptStatus `json:"status"`
	StartedAt          time.Time            `json:"started_at"`
	CompletedAt        *time.Time           `json:"completed_at"`
	TimeSpentSeconds   int64                `json:"time_spent_seconds"`
	TotalQuestions     int                  `json:"total_questions"`
	CorrectAnswers     int                  `json:"correct_answers"`
	IncorrectAnswers   int                  `json:"incorrect_answers"`
	SkippedAnswers     int                  `json:"skipped_answers"`
	ScorePercentage    float64              `json:"score_percentage"`
	TotalPoints        float64              `json:"total_points"`
	MaxScore           float64              `json:"max_score"`
	PassingScore       float64              `json:"passing_score"`
	Passed             bool                 `json:"passed"`
	PerformanceMessage string               `json:"performance_message"`
	WeakConcepts       []models.WeakConcept `json:"weak_concepts"`
	Questions          []QuestionResult     `json:"questions,omitempty"`
}
