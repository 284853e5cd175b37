package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Quiz types. Timed and exam quizzes expire after their time limit.
const (
	QuizTypePractice = "practice"
	QuizTypeTimed    = "timed"
	QuizTypeExam     = "exam"
)

// Question types as stored in quiz_questions.question_type.
const (
	QuestionSingleChoice   = "mcq_single"
	QuestionMultipleChoice = "mcq_multiple"
	QuestionTrueFalse      = "true_false"
	QuestionMatching       = "matching"
	QuestionSequence       = "sequence"
	QuestionFillBlank      = "fill_blank"
	QuestionShortAnswer    = "short_answer"
	QuestionNumeric        = "numeric"
)

// AttemptStatus is the lifecycle of a quiz attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// RawJSON is an arbitrary JSON document stored in a json/jsonb column.
type RawJSON []byte

// Value implements driver.Valuer. Postgres receives text so jsonb columns accept it.
func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

// Scan implements sql.Scanner.
func (r *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("raw json: unsupported source %T", src)
	}
	return nil
}

// MarshalJSON emits the document as is, or null when empty.
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON keeps a copy of data.
func (r *RawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// IsNull reports whether the document is absent or JSON null.
func (r RawJSON) IsNull() bool {
	trimmed := bytes.TrimSpace(r)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Quiz is a published set of questions, optionally tied to a subject, chapter and stream.
type Quiz struct {
	ID                       int64      `db:"id"`
	SubjectID                *int64     `db:"subject_id"`
	AcademicStreamID         *int64     `db:"academic_stream_id"`
	ChapterID                *int64     `db:"chapter_id"`
	TitleAr                  string     `db:"title_ar"`
	Slug                     string     `db:"slug"`
	DescriptionAr            *string    `db:"description_ar"`
	QuizType                 string     `db:"quiz_type"`
	TimeLimitMinutes         *int       `db:"time_limit_minutes"`
	PassingScore             float64    `db:"passing_score"`
	DifficultyLevel          *string    `db:"difficulty_level"`
	EstimatedDurationMinutes *int       `db:"estimated_duration_minutes"`
	ShuffleQuestions         bool       `db:"shuffle_questions"`
	ShuffleAnswers           bool       `db:"shuffle_answers"`
	ShowCorrectAnswers       bool       `db:"show_correct_answers"`
	AllowReview              bool       `db:"allow_review"`
	Tags                     StringList `db:"tags"`
	TotalQuestions           int        `db:"total_questions"`
	AverageScore             float64    `db:"average_score"`
	TotalAttempts            int        `db:"total_attempts"`
	IsPublished              bool       `db:"is_published"`
	IsPremium                bool       `db:"is_premium"`
	CreatedAt                time.Time  `db:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at"`
}

// Timed reports whether attempts of the quiz expire.
func (q Quiz) Timed() bool {
	return (q.QuizType == QuizTypeTimed || q.QuizType == QuizTypeExam) && q.TimeLimitMinutes != nil && *q.TimeLimitMinutes > 0
}

// TimeLimitSeconds returns the limit in seconds, or nil for untimed quizzes.
func (q Quiz) TimeLimitSeconds() *int {
	if q.TimeLimitMinutes == nil || *q.TimeLimitMinutes <= 0 {
		return nil
	}
	seconds := *q.TimeLimitMinutes * 60
	return &seconds
}

// QuizDetail is a quiz joined with its relations and the caller's attempt aggregates.
type QuizDetail struct {
	Quiz
	SubjectNameAr      *string    `db:"subject_name_ar"`
	SubjectNameFr      *string    `db:"subject_name_fr"`
	SubjectColor       *string    `db:"subject_color"`
	SubjectIcon        *string    `db:"subject_icon"`
	ChapterTitleAr     *string    `db:"chapter_title_ar"`
	StreamNameAr       *string    `db:"stream_name_ar"`
	StreamSlug         *string    `db:"stream_slug"`
	UserAttempts       int        `db:"user_attempts"`
	UserBestScore      *float64   `db:"user_best_score"`
	UserAverageScore   *float64   `db:"user_average_score"`
	UserLastAttemptID  *int64     `db:"user_last_attempt_id"`
	UserLastCompleted  *time.Time `db:"user_last_completed_at"`
	UserHasInProgress  bool       `db:"user_has_in_progress"`
}

// QuizFilter narrows published quiz listings.
type QuizFilter struct {
	UserID      int64
	StreamID    *int64
	YearID      *int64
	SubjectID   *int64
	ChapterID   *int64
	Difficulty  string
	QuizType    string
	MinDuration *int
	MaxDuration *int
	Page        int
	PerPage     int
}

// QuizQuestion belongs to a quiz; CorrectAnswer is never sent to a running attempt.
type QuizQuestion struct {
	ID               int64      `db:"id"`
	QuizID           int64      `db:"quiz_id"`
	QuestionType     string     `db:"question_type"`
	QuestionTextAr   string     `db:"question_text_ar"`
	QuestionImageURL *string    `db:"question_image_url"`
	Options          RawJSON    `db:"options"`
	CorrectAnswer    RawJSON    `db:"correct_answer"`
	Points           float64    `db:"points"`
	ExplanationAr    *string    `db:"explanation_ar"`
	Difficulty       *string    `db:"difficulty"`
	Tags             StringList `db:"tags"`
	QuestionOrder    int        `db:"question_order"`
}

// AttemptAnswer is the stored answer to one question.
type AttemptAnswer struct {
	Answer     RawJSON   `json:"answer"`
	TimeSpent  *int      `json:"time_spent"`
	AnsweredAt time.Time `json:"answered_at"`
}

// AttemptAnswers maps question ids, as strings, to answers.
type AttemptAnswers map[string]AttemptAnswer

// Value implements driver.Valuer.
func (a AttemptAnswers) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]AttemptAnswer(a))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (a *AttemptAnswers) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = AttemptAnswers{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attempt answers: unsupported source %T", src)
	}
	out := AttemptAnswers{}
	// Older rows store an empty JSON array.
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		*a = out
		return nil
	}
	if err := json.Unmarshal(raw, (*map[string]AttemptAnswer)(&out)); err != nil {
		return err
	}
	*a = out
	return nil
}

// QuizAttempt is one user's run through a quiz.
type QuizAttempt struct {
	ID               int64          `db:"id"`
	QuizID           int64          `db:"quiz_id"`
	UserID           int64          `db:"user_id"`
	StartedAt        time.Time      `db:"started_at"`
	CompletedAt      *time.Time     `db:"completed_at"`
	TimeSpentSeconds *int64         `db:"time_spent_seconds"`
	Status           AttemptStatus  `db:"status"`
	TotalQuestions   int            `db:"total_questions"`
	CorrectAnswers   int            `db:"correct_answers"`
	IncorrectAnswers int            `db:"incorrect_answers"`
	SkippedAnswers   int            `db:"skipped_answers"`
	ScorePercentage  *float64       `db:"score_percentage"`
	TotalPoints      float64        `db:"total_points"`
	MaxScore         float64        `db:"max_score"`
	Passed           *bool          `db:"passed"`
	Answers          AttemptAnswers `db:"answers"`
	Seed             int64          `db:"seed"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// ExpiresAt returns when a timed attempt runs out, or nil.
func (a QuizAttempt) ExpiresAt(quiz Quiz) *time.Time {
	if !quiz.Timed() {
		return nil
	}
	at := a.StartedAt.Add(time.Duration(*quiz.TimeLimitMinutes) * time.Minute)
	return &at
}

// Expired reports whether a timed attempt is past its deadline at now.
func (a QuizAttempt) Expired(quiz Quiz, now time.Time) bool {
	expires := a.ExpiresAt(quiz)
	return expires != nil && now.After(*expires)
}

// WeakConcept is a question tag the user answered wrongly at least half of the time.
type WeakConcept struct {
	Tag       string  `json:"tag"`
	Correct   int     `json:"correct,omitempty"`
	Total     int     `json:"total,omitempty"`
	ErrorRate float64 `json:"error_rate"`
}

// WeakConceptList is a JSON array of weak concepts.
type WeakConceptList []WeakConcept

// Value implements driver.Valuer.
func (l WeakConceptList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	raw, err := json.Marshal([]WeakConcept(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *WeakConceptList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]WeakConcept)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]WeakConcept)(l))
	default:
		return fmt.Errorf("weak concepts: unsupported source %T", src)
	}
}

const maxWeakConcepts = 10

// UserQuizPerformance aggregates one user's completed attempts of one quiz.
type UserQuizPerformance struct {
	ID                    int64           `db:"id"`
	UserID                int64           `db:"user_id"`
	QuizID                int64           `db:"quiz_id"`
	SubjectID             *int64          `db:"subject_id"`
	TotalAttempts         int             `db:"total_attempts"`
	BestScore             float64         `db:"best_score"`
	AverageScore          float64         `db:"average_score"`
	TotalTimeSpentMinutes float64         `db:"total_time_spent_minutes"`
	LastAttemptDate       *time.Time      `db:"last_attempt_date"`
	WeakConcepts          WeakConceptList `db:"weak_concepts"`
	CreatedAt             time.Time       `db:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at"`
}

// ApplyAttempt folds a completed attempt into the running aggregates.
func (p *UserQuizPerformance) ApplyAttempt(attempt QuizAttempt) {
	score := 0.0
	if attempt.ScorePercentage != nil {
		score = *attempt.ScorePercentage
	}
	p.TotalAttempts++
	if score > p.BestScore {
		p.BestScore = score
	}
	p.AverageScore = (p.AverageScore*float64(p.TotalAttempts-1) + score) / float64(p.TotalAttempts)
	if attempt.TimeSpentSeconds != nil {
		p.TotalTimeSpentMinutes += float64(*attempt.TimeSpentSeconds) / 60
	}
	p.LastAttemptDate = attempt.CompletedAt
}

// AddWeakConcept averages the error rate into an existing tag or appends it, keeping the
// ten worst tags ordered by error rate.
func (p *UserQuizPerformance) AddWeakConcept(tag string, errorRate float64) {
	found := false
	for i := range p.WeakConcepts {
		if p.WeakConcepts[i].Tag == tag {
			p.WeakConcepts[i].ErrorRate = (p.WeakConcepts[i].ErrorRate + errorRate) / 2
			found = true
			break
		}
	}
	if !found {
		p.WeakConcepts = append(p.WeakConcepts, WeakConcept{Tag: tag, ErrorRate: errorRate})
	}
	sort.SliceStable(p.WeakConcepts, func(i, j int) bool {
		return p.WeakConcepts[i].ErrorRate > p.WeakConcepts[j].ErrorRate
	})
	if len(p.WeakConcepts) > maxWeakConcepts {
		p.WeakConcepts = p.WeakConcepts[:maxWeakConcepts]
	}
}
