package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memo-edu/memo-api/internal/models"
)

const quizColumns = `q.id, q.subject_id, q.academic_stream_id, q.chapter_id, q.title_ar, q.slug, q.description_ar, q.quiz_type,
q.time_limit_minutes, q.passing_score, q.difficulty_level, q.estimated_duration_minutes, q.shuffle_questions,
q.shuffle_answers, q.show_correct_answers, q.allow_review, q.tags, q.total_questions, q.average_score, q.total_attempts,
q.is_published, q.is_premium, q.created_at, q.updated_at`

const quizRelationsFrom = ` FROM quizzes q
LEFT JOIN subjects s ON s.id = q.subject_id
LEFT JOIN content_chapters ch ON ch.id = q.chapter_id
LEFT JOIN academic_streams st ON st.id = q.academic_stream_id`

const attemptColumns = `id, quiz_id, user_id, started_at, completed_at, time_spent_seconds, status, total_questions,
correct_answers, incorrect_answers, skipped_answers, score_percentage, total_points, max_score, passed, answers, seed,
created_at, updated_at`

const questionColumns = `id, quiz_id, question_type, question_text_ar, question_image_url, options, correct_answer, points,
explanation_ar, difficulty, tags, question_order`

const performanceColumns = `id, user_id, quiz_id, subject_id, total_attempts, best_score, average_score,
total_time_spent_minutes, last_attempt_date, weak_concepts, created_at, updated_at`

// quizDetailSelect joins the caller's attempt aggregates; userArg is the placeholder of the user id.
func quizDetailSelect(userArg string) string {
	return `SELECT ` + quizColumns + `,
s.name_ar AS subject_name_ar, s.name_fr AS subject_name_fr, s.color AS subject_color, s.icon AS subject_icon,
ch.title_ar AS chapter_title_ar, st.name_ar AS stream_name_ar, st.slug AS stream_slug,
COALESCE(ua.user_attempts, 0) AS user_attempts, ua.user_best_score, ua.user_average_score, ua.user_last_attempt_id,
ua.user_last_completed_at, COALESCE(ua.user_has_in_progress, FALSE) AS user_has_in_progress` + quizRelationsFrom + `
LEFT JOIN LATERAL (
	SELECT COUNT(*) FILTER (WHERE a.status = 'completed') AS user_attempts,
	MAX(a.score_percentage) FILTER (WHERE a.status = 'completed')::float8 AS user_best_score,
	AVG(a.score_percentage) FILTER (WHERE a.status = 'completed')::float8 AS user_average_score,
	(ARRAY_AGG(a.id ORDER BY a.completed_at DESC) FILTER (WHERE a.status = 'completed'))[1] AS user_last_attempt_id,
	MAX(a.completed_at) AS user_last_completed_at,
	BOOL_OR(a.status = 'in_progress') AS user_has_in_progress
	FROM quiz_attempts a WHERE a.quiz_id = q.id AND a.user_id = ` + userArg + `
) ua ON TRUE`
}

// QuizRepository reads quizzes and their questions and persists attempts.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository creates a new repository instance.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func publishedQuizWhere() whereBuilder {
	var where whereBuilder
	where.add("q.is_published = TRUE")
	where.add("q.deleted_at IS NULL")
	return where
}

// List returns a page of published quizzes with the user's aggregates and the total count.
func (r *QuizRepository) List(ctx context.Context, filter models.QuizFilter) ([]models.QuizDetail, int, error) {
	where := publishedQuizWhere()
	if filter.StreamID != nil {
		where.addStreamColumn("q.academic_stream_id", *filter.StreamID)
	}
	if filter.YearID != nil {
		where.add("s.academic_year_id = ?", *filter.YearID)
	}
	if filter.SubjectID != nil {
		where.add("q.subject_id = ?", *filter.SubjectID)
	}
	if filter.ChapterID != nil {
		where.add("q.chapter_id = ?", *filter.ChapterID)
	}
	if filter.Difficulty != "" {
		where.add("q.difficulty_level = ?", filter.Difficulty)
	}
	if filter.QuizType != "" {
		where.add("q.quiz_type = ?", filter.QuizType)
	}
	if filter.MinDuration != nil {
		where.add("q.estimated_duration_minutes >= ?", *filter.MinDuration)
	}
	if filter.MaxDuration != nil {
		where.add("q.estimated_duration_minutes <= ?", *filter.MaxDuration)
	}

	userArg := where.next()
	args := append(append([]interface{}{}, where.args...), filter.UserID)

	page, perPage := normalisePage(filter.Page, filter.PerPage)
	query := fmt.Sprintf("%s%s ORDER BY q.created_at DESC, q.id DESC LIMIT %d OFFSET %d",
		quizDetailSelect(userArg), where.sql(), perPage, (page-1)*perPage)

	var quizzes []models.QuizDetail
	if err := r.db.SelectContext(ctx, &quizzes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+quizRelationsFrom+where.sql(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}
	return quizzes, total, nil
}

// FindPublished returns a published quiz with the user's aggregates or sql.ErrNoRows.
func (r *QuizRepository) FindPublished(ctx context.Context, id, userID int64) (*models.QuizDetail, error) {
	where := publishedQuizWhere()
	where.add("q.id = ?", id)
	userArg := where.next()
	args := append(where.args, userID)

	var quiz models.QuizDetail
	if err := r.db.GetContext(ctx, &quiz, quizDetailSelect(userArg)+where.sql(), args...); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// FindByID returns a quiz regardless of publication, for attempts already started.
func (r *QuizRepository) FindByID(ctx context.Context, id int64) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, `SELECT `+quizColumns+` FROM quizzes q WHERE q.id = $1`, id); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ListQuestions returns the live questions of a quiz in their authored order.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID int64) ([]models.QuizQuestion, error) {
	query := `SELECT ` + questionColumns + ` FROM quiz_questions WHERE quiz_id = $1 AND deleted_at IS NULL ORDER BY question_order, id`
	var questions []models.QuizQuestion
	if err := r.db.SelectContext(ctx, &questions, query, quizID); err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	return questions, nil
}

// FindInProgressAttempt returns the user's running attempt of a quiz or sql.ErrNoRows.
func (r *QuizRepository) FindInProgressAttempt(ctx context.Context, userID, quizID int64) (*models.QuizAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2 AND status = 'in_progress'
ORDER BY started_at DESC LIMIT 1`
	var attempt models.QuizAttempt
	if err := r.db.GetContext(ctx, &attempt, query, userID, quizID); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindAttempt returns an attempt by id or sql.ErrNoRows.
func (r *QuizRepository) FindAttempt(ctx context.Context, id int64) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.GetContext(ctx, &attempt, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// CreateAttempt inserts a running attempt unless the user already has one for the quiz,
// in which case it returns sql.ErrNoRows.
func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	const query = `INSERT INTO quiz_attempts (quiz_id, user_id, started_at, status, total_questions, answers, seed, created_at, updated_at)
SELECT $1, $2, $3, 'in_progress', $4, '{}'::jsonb, $5, $3, $3
WHERE NOT EXISTS (SELECT 1 FROM quiz_attempts WHERE quiz_id = $1 AND user_id = $2 AND status = 'in_progress')
RETURNING id`
	attempt.Status = models.AttemptInProgress
	attempt.CreatedAt = attempt.StartedAt
	attempt.UpdatedAt = attempt.StartedAt
	if attempt.Answers == nil {
		attempt.Answers = models.AttemptAnswers{}
	}
	err := r.db.QueryRowxContext(ctx, query, attempt.QuizID, attempt.UserID, attempt.StartedAt, attempt.TotalQuestions, attempt.Seed).
		Scan(&attempt.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("create quiz attempt: %w", err)
	}
	return nil
}

// SaveAnswer stores one answer of a running attempt. A finished or missing attempt yields sql.ErrNoRows.
func (r *QuizRepository) SaveAnswer(ctx context.Context, attemptID, questionID int64, answer models.AttemptAnswer) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	const query = `UPDATE quiz_attempts
SET answers = jsonb_set(CASE WHEN jsonb_typeof(answers) = 'object' THEN answers ELSE '{}'::jsonb END,
	ARRAY[$2::text], $3::jsonb, TRUE),
	updated_at = $4
WHERE id = $1 AND status = 'in_progress'`
	res, err := r.db.ExecContext(ctx, query, attemptID, strconv.FormatInt(questionID, 10), string(raw), answer.AnsweredAt)
	if err != nil {
		return fmt.Errorf("save quiz answer: %w", err)
	}
	return requireAffected(res)
}

// Abandon marks a running attempt abandoned. A finished or missing attempt yields sql.ErrNoRows.
func (r *QuizRepository) Abandon(ctx context.Context, attemptID int64, at time.Time) error {
	const query = `UPDATE quiz_attempts SET status = 'abandoned', completed_at = $2, updated_at = $2
WHERE id = $1 AND status = 'in_progress'`
	res, err := r.db.ExecContext(ctx, query, attemptID, at)
	if err != nil {
		return fmt.Errorf("abandon quiz attempt: %w", err)
	}
	return requireAffected(res)
}

// CompleteAttempt stores the graded attempt, refreshes the quiz statistics and folds the attempt
// into the user's performance row, all in one transaction. An attempt that is no longer running
// yields sql.ErrNoRows and nothing is written.
func (r *QuizRepository) CompleteAttempt(ctx context.Context, attempt *models.QuizAttempt, subjectID *int64, weak []models.WeakConcept) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quiz submit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if attempt.CompletedAt != nil {
		now = *attempt.CompletedAt
	}
	attempt.Status = models.AttemptCompleted
	attempt.UpdatedAt = now

	const finish = `UPDATE quiz_attempts SET status = 'completed', completed_at = $2, time_spent_seconds = $3,
total_questions = $4, correct_answers = $5, incorrect_answers = $6, skipped_answers = $7, score_percentage = $8,
total_points = $9, max_score = $10, passed = $11, answers = $12, updated_at = $2
WHERE id = $1 AND status = 'in_progress'`
	res, err := tx.ExecContext(ctx, finish, attempt.ID, now, attempt.TimeSpentSeconds, attempt.TotalQuestions,
		attempt.CorrectAnswers, attempt.IncorrectAnswers, attempt.SkippedAnswers, attempt.ScorePercentage,
		attempt.TotalPoints, attempt.MaxScore, attempt.Passed, attempt.Answers)
	if err != nil {
		return fmt.Errorf("complete quiz attempt: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	const stats = `UPDATE quizzes SET
total_questions = (SELECT COUNT(*) FROM quiz_questions WHERE quiz_id = $1 AND deleted_at IS NULL),
total_attempts = (SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id = $1 AND status = 'completed'),
average_score = COALESCE((SELECT AVG(score_percentage) FROM quiz_attempts WHERE quiz_id = $1 AND status = 'completed'), 0),
updated_at = $2
WHERE id = $1`
	if _, err = tx.ExecContext(ctx, stats, attempt.QuizID, now); err != nil {
		return fmt.Errorf("refresh quiz statistics: %w", err)
	}

	if err = mergePerformance(ctx, tx, *attempt, subjectID, weak, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit quiz submit: %w", err)
	}
	return nil
}

func mergePerformance(ctx context.Context, tx *sqlx.Tx, attempt models.QuizAttempt, subjectID *int64, weak []models.WeakConcept, now time.Time) error {
	const ensure = `INSERT INTO user_quiz_performance (user_id, quiz_id, subject_id, total_attempts, best_score, average_score,
total_time_spent_minutes, weak_concepts, created_at, updated_at)
VALUES ($1, $2, $3, 0, 0, 0, 0, '[]'::jsonb, $4, $4)
ON CONFLICT (user_id, quiz_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, ensure, attempt.UserID, attempt.QuizID, subjectID, now); err != nil {
		return fmt.Errorf("ensure quiz performance: %w", err)
	}

	var perf models.UserQuizPerformance
	lock := `SELECT ` + performanceColumns + ` FROM user_quiz_performance WHERE user_id = $1 AND quiz_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &perf, lock, attempt.UserID, attempt.QuizID); err != nil {
		return fmt.Errorf("lock quiz performance: %w", err)
	}

	perf.ApplyAttempt(attempt)
	for _, concept := range weak {
		perf.AddWeakConcept(concept.Tag, concept.ErrorRate)
	}
	if perf.WeakConcepts == nil {
		perf.WeakConcepts = models.WeakConceptList{}
	}

	const update = `UPDATE user_quiz_performance SET total_attempts = $2, best_score = $3, average_score = $4,
total_time_spent_minutes = $5, last_attempt_date = $6, weak_concepts = $7, updated_at = $8 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, perf.ID, perf.TotalAttempts, perf.BestScore, perf.AverageScore,
		perf.TotalTimeSpentMinutes, perf.LastAttemptDate, perf.WeakConcepts, now); err != nil {
		return fmt.Errorf("update quiz performance: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
