package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type fakeQuizRepo struct {
	quizzes   map[int64]*models.QuizDetail
	questions map[int64][]models.QuizQuestion
	attempts  map[int64]*models.QuizAttempt
	nextID    int64
	filter    models.QuizFilter
	completed []completedAttempt
	raceStart bool
	failSave  error
}

type completedAttempt struct {
	attempt   models.QuizAttempt
	subjectID *int64
	weak      []models.WeakConcept
}

func newFakeQuizRepo() *fakeQuizRepo {
	return &fakeQuizRepo{
		quizzes:   map[int64]*models.QuizDetail{},
		questions: map[int64][]models.QuizQuestion{},
		attempts:  map[int64]*models.QuizAttempt{},
		nextID:    100,
	}
}

func (f *fakeQuizRepo) List(ctx context.Context, filter models.QuizFilter) ([]models.QuizDetail, int, error) {
	f.filter = filter
	var out []models.QuizDetail
	for _, q := range f.quizzes {
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (f *fakeQuizRepo) FindPublished(ctx context.Context, id, userID int64) (*models.QuizDetail, error) {
	q, ok := f.quizzes[id]
	if !ok || !q.IsPublished {
		return nil, sql.ErrNoRows
	}
	dup := *q
	return &dup, nil
}

func (f *fakeQuizRepo) FindByID(ctx context.Context, id int64) (*models.Quiz, error) {
	q, ok := f.quizzes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	dup := q.Quiz
	return &dup, nil
}

func (f *fakeQuizRepo) ListQuestions(ctx context.Context, quizID int64) ([]models.QuizQuestion, error) {
	return f.questions[quizID], nil
}

func (f *fakeQuizRepo) FindInProgressAttempt(ctx context.Context, userID, quizID int64) (*models.QuizAttempt, error) {
	for _, a := range f.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.Status == models.AttemptInProgress {
			dup := *a
			return &dup, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeQuizRepo) FindAttempt(ctx context.Context, id int64) (*models.QuizAttempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	dup := *a
	dup.Answers = models.AttemptAnswers{}
	for k, v := range a.Answers {
		dup.Answers[k] = v
	}
	return &dup, nil
}

func (f *fakeQuizRepo) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if f.raceStart {
		f.nextID++
		f.attempts[f.nextID] = &models.QuizAttempt{ID: f.nextID, QuizID: attempt.QuizID, UserID: attempt.UserID, StartedAt: attempt.StartedAt, Status: models.AttemptInProgress, Seed: 5}
		return sql.ErrNoRows
	}
	if _, err := f.FindInProgressAttempt(ctx, attempt.UserID, attempt.QuizID); err == nil {
		return sql.ErrNoRows
	}
	f.nextID++
	attempt.ID = f.nextID
	attempt.Status = models.AttemptInProgress
	attempt.Answers = models.AttemptAnswers{}
	stored := *attempt
	f.attempts[attempt.ID] = &stored
	return nil
}

func (f *fakeQuizRepo) SaveAnswer(ctx context.Context, attemptID, questionID int64, answer models.AttemptAnswer) error {
	if f.failSave != nil {
		return f.failSave
	}
	a, ok := f.attempts[attemptID]
	if !ok || a.Status != models.AttemptInProgress {
		return sql.ErrNoRows
	}
	if a.Answers == nil {
		a.Answers = models.AttemptAnswers{}
	}
	a.Answers[strconv.FormatInt(questionID, 10)] = answer
	return nil
}

func (f *fakeQuizRepo) Abandon(ctx context.Context, attemptID int64, at time.Time) error {
	a, ok := f.attempts[attemptID]
	if !ok || a.Status != models.AttemptInProgress {
		return sql.ErrNoRows
	}
	a.Status = models.AttemptAbandoned
	a.CompletedAt = &at
	return nil
}

func (f *fakeQuizRepo) CompleteAttempt(ctx context.Context, attempt *models.QuizAttempt, subjectID *int64, weak []models.WeakConcept) error {
	stored, ok := f.attempts[attempt.ID]
	if !ok || stored.Status != models.AttemptInProgress {
		return sql.ErrNoRows
	}
	attempt.Status = models.AttemptCompleted
	*stored = *attempt
	f.completed = append(f.completed, completedAttempt{attempt: *attempt, subjectID: subjectID, weak: weak})
	return nil
}

var quizStart = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func seedQuiz(repo *fakeQuizRepo, quiz models.Quiz) {
	quiz.IsPublished = true
	if quiz.PassingScore == 0 {
		quiz.PassingScore = 50
	}
	repo.quizzes[quiz.ID] = &models.QuizDetail{Quiz: quiz}
	repo.questions[quiz.ID] = []models.QuizQuestion{
		{ID: 11, QuizID: quiz.ID, QuestionType: models.QuestionSingleChoice, Options: models.RawJSON(`[{"text": "a", "is_correct": true}, {"text": "b"}]`), CorrectAnswer: models.RawJSON(`0`), Points: 1, Tags: models.StringList{"limits"}},
		{ID: 12, QuizID: quiz.ID, QuestionType: models.QuestionTrueFalse, CorrectAnswer: models.RawJSON(`false`), Points: 1, Tags: models.StringList{"limits"}},
		{ID: 13, QuizID: quiz.ID, QuestionType: models.QuestionFillBlank, CorrectAnswer: models.RawJSON(`[["x"], ["y"]]`), Points: 2},
	}
}

func newTestQuizService(repo *fakeQuizRepo, profiles *fakeProfileRepo) *QuizService {
	svc := NewQuizService(repo, NewScopeResolver(profiles), nil, nil, nil)
	svc.now = func() time.Time { return quizStart }
	svc.newSeed = func() int64 { return 42 }
	return svc
}

func TestQuizListResolvesScopeAndDuration(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, TitleAr: "النهايات", QuizType: models.QuizTypePractice})
	repo.quizzes[1].UserAttempts = 2
	repo.quizzes[1].UserBestScore = f64(80)
	svc := newTestQuizService(repo, profileWithStream(3))

	items, pagination, err := svc.List(context.Background(), student, dto.QuizQuery{YearID: i64(2), Duration: "medium"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].UserStats.Attempts)
	assert.Equal(t, 80.0, *items[0].UserStats.BestScore)
	assert.Equal(t, []string{}, items[0].Tags)
	assert.Equal(t, 1, pagination.Total)

	assert.Equal(t, int64(2), *repo.filter.YearID)
	assert.Equal(t, int64(3), *repo.filter.StreamID)
	assert.Equal(t, student.UserID, repo.filter.UserID)
	assert.Equal(t, 15, *repo.filter.MinDuration)
	assert.Equal(t, 30, *repo.filter.MaxDuration)
}

func TestQuizListRejectsUnknownFilters(t *testing.T) {
	svc := newTestQuizService(newFakeQuizRepo(), &fakeProfileRepo{})

	_, _, err := svc.List(context.Background(), student, dto.QuizQuery{QuizType: "survey", Duration: "forever"})
	fields := appErrors.FromError(err).Fields
	assert.Contains(t, fields, "quiz_type")
	assert.Contains(t, fields, "duration")
}

func TestQuizShowCanStart(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice, TotalQuestions: 3})
	seedQuiz(repo, models.Quiz{ID: 2, QuizType: models.QuizTypePractice, TotalQuestions: 3, IsPremium: true})
	svc := newTestQuizService(repo, &fakeProfileRepo{})

	free, err := svc.Show(context.Background(), student, 1)
	require.NoError(t, err)
	assert.True(t, free.CanStart)

	premium, err := svc.Show(context.Background(), student, 2)
	require.NoError(t, err)
	assert.False(t, premium.CanStart)

	_, err = svc.Show(context.Background(), student, 99)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestQuizStartCreatesThenResumes(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice})
	svc := newTestQuizService(repo, &fakeProfileRepo{})

	view, created, err := svc.Start(context.Background(), student, 1, dto.StartQuizRequest{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, view.Resumed)
	assert.Equal(t, int64(42), view.Seed)
	assert.Nil(t, view.ExpiresAt)
	require.Len(t, view.Questions, 3)

	var options []map[string]interface{}
	require.NoError(t, json.Unmarshal(view.Questions[0].Options, &options))
	require.Len(t, options, 2)
	assert.NotContains(t, options[0], "is_correct")
	assert.Equal(t, float64(0), options[0]["index"])
	assert.JSONEq(t, `{"number_of_blanks": 2}`, string(view.Questions[2].Options))

	again, created, err := svc.Start(context.Background(), student, 1, dto.StartQuizRequest{Seed: i64(7)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, again.Resumed)
	assert.Equal(t, view.AttemptID, again.AttemptID)
	assert.Equal(t, int64(42), again.Seed)
}

func TestQuizStartShuffleIsDeterministic(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice, ShuffleQuestions: true, ShuffleAnswers: true})
	quiz := repo.quizzes[1].Quiz
	questions := repo.questions[1]

	first := presentQuestions(quiz, questions, 99)
	second := presentQuestions(quiz, questions, 99)
	assert.Equal(t, first, second)

	ids := map[int64]bool{}
	for _, q := range first {
		ids[q.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestQuizStartPremiumAndEmpty(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice, IsPremium: true})
	seedQuiz(repo, models.Quiz{ID: 2, QuizType: models.QuizTypePractice})
	repo.questions[2] = nil
	svc := newTestQuizService(repo, &fakeProfileRepo{})

	_, _, err := svc.Start(context.Background(), student, 1, dto.StartQuizRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrPremiumRequired.Code))

	_, _, err = svc.Start(context.Background(), student, 2, dto.StartQuizRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrBadRequest.Code))
}

func TestQuizStartReplacesExpiredAttempt(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypeTimed, TimeLimitMinutes: intp(10)})
	repo.attempts[50] = &models.QuizAttempt{ID: 50, QuizID: 1, UserID: student.UserID, StartedAt: quizStart.Add(-time.Hour), Status: models.AttemptInProgress,
		Answers: models.AttemptAnswers{"11": {Answer: models.RawJSON(`0`)}}}
	svc := newTestQuizService(repo, &fakeProfileRepo{})

	view, created, err := svc.Start(context.Background(), student, 1, dto.StartQuizRequest{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, int64(50), view.AttemptID)
	require.NotNil(t, view.RemainingSeconds)
	assert.Equal(t, int64(600), *view.RemainingSeconds)

	require.Len(t, repo.completed, 1)
	expired := repo.completed[0].attempt
	assert.Equal(t, int64(50), expired.ID)
	assert.Equal(t, int64(600), *expired.TimeSpentSeconds)
	assert.Equal(t, 1, expired.CorrectAnswers)
	assert.Equal(t, 25.0, *expired.ScorePercentage)
}

func TestQuizStartLosesRaceAndResumes(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice})
	repo.raceStart = true
	svc := newTestQuizService(repo, &fakeProfileRepo{})

	view, created, err := svc.Start(context.Background(), student, 1, dto.StartQuizRequest{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, view.Resumed)
	assert.Equal(t, int64(5), view.Seed)
}

func startAttempt(t *testing.T, svc *QuizService, quizID int64) int64 {
	t.Helper()
	view, _, err := svc.Start(context.Background(), student, quizID, dto.StartQuizRequest{})
	require.NoError(t, err)
	return view.AttemptID
}

func TestQuizSaveAnswerWithPracticeFeedback(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice, ShowCorrectAnswers: true})
	svc := newTestQuizService(repo, &fakeProfileRepo{})
	attemptID := startAttempt(t, svc, 1)

	result, err := svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 12, Answer: json.RawMessage(`false`), TimeSpent: intp(8)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AnsweredCount)
	require.NotNil(t, result.Feedback)
	assert.True(t, result.Feedback.IsCorrect)
	assert.JSONEq(t, `false`, string(result.Feedback.CorrectAnswer))
	assert.Equal(t, 8, *repo.attempts[attemptID].Answers["12"].TimeSpent)

	result, err = svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 12, Answer: json.RawMessage(`true`)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AnsweredCount)
	assert.False(t, result.Feedback.IsCorrect)
}

func TestQuizSaveAnswerRejections(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypeExam, TimeLimitMinutes: intp(5)})
	svc := newTestQuizService(repo, &fakeProfileRepo{})
	attemptID := startAttempt(t, svc, 1)

	result, err := svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 11, Answer: json.RawMessage(`0`)})
	require.NoError(t, err)
	assert.Nil(t, result.Feedback)

	_, err = svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 999, Answer: json.RawMessage(`0`)})
	assert.Contains(t, appErrors.FromError(err).Fields, "question_id")

	_, err = svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{})
	assert.Contains(t, appErrors.FromError(err).Fields, "question_id")

	other := models.Principal{UserID: 8}
	_, err = svc.SaveAnswer(context.Background(), other, attemptID, dto.SaveAnswerRequest{QuestionID: 11, Answer: json.RawMessage(`0`)})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden.Code))

	svc.now = func() time.Time { return quizStart.Add(6 * time.Minute) }
	_, err = svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 12, Answer: json.RawMessage(`false`)})
	assert.True(t, appErrors.Is(err, appErrors.ErrQuizExpired.Code))
	assert.Equal(t, models.AttemptCompleted, repo.attempts[attemptID].Status)
	assert.Equal(t, 1, repo.attempts[attemptID].CorrectAnswers)

	_, err = svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 12, Answer: json.RawMessage(`false`)})
	assert.True(t, appErrors.Is(err, appErrors.ErrAttemptNotActive.Code))
}

func TestQuizSaveAnswerStorageFailure(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice})
	svc := newTestQuizService(repo, &fakeProfileRepo{})
	attemptID := startAttempt(t, svc, 1)
	repo.failSave = errors.New("connection reset")

	_, err := svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 11, Answer: json.RawMessage(`0`)})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal.Code))
}

func TestQuizSubmitScoresAndRecordsWeakConcepts(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, SubjectID: i64(4), QuizType: models.QuizTypePractice, AllowReview: true, PassingScore: 60})
	svc := newTestQuizService(repo, &fakeProfileRepo{})
	attemptID := startAttempt(t, svc, 1)

	_, err := svc.SaveAnswer(context.Background(), student, attemptID, dto.SaveAnswerRequest{QuestionID: 11, Answer: json.RawMessage(`1`)})
	require.NoError(t, err)

	svc.now = func() time.Time { return quizStart.Add(90 * time.Second) }
	var req dto.SubmitAttemptRequest
	require.NoError(t, json.Unmarshal([]byte(`{"answers": {"12": true, "13": {"answer": ["X", "y"], "time_spent": 30}, "77": 1}}`), &req))

	results, err := svc.Submit(context.Background(), student, attemptID, req)
	require.NoError(t, err)
	assert.Equal(t, 1, results.CorrectAnswers)
	assert.Equal(t, 2, results.IncorrectAnswers)
	assert.Equal(t, 0, results.SkippedAnswers)
	assert.Equal(t, 50.0, results.ScorePercentage)
	assert.False(t, results.Passed)
	assert.Equal(t, int64(90), results.TimeSpentSeconds)
	assert.Equal(t, PerformanceMessage(50), results.PerformanceMessage)
	require.Len(t, results.Questions, 3)
	assert.JSONEq(t, `0`, string(results.Questions[0].CorrectAnswer))
	assert.Equal(t, OutcomeIncorrect, results.Questions[0].Outcome)

	require.Len(t, repo.completed, 1)
	assert.Equal(t, int64(4), *repo.completed[0].subjectID)
	assert.Equal(t, []models.WeakConcept{{Tag: "limits", Total: 2, ErrorRate: 1}}, repo.completed[0].weak)

	_, err = svc.Submit(context.Background(), student, attemptID, req)
	assert.True(t, appErrors.Is(err, appErrors.ErrAttemptNotActive.Code))
}

func TestQuizSubmitAfterDeadlineIgnoresLateAnswers(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypeTimed, TimeLimitMinutes: intp(1)})
	svc := newTestQuizService(repo, &fakeProfileRepo{})
	attemptID := startAttempt(t, svc, 1)

	svc.now = func() time.Time { return quizStart.Add(5 * time.Minute) }
	req := dto.SubmitAttemptRequest{FinalAnswers: map[string]dto.SubmitAnswer{"11": {Answer: json.RawMessage(`0`)}}}
	results, err := svc.Submit(context.Background(), student, attemptID, req)
	require.NoError(t, err)
	assert.Equal(t, 0, results.CorrectAnswers)
	assert.Equal(t, 3, results.SkippedAnswers)
	assert.Equal(t, int64(60), results.TimeSpentSeconds)
	assert.Nil(t, results.Questions[0].CorrectAnswer)
}

func TestQuizResultsRequireCompletion(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice})
	svc := newTestQuizService(repo, &fakeProfileRepo{})
	attemptID := startAttempt(t, svc, 1)

	_, err := svc.Results(context.Background(), student, attemptID)
	assert.True(t, appErrors.Is(err, appErrors.ErrBadRequest.Code))

	_, err = svc.Submit(context.Background(), student, attemptID, dto.SubmitAttemptRequest{
		Answers: map[string]dto.SubmitAnswer{"11": {Answer: json.RawMessage(`0`)}, "12": {Answer: json.RawMessage(`false`)}, "13": {Answer: json.RawMessage(`["x", "y"]`)}},
	})
	require.NoError(t, err)

	results, err := svc.Results(context.Background(), student, attemptID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, results.ScorePercentage)
	assert.True(t, results.Passed)
	assert.Equal(t, 4.0, results.TotalPoints)
	assert.Equal(t, []models.WeakConcept{}, results.WeakConcepts)

	_, err = svc.Results(context.Background(), models.Principal{UserID: 8}, attemptID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden.Code))

	_, err = svc.Results(context.Background(), student, 404)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound.Code))
}

func TestQuizAbandon(t *testing.T) {
	repo := newFakeQuizRepo()
	seedQuiz(repo, models.Quiz{ID: 1, QuizType: models.QuizTypePractice})
	svc := newTestQuizService(repo, &fakeProfileRepo{})
	attemptID := startAttempt(t, svc, 1)

	require.NoError(t, svc.Abandon(context.Background(), student, attemptID))
	assert.Equal(t, models.AttemptAbandoned, repo.attempts[attemptID].Status)

	err := svc.Abandon(context.Background(), student, attemptID)
	assert.True(t, appErrors.Is(err, appErrors.ErrAttemptNotActive.Code))

	next, created, err := svc.Start(context.Background(), student, 1, dto.StartQuizRequest{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, attemptID, next.AttemptID)
}
