package service

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
	"github.com/memo-edu/memo-api/pkg/middleware/requestid"
)

// Quiz attempt events counted by the metrics service.
const (
	QuizEventStarted   = "started"
	QuizEventResumed   = "resumed"
	QuizEventSubmitted = "submitted"
	QuizEventExpired   = "expired"
	QuizEventAbandoned = "abandoned"
)

const (
	shortQuizMaxMinutes = 14
	longQuizMinMinutes  = 31
	maxSeed             = math.MaxInt32
)

type quizRepository interface {
	List(ctx context.Context, filter models.QuizFilter) ([]models.QuizDetail, int, error)
	FindPublished(ctx context.Context, id, userID int64) (*models.QuizDetail, error)
	FindByID(ctx context.Context, id int64) (*models.Quiz, error)
	ListQuestions(ctx context.Context, quizID int64) ([]models.QuizQuestion, error)
	FindInProgressAttempt(ctx context.Context, userID, quizID int64) (*models.QuizAttempt, error)
	FindAttempt(ctx context.Context, id int64) (*models.QuizAttempt, error)
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	SaveAnswer(ctx context.Context, attemptID, questionID int64, answer models.AttemptAnswer) error
	Abandon(ctx context.Context, attemptID int64, at time.Time) error
	CompleteAttempt(ctx context.Context, attempt *models.QuizAttempt, subjectID *int64, weak []models.WeakConcept) error
}

// QuizService lists quizzes and runs attempts from start to scored results.
type QuizService struct {
	quizzes   quizRepository
	scopes    *ScopeResolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	newSeed   func() int64
}

// NewQuizService constructs a QuizService.
func NewQuizService(quizzes quizRepository, scopes *ScopeResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		quizzes:   quizzes,
		scopes:    scopes,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		newSeed:   func() int64 { return rand.Int63n(maxSeed) + 1 },
	}
}

// List returns a page of published quizzes with the caller's attempt statistics.
// Stream and year default to the caller's academic profile.
func (s *QuizService) List(ctx context.Context, principal models.Principal, query dto.QuizQuery) ([]dto.QuizItem, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err)
	}

	scope := Scope{YearID: query.YearID, StreamID: query.StreamID}
	if scope.YearID == nil || scope.StreamID == nil {
		profile, err := s.scopes.Profile(ctx, &principal)
		if err != nil {
			return nil, nil, err
		}
		scope = ResolveScope(scope, profile)
	}

	page, perPage := pageBounds(query.Page, query.PerPage)
	filter := models.QuizFilter{
		UserID:     principal.UserID,
		StreamID:   scope.StreamID,
		YearID:     scope.YearID,
		SubjectID:  query.SubjectID,
		ChapterID:  query.ChapterID,
		Difficulty: query.Difficulty,
		QuizType:   query.QuizType,
		Page:       page,
		PerPage:    perPage,
	}
	filter.MinDuration, filter.MaxDuration = durationBounds(query.Duration)

	rows, total, err := s.quizzes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quizzes")
	}
	items := make([]dto.QuizItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toQuizItem(row))
	}
	return items, models.NewPagination(total, perPage, page), nil
}

func durationBounds(bucket string) (*int, *int) {
	minutes := func(v int) *int { return &v }
	switch bucket {
	case "short":
		return nil, minutes(shortQuizMaxMinutes)
	case "medium":
		return minutes(shortQuizMaxMinutes + 1), minutes(longQuizMinMinutes - 1)
	case "long":
		return minutes(longQuizMinMinutes), nil
	}
	return nil, nil
}

// Show returns a published quiz with its settings and whether the caller may start it.
func (s *QuizService) Show(ctx context.Context, principal models.Principal, id int64) (*dto.QuizDetailItem, error) {
	quiz, err := s.quizzes.FindPublished(ctx, id, principal.UserID)
	if err != nil {
		return nil, notFoundOrInternal(err, "quiz not found", "failed to load quiz")
	}
	return &dto.QuizDetailItem{
		QuizItem:           toQuizItem(*quiz),
		ShuffleQuestions:   quiz.ShuffleQuestions,
		ShuffleAnswers:     quiz.ShuffleAnswers,
		ShowCorrectAnswers: quiz.ShowCorrectAnswers,
		AllowReview:        quiz.AllowReview,
		CanStart:           !quiz.IsPremium && quiz.TotalQuestions > 0,
	}, nil
}

// Start resumes the caller's running attempt or opens a new one. An expired running attempt
// is submitted first. The boolean reports whether a new attempt was created.
func (s *QuizService) Start(ctx context.Context, principal models.Principal, quizID int64, req dto.StartQuizRequest) (*dto.AttemptView, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, validationError(err)
	}
	detail, err := s.quizzes.FindPublished(ctx, quizID, principal.UserID)
	if err != nil {
		return nil, false, notFoundOrInternal(err, "quiz not found", "failed to load quiz")
	}
	quiz := detail.Quiz
	if quiz.IsPremium {
		return nil, false, appErrors.ErrPremiumRequired
	}
	questions, err := s.questions(ctx, quiz.ID)
	if err != nil {
		return nil, false, err
	}
	if len(questions) == 0 {
		return nil, false, appErrors.Clone(appErrors.ErrBadRequest, "quiz has no questions")
	}

	now := s.now().UTC()
	existing, err := s.quizzes.FindInProgressAttempt(ctx, principal.UserID, quiz.ID)
	switch {
	case err == nil && !existing.Expired(quiz, now):
		s.metrics.RecordQuizAttempt(QuizEventResumed)
		return s.attemptView(quiz, *existing, questions, true, now), false, nil
	case err == nil:
		if _, err := s.complete(ctx, quiz, existing, questions, now); err != nil && !appErrors.Is(err, appErrors.ErrAttemptNotActive.Code) {
			return nil, false, err
		}
	case !isNoRows(err):
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz attempt")
	}

	seed := s.newSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	attempt := &models.QuizAttempt{
		QuizID:         quiz.ID,
		UserID:         principal.UserID,
		StartedAt:      now,
		TotalQuestions: len(questions),
		Seed:           seed,
	}
	if err := s.quizzes.CreateAttempt(ctx, attempt); err != nil {
		if !isNoRows(err) {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start quiz")
		}
		// A concurrent start won; hand back its attempt.
		running, err := s.quizzes.FindInProgressAttempt(ctx, principal.UserID, quiz.ID)
		if err != nil {
			return nil, false, notFoundOrInternal(err, "quiz attempt not found", "failed to load quiz attempt")
		}
		s.metrics.RecordQuizAttempt(QuizEventResumed)
		return s.attemptView(quiz, *running, questions, true, now), false, nil
	}

	s.metrics.RecordQuizAttempt(QuizEventStarted)
	s.logger.Info("quiz attempt started",
		zap.Int64("user_id", principal.UserID),
		zap.Int64("quiz_id", quiz.ID),
		zap.Int64("attempt_id", attempt.ID),
		zap.String("request_id", requestid.FromContext(ctx)),
	)
	return s.attemptView(quiz, *attempt, questions, false, now), true, nil
}

// SaveAnswer stores one answer of a running attempt. Practice quizzes that show correct
// answers return immediate feedback.
func (s *QuizService) SaveAnswer(ctx context.Context, principal models.Principal, attemptID int64, req dto.SaveAnswerRequest) (*dto.SaveAnswerResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	attempt, quiz, err := s.runningAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if attempt.Expired(*quiz, now) {
		if _, err := s.complete(ctx, *quiz, attempt, questions, now); err != nil && !appErrors.Is(err, appErrors.ErrAttemptNotActive.Code) {
			return nil, err
		}
		return nil, appErrors.ErrQuizExpired
	}

	question, ok := findQuestion(questions, req.QuestionID)
	if !ok {
		return nil, fieldError("question_id", "does not belong to this quiz")
	}

	answer := models.AttemptAnswer{Answer: models.RawJSON(req.Answer), TimeSpent: req.TimeSpent, AnsweredAt: now}
	if len(answer.Answer) == 0 {
		answer.Answer = models.RawJSON("null")
	}
	if err := s.quizzes.SaveAnswer(ctx, attempt.ID, question.ID, answer); err != nil {
		if isNoRows(err) {
			return nil, appErrors.ErrAttemptNotActive
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save answer")
	}

	key := strconv.FormatInt(question.ID, 10)
	answered := len(attempt.Answers)
	if _, seen := attempt.Answers[key]; !seen {
		answered++
	}
	result := &dto.SaveAnswerResult{QuestionID: question.ID, AnsweredCount: answered}
	if quiz.QuizType == models.QuizTypePractice && quiz.ShowCorrectAnswers {
		grade := GradeAnswer(question, answer.Answer)
		result.Feedback = &dto.AnswerFeedback{
			IsCorrect:     grade.Outcome == OutcomeCorrect,
			CorrectAnswer: json.RawMessage(nonNullJSON(question.CorrectAnswer)),
			ExplanationAr: question.ExplanationAr,
		}
	}
	return result, nil
}

// Submit grades a running attempt and records the result. Answers in the request override
// saved ones; once the time limit has passed only saved answers count.
func (s *QuizService) Submit(ctx context.Context, principal models.Principal, attemptID int64, req dto.SubmitAttemptRequest) (*dto.AttemptResults, error) {
	attempt, quiz, err := s.runningAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !attempt.Expired(*quiz, now) {
		if attempt.Answers == nil {
			attempt.Answers = models.AttemptAnswers{}
		}
		for key, submitted := range req.Merged() {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fieldError("answers."+key, "must be keyed by question id")
			}
			if _, ok := findQuestion(questions, id); !ok {
				continue
			}
			attempt.Answers[key] = models.AttemptAnswer{Answer: models.RawJSON(submitted.Answer), TimeSpent: submitted.TimeSpent, AnsweredAt: now}
		}
	}

	score, err := s.complete(ctx, *quiz, attempt, questions, now)
	if err != nil {
		return nil, err
	}
	return s.results(*quiz, *attempt, questions, score), nil
}

// Results returns the scored summary of a completed attempt.
func (s *QuizService) Results(ctx context.Context, principal models.Principal, attemptID int64) (*dto.AttemptResults, error) {
	attempt, err := s.ownedAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptCompleted {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "quiz attempt is not completed")
	}
	quiz, err := s.quizzes.FindByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, notFoundOrInternal(err, "quiz not found", "failed to load quiz")
	}
	questions, err := s.questions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	return s.results(*quiz, *attempt, questions, ScoreAttempt(questions, attempt.Answers)), nil
}

// Abandon closes a running attempt without scoring it.
func (s *QuizService) Abandon(ctx context.Context, principal models.Principal, attemptID int64) error {
	attempt, err := s.ownedAttempt(ctx, principal, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return appErrors.ErrAttemptNotActive
	}
	if err := s.quizzes.Abandon(ctx, attempt.ID, s.now().UTC()); err != nil {
		if isNoRows(err) {
			return appErrors.ErrAttemptNotActive
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to abandon quiz attempt")
	}
	s.metrics.RecordQuizAttempt(QuizEventAbandoned)
	return nil
}

func (s *QuizService) ownedAttempt(ctx context.Context, principal models.Principal, attemptID int64) (*models.QuizAttempt, error) {
	attempt, err := s.quizzes.FindAttempt(ctx, attemptID)
	if err != nil {
		return nil, notFoundOrInternal(err, "quiz attempt not found", "failed to load quiz attempt")
	}
	if attempt.UserID != principal.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "quiz attempt belongs to another user")
	}
	return attempt, nil
}

func (s *QuizService) runningAttempt(ctx context.Context, principal models.Principal, attemptID int64) (*models.QuizAttempt, *models.Quiz, error) {
	attempt, err := s.ownedAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, nil, appErrors.ErrAttemptNotActive
	}
	quiz, err := s.quizzes.FindByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, nil, notFoundOrInternal(err, "quiz not found", "failed to load quiz")
	}
	return attempt, quiz, nil
}

func (s *QuizService) questions(ctx context.Context, quizID int64) ([]models.QuizQuestion, error) {
	questions, err := s.quizzes.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz questions")
	}
	return questions, nil
}

// complete scores the attempt's answers and persists the result. Time spent is capped at the
// quiz time limit.
func (s *QuizService) complete(ctx context.Context, quiz models.Quiz, attempt *models.QuizAttempt, questions []models.QuizQuestion, now time.Time) (Score, error) {
	expired := attempt.Expired(quiz, now)
	score := ScoreAttempt(questions, attempt.Answers)

	elapsed := int64(now.Sub(attempt.StartedAt).Seconds())
	if limit := quiz.TimeLimitSeconds(); quiz.Timed() && elapsed > int64(*limit) {
		elapsed = int64(*limit)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	passed := score.Percentage >= quiz.PassingScore
	percentage := score.Percentage

	attempt.CompletedAt = &now
	attempt.TimeSpentSeconds = &elapsed
	attempt.TotalQuestions = len(questions)
	attempt.CorrectAnswers = score.Correct
	attempt.IncorrectAnswers = score.Incorrect
	attempt.SkippedAnswers = score.Skipped
	attempt.ScorePercentage = &percentage
	attempt.TotalPoints = score.TotalPoints
	attempt.MaxScore = score.MaxScore
	attempt.Passed = &passed

	if err := s.quizzes.CompleteAttempt(ctx, attempt, quiz.SubjectID, score.WeakConcepts); err != nil {
		if isNoRows(err) {
			return Score{}, appErrors.ErrAttemptNotActive
		}
		s.logger.Error("quiz submit failed",
			zap.Int64("attempt_id", attempt.ID),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
		return Score{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit quiz")
	}

	event := QuizEventSubmitted
	if expired {
		event = QuizEventExpired
	}
	s.metrics.RecordQuizAttempt(event)
	s.logger.Info("quiz attempt completed",
		zap.Int64("user_id", attempt.UserID),
		zap.Int64("quiz_id", quiz.ID),
		zap.Int64("attempt_id", attempt.ID),
		zap.Float64("score", percentage),
		zap.Bool("expired", expired),
	)
	return score, nil
}

func (s *QuizService) attemptView(quiz models.Quiz, attempt models.QuizAttempt, questions []models.QuizQuestion, resumed bool, now time.Time) *dto.AttemptView {
	view := &dto.AttemptView{
		AttemptID:   attempt.ID,
		QuizID:      quiz.ID,
		QuizTitleAr: quiz.TitleAr,
		QuizType:    quiz.QuizType,
		Status:      attempt.Status,
		StartedAt:   attempt.StartedAt,
		ExpiresAt:   attempt.ExpiresAt(quiz),
		Resumed:     resumed,
		Seed:        attempt.Seed,
		Questions:   presentQuestions(quiz, questions, attempt.Seed),
		Answers:     attempt.Answers,
	}
	if quiz.Timed() {
		view.TimeLimitSeconds = quiz.TimeLimitSeconds()
		remaining := int64(view.ExpiresAt.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		view.RemainingSeconds = &remaining
	}
	if view.Answers == nil {
		view.Answers = models.AttemptAnswers{}
	}
	return view
}

func (s *QuizService) results(quiz models.Quiz, attempt models.QuizAttempt, questions []models.QuizQuestion, score Score) *dto.AttemptResults {
	out := &dto.AttemptResults{
		AttemptID:        attempt.ID,
		QuizID:           quiz.ID,
		QuizTitleAr:      quiz.TitleAr,
		Status:           attempt.Status,
		StartedAt:        attempt.StartedAt,
		CompletedAt:      attempt.CompletedAt,
		TotalQuestions:   attempt.TotalQuestions,
		CorrectAnswers:   attempt.CorrectAnswers,
		IncorrectAnswers: attempt.IncorrectAnswers,
		SkippedAnswers:   attempt.SkippedAnswers,
		TotalPoints:      attempt.TotalPoints,
		MaxScore:         attempt.MaxScore,
		PassingScore:     quiz.PassingScore,
		WeakConcepts:     score.WeakConcepts,
	}
	if attempt.TimeSpentSeconds != nil {
		out.TimeSpentSeconds = *attempt.TimeSpentSeconds
	}
	if attempt.ScorePercentage != nil {
		out.ScorePercentage = *attempt.ScorePercentage
	}
	if attempt.Passed != nil {
		out.Passed = *attempt.Passed
	}
	out.PerformanceMessage = PerformanceMessage(out.ScorePercentage)
	if out.WeakConcepts == nil {
		out.WeakConcepts = []models.WeakConcept{}
	}

	review := quiz.AllowReview || quiz.ShowCorrectAnswers
	for _, q := range questions {
		grade, ok := score.Grades[q.ID]
		if !ok {
			grade = Grade{Outcome: OutcomeSkipped}
		}
		item := dto.QuestionResult{
			QuestionID:     q.ID,
			QuestionType:   q.QuestionType,
			QuestionTextAr: q.QuestionTextAr,
			UserAnswer:     json.RawMessage(nonNullJSON(attempt.Answers[strconv.FormatInt(q.ID, 10)].Answer)),
			Outcome:        grade.Outcome,
			Points:         q.Points,
			PointsEarned:   earnedPoints(grade, q.Points),
		}
		if review {
			item.CorrectAnswer = json.RawMessage(nonNullJSON(q.CorrectAnswer))
			item.ExplanationAr = q.ExplanationAr
		}
		out.Questions = append(out.Questions, item)
	}
	return out
}

func earnedPoints(grade Grade, points float64) float64 {
	switch {
	case grade.Outcome == OutcomeCorrect:
		return points
	case grade.Outcome == OutcomeIncorrect && grade.Credit > 0 && grade.Credit < 1:
		return math.Round(grade.Credit*points*100) / 100
	}
	return 0
}

func findQuestion(questions []models.QuizQuestion, id int64) (models.QuizQuestion, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.QuizQuestion{}, false
}

func nonNullJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

// presentQuestions orders questions and options deterministically from seed and hides answers.
func presentQuestions(quiz models.Quiz, questions []models.QuizQuestion, seed int64) []dto.AttemptQuestion {
	ordered := append([]models.QuizQuestion(nil), questions...)
	if quiz.ShuffleQuestions {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })
	}
	out := make([]dto.AttemptQuestion, 0, len(ordered))
	for i, q := range ordered {
		out = append(out, dto.AttemptQuestion{
			ID:               q.ID,
			QuestionType:     q.QuestionType,
			QuestionTextAr:   q.QuestionTextAr,
			QuestionImageURL: q.QuestionImageURL,
			Options:          presentOptions(q, quiz.ShuffleAnswers, seed+q.ID),
			Points:           q.Points,
			Difficulty:       q.Difficulty,
			Order:            i + 1,
		})
	}
	return out
}

// presentOptions strips correctness flags and tags object options with their original index,
// which is what answers refer to. Sequence items are always shuffled.
func presentOptions(q models.QuizQuestion, shuffleAnswers bool, seed int64) json.RawMessage {
	if q.QuestionType == models.QuestionFillBlank {
		raw, _ := json.Marshal(map[string]int{"number_of_blanks": len(blankAlternatives(q.CorrectAnswer))})
		return raw
	}
	var items []json.RawMessage
	if q.Options.IsNull() || json.Unmarshal(q.Options, &items) != nil {
		return json.RawMessage(nonNullJSON(q.Options))
	}

	shuffle := q.QuestionType == models.QuestionSequence ||
		(shuffleAnswers && (q.QuestionType == models.QuestionSingleChoice || q.QuestionType == models.QuestionMultipleChoice))
	presented := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		index := json.RawMessage(strconv.Itoa(i))
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err == nil && obj != nil {
			delete(obj, "is_correct")
			obj["index"] = index
			item, _ = json.Marshal(obj)
		} else if shuffle {
			item, _ = json.Marshal(map[string]json.RawMessage{"index": index, "text": item})
		}
		presented = append(presented, item)
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(presented), func(i, j int) { presented[i], presented[j] = presented[j], presented[i] })
	}
	raw, _ := json.Marshal(presented)
	return raw
}

func toQuizItem(row models.QuizDetail) dto.QuizItem {
	item := dto.QuizItem{
		ID:                       row.ID,
		TitleAr:                  row.TitleAr,
		Slug:                     row.Slug,
		DescriptionAr:            row.DescriptionAr,
		QuizType:                 row.QuizType,
		TimeLimitMinutes:         row.TimeLimitMinutes,
		PassingScore:             row.PassingScore,
		DifficultyLevel:          row.DifficultyLevel,
		EstimatedDurationMinutes: row.EstimatedDurationMinutes,
		TotalQuestions:           row.TotalQuestions,
		AverageScore:             row.AverageScore,
		TotalAttempts:            row.TotalAttempts,
		IsPremium:                row.IsPremium,
		Tags:                     []string(row.Tags),
		UserStats: dto.QuizUserStats{
			Attempts:        row.UserAttempts,
			BestScore:       row.UserBestScore,
			AverageScore:    row.UserAverageScore,
			LastAttemptID:   row.UserLastAttemptID,
			LastCompletedAt: row.UserLastCompleted,
			HasInProgress:   row.UserHasInProgress,
		},
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if row.SubjectID != nil && row.SubjectNameAr != nil {
		item.Subject = &dto.Ref{ID: *row.SubjectID, NameAr: *row.SubjectNameAr, NameFr: row.SubjectNameFr, Color: row.SubjectColor, Icon: row.SubjectIcon}
	}
	if row.ChapterID != nil && row.ChapterTitleAr != nil {
		item.Chapter = &dto.ChapterRef{ID: *row.ChapterID, TitleAr: *row.ChapterTitleAr}
	}
	if row.AcademicStreamID != nil && row.StreamNameAr != nil {
		item.AcademicStream = &dto.Ref{ID: *row.AcademicStreamID, NameAr: *row.StreamNameAr}
	}
	return item
}
