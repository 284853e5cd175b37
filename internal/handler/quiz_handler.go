package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/response"
)

type quizService interface {
	List(ctx context.Context, principal models.Principal, query dto.QuizQuery) ([]dto.QuizItem, *models.Pagination, error)
	Show(ctx context.Context, principal models.Principal, id int64) (*dto.QuizDetailItem, error)
	Start(ctx context.Context, principal models.Principal, quizID int64, req dto.StartQuizRequest) (*dto.AttemptView, bool, error)
	SaveAnswer(ctx context.Context, principal models.Principal, attemptID int64, req dto.SaveAnswerRequest) (*dto.SaveAnswerResult, error)
	Submit(ctx context.Context, principal models.Principal, attemptID int64, req dto.SubmitAttemptRequest) (*dto.AttemptResults, error)
	Results(ctx context.Context, principal models.Principal, attemptID int64) (*dto.AttemptResults, error)
	Abandon(ctx context.Context, principal models.Principal, attemptID int64) error
}

// QuizHandler exposes quizzes and the caller's attempts.
type QuizHandler struct {
	service quizService
}

// NewQuizHandler constructs a quiz handler.
func NewQuizHandler(svc quizService) *QuizHandler {
	return &QuizHandler{service: svc}
}

// List godoc
// @Summary List published quizzes
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param stream_id query int false "Academic stream"
// @Param year_id query int false "Academic year"
// @Param subject_id query int false "Subject"
// @Param chapter_id query int false "Chapter"
// @Param difficulty query string false "easy, medium or hard"
// @Param quiz_type query string false "practice, timed or exam"
// @Param duration query string false "short, medium or long"
// @Param page query int false "Page"
// @Param per_page query int false "Page size, at most 50"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /quizzes [get]
func (h *QuizHandler) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var query dto.QuizQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), principal, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Show godoc
// @Summary Get a quiz
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quizzes/{id} [get]
func (h *QuizHandler) Show(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	quiz, err := h.service.Show(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quiz, nil)
}

// Start godoc
// @Summary Start or resume a quiz attempt
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Quiz ID"
// @Param payload body dto.StartQuizRequest false "Optional shuffle seed"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quizzes/{id}/start [post]
func (h *QuizHandler) Start(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.StartQuizRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid start payload") {
		return
	}
	view, created, err := h.service.Start(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, view, "Quiz started")
		return
	}
	response.WithMessage(c, http.StatusOK, view, "Quiz resumed")
}

// SaveAnswer godoc
// @Summary Save one answer of a running attempt
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Param payload body dto.SaveAnswerRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /quiz-attempts/{id}/answer [post]
func (h *QuizHandler) SaveAnswer(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.SaveAnswerRequest
	if !bindJSON(c, &req, "invalid answer payload") {
		return
	}
	result, err := h.service.SaveAnswer(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, result, "Answer saved")
}

// Submit godoc
// @Summary Submit an attempt for scoring
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Param payload body dto.SubmitAttemptRequest false "Answers keyed by question id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /quiz-attempts/{id}/submit [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitAttemptRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid submit payload") {
		return
	}
	results, err := h.service.Submit(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, results, "Quiz submitted")
}

// Results godoc
// @Summary Get the results of a completed attempt
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /quiz-attempts/{id}/results [get]
func (h *QuizHandler) Results(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	results, err := h.service.Results(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Abandon godoc
// @Summary Abandon a running attempt
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /quiz-attempts/{id}/abandon [delete]
func (h *QuizHandler) Abandon(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Abandon(c.Request.Context(), principal, id); err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, nil, "Quiz attempt abandoned")
}
