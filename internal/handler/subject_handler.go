package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/response"
)

type subjectService interface {
	List(ctx context.Context, principal *models.Principal, query dto.SubjectQuery) ([]dto.SubjectItem, error)
	ByAcademic(ctx context.Context, query dto.SubjectQuery) ([]dto.SubjectItem, error)
	Get(ctx context.Context, principal *models.Principal, id int64) (*dto.SubjectDetail, error)
}

// SubjectHandler handles subject endpoints.
type SubjectHandler struct {
	service subjectService
}

// NewSubjectHandler constructs a subject handler.
func NewSubjectHandler(svc subjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// List godoc
// @Summary List subjects for an academic scope
// @Description Requires year_id or stream_id, or an authenticated user with an academic profile
// @Tags Subjects
// @Produce json
// @Param year_id query int false "Academic year"
// @Param stream_id query int false "Academic stream"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	var query dto.SubjectQuery
	if !bindQuery(c, &query) {
		return
	}
	subjects, err := h.service.List(c.Request.Context(), optionalPrincipal(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// ByAcademic godoc
// @Summary List subjects by year and stream
// @Tags Subjects
// @Produce json
// @Param year_id query int false "Academic year"
// @Param stream_id query int false "Academic stream"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /subjects/by-academic [get]
func (h *SubjectHandler) ByAcademic(c *gin.Context) {
	var query dto.SubjectQuery
	if !bindQuery(c, &query) {
		return
	}
	subjects, err := h.service.ByAcademic(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Get godoc
// @Summary Get subject by id
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	subject, err := h.service.Get(c.Request.Context(), optionalPrincipal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}
