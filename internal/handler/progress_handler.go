package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/response"
)

type progressService interface {
	Get(ctx context.Context, principal models.Principal, contentID int64) (*dto.ProgressView, error)
	Update(ctx context.Context, principal models.Principal, contentID int64, req dto.UpdateProgressRequest) (*dto.ProgressView, error)
	Complete(ctx context.Context, principal models.Principal, contentID int64) (*dto.ProgressView, error)
	SubjectProgress(ctx context.Context, principal models.Principal, subjectID int64) (*dto.SubjectProgressView, error)
	Rate(ctx context.Context, principal models.Principal, contentID int64, req dto.RateContentRequest) (*dto.RatingView, error)
	Rating(ctx context.Context, principal models.Principal, contentID int64) (*dto.RatingView, error)
	List(ctx context.Context, principal models.Principal) ([]dto.ProgressListItem, error)
}

// ProgressHandler records the caller's progress and ratings.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(svc progressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// Get godoc
// @Summary Get progress on a content
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id}/progress [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.service.Get(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// Update godoc
// @Summary Record progress on a content
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Param payload body dto.UpdateProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /contents/{id}/progress [post]
func (h *ProgressHandler) Update(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProgressRequest
	if !bindJSON(c, &req, "invalid progress payload") {
		return
	}
	progress, err := h.service.Update(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, progress, "Progress updated")
}

// Complete godoc
// @Summary Mark a content completed
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /contents/{id}/complete [post]
func (h *ProgressHandler) Complete(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.service.Complete(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, progress, "Content marked as completed")
}

// SubjectProgress godoc
// @Summary Progress summary over a subject
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/progress [get]
func (h *ProgressHandler) SubjectProgress(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.SubjectProgress(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Rate godoc
// @Summary Rate a content
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Param payload body dto.RateContentRequest true "Rating payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /contents/{id}/rate [post]
func (h *ProgressHandler) Rate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.RateContentRequest
	if !bindJSON(c, &req, "invalid rating payload") {
		return
	}
	rating, err := h.service.Rate(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, rating, "Rating saved")
}

// Rating godoc
// @Summary Get the caller's rating of a content
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /contents/{id}/rating [get]
func (h *ProgressHandler) Rating(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rating, err := h.service.Rating(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// List godoc
// @Summary List the caller's progress
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /progress [get]
func (h *ProgressHandler) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
