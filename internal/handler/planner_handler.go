package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/internal/service"
	"github.com/memo-edu/memo-api/pkg/response"
)

type plannerService interface {
	BatchCreate(ctx context.Context, principal models.Principal, req dto.BatchCreatePlannerSubjectsRequest) (*dto.BatchCreatePlannerSubjectsResult, error)
	List(ctx context.Context, principal models.Principal) ([]dto.PlannerListItem, error)
	Get(ctx context.Context, principal models.Principal, id int64) (*models.PlannerSubject, error)
	Upsert(ctx context.Context, principal models.Principal, id int64, req dto.UpdatePlannerSubjectRequest) (*dto.UpsertPlannerSubjectResult, error)
	Delete(ctx context.Context, principal models.Principal, id int64) error
	Export(ctx context.Context, principal models.Principal, query dto.PlannerExportQuery) (*dto.PlannerExport, error)
}

// PlannerHandler exposes the study planner subject endpoints.
type PlannerHandler struct {
	service plannerService
}

// NewPlannerHandler constructs a planner handler.
func NewPlannerHandler(svc plannerService) *PlannerHandler {
	return &PlannerHandler{service: svc}
}

// BatchCreate godoc
// @Summary Initialise planner subjects in one transaction
// @Tags Planner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BatchCreatePlannerSubjectsRequest true "Subjects to add"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /planner/subjects/batch [post]
func (h *PlannerHandler) BatchCreate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req dto.BatchCreatePlannerSubjectsRequest
	if !bindJSON(c, &req, "invalid planner payload") {
		return
	}
	result, err := h.service.BatchCreate(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result, fmt.Sprintf("%d subjects added to planner", result.CreatedCount))
}

// List godoc
// @Summary List planner subjects for the caller's academic profile
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /planner/subjects [get]
func (h *PlannerHandler) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		response.WithMessage(c, http.StatusOK, []dto.PlannerListItem{}, service.MessageProfileNotConfigured)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get a planner subject
// @Description id is matched as a planner subject id first, then as a subject id
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Planner subject or subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/subjects/{id} [get]
func (h *PlannerHandler) Get(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	subject, err := h.service.Get(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Update godoc
// @Summary Update or create a planner subject
// @Description Creates the planner row from the subject when none exists
// @Tags Planner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Planner subject or subject ID"
// @Param payload body dto.UpdatePlannerSubjectRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /planner/subjects/{id} [put]
func (h *PlannerHandler) Update(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePlannerSubjectRequest
	if !bindJSON(c, &req, "invalid planner payload") {
		return
	}
	result, err := h.service.Upsert(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "Subject updated successfully"
	if result.Outcome == models.OutcomeCreated {
		message = "Subject added to planner"
	}
	response.WithMessage(c, http.StatusOK, result, message)
}

// Delete godoc
// @Summary Remove a planner subject
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Planner subject or subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/subjects/{id} [delete]
func (h *PlannerHandler) Delete(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), principal, id); err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, nil, "Subject removed from planner")
}

// Export godoc
// @Summary Export planner subjects
// @Tags Planner
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 422 {object} response.Envelope
// @Router /planner/subjects/export [get]
func (h *PlannerHandler) Export(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var query dto.PlannerExportQuery
	if !bindQuery(c, &query) {
		return
	}
	export, err := h.service.Export(c.Request.Context(), principal, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, export.ContentType, export.Body)
}
