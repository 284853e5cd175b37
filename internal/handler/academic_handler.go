package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/response"
)

type academicService interface {
	Structure(ctx context.Context) (*models.AcademicStructure, error)
	Phases(ctx context.Context) ([]dto.PhaseItem, error)
	PhaseYears(ctx context.Context, phaseID int64) (*dto.PhaseYears, error)
	YearStreams(ctx context.Context, yearID int64) (*dto.YearStreams, error)
	GetProfile(ctx context.Context, principal models.Principal) (*dto.AcademicProfileView, error)
	UpdateProfile(ctx context.Context, principal models.Principal, req dto.UpdateAcademicProfileRequest) (*dto.AcademicProfileView, error)
}

// AcademicHandler serves the academic hierarchy and the caller's academic profile.
type AcademicHandler struct {
	service academicService
}

// NewAcademicHandler constructs an academic handler.
func NewAcademicHandler(svc academicService) *AcademicHandler {
	return &AcademicHandler{service: svc}
}

// Structure godoc
// @Summary Academic structure
// @Description Active phases with their years and streams
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic/structure [get]
func (h *AcademicHandler) Structure(c *gin.Context) {
	structure, err := h.service.Structure(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// Phases godoc
// @Summary List academic phases
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic/phases [get]
func (h *AcademicHandler) Phases(c *gin.Context) {
	phases, err := h.service.Phases(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, phases, nil)
}

// PhaseYears godoc
// @Summary List years of a phase
// @Tags Academic
// @Produce json
// @Param id path int true "Phase ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic/phases/{id}/years [get]
func (h *AcademicHandler) PhaseYears(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	years, err := h.service.PhaseYears(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// YearStreams godoc
// @Summary List streams of a year
// @Tags Academic
// @Produce json
// @Param id path int true "Year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic/years/{id}/streams [get]
func (h *AcademicHandler) YearStreams(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	streams, err := h.service.YearStreams(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, streams, nil)
}

// Profile godoc
// @Summary Get academic profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /profile/academic [get]
func (h *AcademicHandler) Profile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	profile, err := h.service.GetProfile(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateProfile godoc
// @Summary Update academic profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateAcademicProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /profile/academic [put]
func (h *AcademicHandler) UpdateProfile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req dto.UpdateAcademicProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	profile, err := h.service.UpdateProfile(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, profile, "Academic profile updated")
}
