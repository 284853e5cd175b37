package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/response"
)

type bookmarkService interface {
	List(ctx context.Context, principal models.Principal, query dto.BookmarkQuery) ([]dto.BookmarkView, error)
	Store(ctx context.Context, principal models.Principal, contentID int64, req dto.StoreBookmarkRequest) (*dto.BookmarkView, error)
	Check(ctx context.Context, principal models.Principal, contentID int64) (*dto.BookmarkCheck, error)
	Destroy(ctx context.Context, principal models.Principal, contentID int64) error
	Count(ctx context.Context, principal models.Principal) (*dto.BookmarkCount, error)
}

// BookmarkHandler manages the caller's bookmarks.
type BookmarkHandler struct {
	service bookmarkService
}

// NewBookmarkHandler constructs a bookmark handler.
func NewBookmarkHandler(svc bookmarkService) *BookmarkHandler {
	return &BookmarkHandler{service: svc}
}

// List godoc
// @Summary List bookmarks
// @Tags Bookmarks
// @Produce json
// @Security BearerAuth
// @Param content_type_id query int false "Content type"
// @Param subject_id query int false "Subject"
// @Success 200 {object} response.Envelope
// @Router /bookmarks [get]
func (h *BookmarkHandler) List(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var query dto.BookmarkQuery
	if !bindQuery(c, &query) {
		return
	}
	bookmarks, err := h.service.List(c.Request.Context(), principal, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookmarks, nil)
}

// Store godoc
// @Summary Bookmark a content
// @Tags Bookmarks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Param payload body dto.StoreBookmarkRequest false "Bookmark position"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id}/bookmark [post]
func (h *BookmarkHandler) Store(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.StoreBookmarkRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid bookmark payload") {
		return
	}
	bookmark, err := h.service.Store(c.Request.Context(), principal, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bookmark, "Content bookmarked")
}

// Check godoc
// @Summary Check whether a content is bookmarked
// @Tags Bookmarks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /contents/{id}/bookmark [get]
func (h *BookmarkHandler) Check(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	check, err := h.service.Check(c.Request.Context(), principal, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Destroy godoc
// @Summary Remove a bookmark
// @Tags Bookmarks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id}/bookmark [delete]
func (h *BookmarkHandler) Destroy(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Destroy(c.Request.Context(), principal, id); err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusOK, nil, "Bookmark removed")
}

// Count godoc
// @Summary Count bookmarks
// @Tags Bookmarks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /bookmarks/count [get]
func (h *BookmarkHandler) Count(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	count, err := h.service.Count(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, count, nil)
}
