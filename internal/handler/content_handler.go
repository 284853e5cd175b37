package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memo-edu/memo-api/internal/dto"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/pkg/response"
	"github.com/memo-edu/memo-api/pkg/storage"
)

type contentService interface {
	List(ctx context.Context, principal *models.Principal, query dto.ContentQuery) ([]dto.ContentItem, *models.Pagination, error)
	Search(ctx context.Context, principal *models.Principal, query dto.ContentQuery) ([]dto.ContentItem, *models.Pagination, error)
	Show(ctx context.Context, principal *models.Principal, id int64) (*dto.ContentDetailItem, error)
	Chapters(ctx context.Context, principal *models.Principal, query dto.ChapterQuery) ([]dto.ChapterItem, error)
	ChapterContents(ctx context.Context, principal *models.Principal, chapterID int64, streamParam *int64) (*dto.ChapterContents, error)
	Types(ctx context.Context) ([]models.ContentType, error)
	Download(ctx context.Context, id int64) (*storage.File, error)
	OpenFile(ctx context.Context, id int64, token string) (*storage.File, error)
}

// ContentHandler exposes published contents, chapters and files.
type ContentHandler struct {
	service contentService
}

// NewContentHandler constructs a content handler.
func NewContentHandler(svc contentService) *ContentHandler {
	return &ContentHandler{service: svc}
}

// List godoc
// @Summary List published contents
// @Tags Contents
// @Produce json
// @Param stream_id query int false "Overrides the profile stream"
// @Param subject_id query int false "Subject"
// @Param chapter_id query int false "Chapter"
// @Param content_type_id query int false "Content type"
// @Param difficulty query string false "easy, medium or hard"
// @Param premium query bool false "Premium only"
// @Param order_by query string false "order, views_count or created_at"
// @Param order_direction query string false "asc or desc"
// @Param page query int false "Page"
// @Param per_page query int false "Page size (max 50)"
// @Success 200 {object} response.Envelope
// @Router /contents [get]
func (h *ContentHandler) List(c *gin.Context) {
	var query dto.ContentQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), optionalPrincipal(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Search godoc
// @Summary Search published contents
// @Tags Contents
// @Produce json
// @Param q query string true "At least 2 characters"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /contents/search [get]
func (h *ContentHandler) Search(c *gin.Context) {
	var query dto.ContentQuery
	if !bindQuery(c, &query) {
		return
	}
	items, pagination, err := h.service.Search(c.Request.Context(), optionalPrincipal(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Show godoc
// @Summary Get a published content
// @Tags Contents
// @Produce json
// @Param id path int true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id} [get]
func (h *ContentHandler) Show(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	content, err := h.service.Show(c.Request.Context(), optionalPrincipal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Chapters godoc
// @Summary List chapters of a subject
// @Tags Contents
// @Produce json
// @Param subject_id query int true "Subject"
// @Param stream_id query int false "Overrides the profile stream"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /contents/chapters [get]
func (h *ContentHandler) Chapters(c *gin.Context) {
	var query dto.ChapterQuery
	if !bindQuery(c, &query) {
		return
	}
	chapters, err := h.service.Chapters(c.Request.Context(), optionalPrincipal(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chapters, nil)
}

// ChapterContents godoc
// @Summary List contents of a chapter
// @Tags Contents
// @Produce json
// @Param id path int true "Chapter ID"
// @Param stream_id query int false "Overrides the profile stream"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chapters/{id}/contents [get]
func (h *ContentHandler) ChapterContents(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var query struct {
		StreamID *int64 `form:"stream_id"`
	}
	if !bindQuery(c, &query) {
		return
	}
	contents, err := h.service.ChapterContents(c.Request.Context(), optionalPrincipal(c), id, query.StreamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contents, nil)
}

// Types godoc
// @Summary List content types
// @Tags Contents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /contents/types [get]
func (h *ContentHandler) Types(c *gin.Context) {
	types, err := h.service.Types(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Download godoc
// @Summary Download the file of a content
// @Tags Contents
// @Produce octet-stream
// @Param id path int true "Content ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /contents/{id}/download [get]
func (h *ContentHandler) Download(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	file, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, "attachment")
}

// File godoc
// @Summary Stream a content file through a signed link
// @Tags Contents
// @Produce octet-stream
// @Param id path int true "Content ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /contents/{id}/file [get]
func (h *ContentHandler) File(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	file, err := h.service.OpenFile(c.Request.Context(), id, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, "inline")
}

func serveFile(c *gin.Context, file *storage.File, disposition string) {
	defer file.Close() //nolint:errcheck
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, file.Name),
	})
}
