package handler

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/service"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, viewer models.Viewer, portfolioID string, req dto.UploadDocumentRequest, file service.UploadFile, meta models.RequestMeta) (*models.Document, error)
	List(ctx context.Context, viewer models.Viewer, portfolioID string) ([]models.Document, error)
	Get(ctx context.Context, viewer models.Viewer, id string) (*models.DocumentView, error)
	Open(ctx context.Context, viewer models.Viewer, id string) (*models.Document, io.ReadCloser, error)
	OpenShared(ctx context.Context, token string) (*models.Document, io.ReadCloser, error)
	Delete(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) error
}

// DocumentHandler exposes portfolio file endpoints.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload document
// @Description Multipart upload into a DRAFT portfolio
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Param file formData file true "Document"
// @Param categoria formData string true "syllabus, material, exams or student_work"
// @Param subcategoria formData string false "Free text subcategory"
// @Param nivel_calidad formData string false "excellent, good, fair or poor (student_work only)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /portfolios/{id}/files [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid upload form"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, invalidPayload(err, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, invalidPayload(err, "unable to read uploaded file"))
		return
	}
	defer file.Close()

	upload := service.UploadFile{Name: header.Filename, Size: header.Size, Content: file}
	doc, err := h.service.Upload(c.Request.Context(), viewer, id, req, upload, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "document uploaded", doc)
}

// List godoc
// @Summary List portfolio documents
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /portfolios/{id}/files [get]
func (h *DocumentHandler) List(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	docs, err := h.service.List(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "documents retrieved", gin.H{"documents": docs})
}

// Get godoc
// @Summary Document metadata
// @Description Includes a short lived signed download_url
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.service.Get(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "document retrieved", view)
}

// Download godoc
// @Summary Download document
// @Tags Documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	doc, body, err := h.service.Open(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, doc, body)
}

// Shared godoc
// @Summary Download through signed link
// @Tags Documents
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /files/shared/{token} [get]
func (h *DocumentHandler) Shared(c *gin.Context) {
	doc, body, err := h.service.OpenShared(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, doc, body)
}

// Delete godoc
// @Summary Delete document
// @Description Only while the portfolio is in DRAFT
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /files/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), viewer, id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "document deleted", nil)
}

func stream(c *gin.Context, doc *models.Document, body io.ReadCloser) {
	defer body.Close()
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, doc.SizeBytes, contentType, body, map[string]string{
		"Content-Disposition": disposition,
		"Cache-Control":       "private, no-store",
	})
}
