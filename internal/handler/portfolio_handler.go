package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

type portfolioService interface {
	List(ctx context.Context, viewer models.Viewer, query dto.PortfolioListQuery) ([]models.PortfolioSummary, *models.Pagination, error)
	Get(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioDetail, error)
	Create(ctx context.Context, viewer models.Viewer, req dto.CreatePortfolioRequest, meta models.RequestMeta) (*models.Portfolio, error)
	Submit(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) (*models.Portfolio, error)
	AssignEvaluator(ctx context.Context, viewer models.Viewer, id string, req dto.AssignEvaluatorRequest, meta models.RequestMeta) (*models.Portfolio, error)
	Evaluate(ctx context.Context, viewer models.Viewer, id string, req dto.EvaluatePortfolioRequest, meta models.RequestMeta) (*models.Portfolio, error)
	AddComment(ctx context.Context, viewer models.Viewer, id string, req dto.CreateCommentRequest, meta models.RequestMeta) (*models.Comment, error)
	ListComments(ctx context.Context, viewer models.Viewer, id string) ([]models.Comment, error)
	Delete(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) error
}

// PortfolioHandler exposes the portfolio lifecycle over HTTP.
type PortfolioHandler struct {
	service portfolioService
}

// NewPortfolioHandler constructs the handler.
func NewPortfolioHandler(svc portfolioService) *PortfolioHandler {
	return &PortfolioHandler{service: svc}
}

// List godoc
// @Summary List portfolios
// @Description Results are scoped to the caller's role
// @Tags Portfolios
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Param search query string false "Course code or name"
// @Param status query string false "DRAFT, UNDER_REVIEW, APPROVED, REJECTED or COMPLETED"
// @Param sortBy query string false "updated_at, created_at, status, course_name or fecha_actualizacion, fecha_creacion, estado, curso_nombre"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /portfolios [get]
func (h *PortfolioHandler) List(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var query dto.PortfolioListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid query parameters"))
		return
	}

	portfolios, pagination, err := h.service.List(c.Request.Context(), viewer, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "portfolios retrieved", gin.H{"portfolios": portfolios, "pagination": pagination})
}

// Get godoc
// @Summary Get portfolio
// @Description Includes documents, and comments when the caller may see them
// @Tags Portfolios
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /portfolios/{id} [get]
func (h *PortfolioHandler) Get(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	portfolio, err := h.service.Get(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "portfolio retrieved", portfolio)
}

// Create godoc
// @Summary Create portfolio
// @Tags Portfolios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreatePortfolioRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /portfolios [post]
func (h *PortfolioHandler) Create(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req dto.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid portfolio payload"))
		return
	}

	portfolio, err := h.service.Create(c.Request.Context(), viewer, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "portfolio created", portfolio)
}

// Delete godoc
// @Summary Delete portfolio
// @Description Removes the portfolio with its documents and comments
// @Tags Portfolios
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /portfolios/{id} [delete]
func (h *PortfolioHandler) Delete(c *gin.Context) {
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
	response.OK(c, "portfolio deleted", nil)
}

// Submit godoc
// @Summary Submit portfolio for review
// @Tags Portfolios
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /portfolios/{id}/enviar [put]
func (h *PortfolioHandler) Submit(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	portfolio, err := h.service.Submit(c.Request.Context(), viewer, id, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "portfolio submitted for review", portfolio)
}

// AssignEvaluator godoc
// @Summary Assign evaluator
// @Tags Portfolios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Param payload body dto.AssignEvaluatorRequest true "Evaluator"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /portfolios/{id}/asignar-evaluador [put]
func (h *PortfolioHandler) AssignEvaluator(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignEvaluatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid assignment payload"))
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	portfolio, err := h.service.AssignEvaluator(c.Request.Context(), viewer, id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "evaluator assigned", portfolio)
}

// Evaluate godoc
// @Summary Evaluate portfolio
// @Tags Portfolios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Param payload body dto.EvaluatePortfolioRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /portfolios/{id}/evaluar [put]
func (h *PortfolioHandler) Evaluate(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req dto.EvaluatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid evaluation payload"))
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	portfolio, err := h.service.Evaluate(c.Request.Context(), viewer, id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "portfolio evaluated", portfolio)
}

// AddComment godoc
// @Summary Comment on portfolio
// @Tags Portfolios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /portfolios/{id}/comentarios [post]
func (h *PortfolioHandler) AddComment(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid comment payload"))
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), viewer, id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "comment added", comment)
}

// ListComments godoc
// @Summary List portfolio comments
// @Tags Portfolios
// @Produce json
// @Security BearerAuth
// @Param id path string true "Portfolio ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /portfolios/{id}/comentarios [get]
func (h *PortfolioHandler) ListComments(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	comments, err := h.service.ListComments(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "comments retrieved", gin.H{"comments": comments})
}
