package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/service"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context) (*models.PortfolioReport, error)
	Export(ctx context.Context, format string) (*service.ExportFile, error)
}

// ReportHandler exposes administrator reporting endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Summary godoc
// @Summary Portfolio status summary
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports/portfolios/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	report, err := h.reports.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "summary generated", report)
}

// Export godoc
// @Summary Export portfolio register
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/portfolios/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid query parameters"))
		return
	}

	file, err := h.reports.Export(c.Request.Context(), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
