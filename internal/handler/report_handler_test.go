package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/service"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
)

func TestReportHandlerSummary(t *testing.T) {
	svc := &stubReportService{report: &models.PortfolioReport{
		Total:       4,
		ByStatus:    map[models.PortfolioStatus]int{models.PortfolioStatusDraft: 4},
		GeneratedAt: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
	}}
	handler := NewReportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/reports/portfolios/summary", nil)
	asUser(c, adminClaims)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"DRAFT":4`)
}

func TestReportHandlerExportAttachment(t *testing.T) {
	svc := &stubReportService{file: &service.ExportFile{
		Name:        "portfolios_20240601_103000.csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte("Semester,Code\n"),
	}}
	handler := NewReportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/reports/portfolios/export?format=csv", nil)
	asUser(c, adminClaims)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=portfolios_20240601_103000.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Semester,Code\n", w.Body.String())
}

func TestReportHandlerExportUnknownFormat(t *testing.T) {
	svc := &stubReportService{err: appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")}
	handler := NewReportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/reports/portfolios/export?format=xlsx", nil)
	asUser(c, adminClaims)
	handler.Export(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xlsx", svc.format)
}
