package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/export"
)

const reportSummaryCacheKey = "reports:portfolios:summary"

const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type reportRepository interface {
	StatusCounts(ctx context.Context) ([]models.StatusCount, error)
	CountUnassignedUnderReview(ctx context.Context) (int, error)
	ListAll(ctx context.Context, status *models.PortfolioStatus) ([]models.PortfolioSummary, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// ExportFile is a rendered report ready to be sent as an attachment.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReportService produces administrator reports over the portfolio register.
type ReportService struct {
	repo   reportRepository
	cache  reportCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, cache reportCache, ttl time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Summary counts portfolios per status. Results are cached until the next lifecycle write.
func (s *ReportService) Summary(ctx context.Context) (*models.PortfolioReport, error) {
	var cached models.PortfolioReport
	if s.cache != nil && s.cache.Get(ctx, reportSummaryCacheKey, &cached) {
		return &cached, nil
	}

	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count portfolios")
	}
	unassigned, err := s.repo.CountUnassignedUnderReview(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count unassigned portfolios")
	}

	report := &models.PortfolioReport{
		ByStatus:    make(map[models.PortfolioStatus]int, len(models.PortfolioStatuses)),
		Unassigned:  unassigned,
		GeneratedAt: s.now().UTC(),
	}
	for _, status := range models.PortfolioStatuses {
		report.ByStatus[status] = 0
	}
	for _, c := range counts {
		report.ByStatus[c.Status] += c.Count
		report.Total += c.Count
	}

	if s.cache != nil {
		s.cache.Set(ctx, reportSummaryCacheKey, report, s.ttl)
	}
	return report, nil
}

// Export renders the portfolio register as CSV or PDF.
func (s *ReportService) Export(ctx context.Context, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	portfolios, err := s.repo.ListAll(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load portfolios")
	}
	now := s.now().UTC()
	table := registerTable(portfolios)

	var buf bytes.Buffer
	file := &ExportFile{Name: fmt.Sprintf("portfolios_%s.%s", now.Format("20060102_150405"), format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		err = export.WritePDF(&buf, table, now)
	default:
		file.ContentType = "text/csv; charset=utf-8"
		err = export.WriteCSV(&buf, table)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	file.Data = buf.Bytes()
	s.logger.Info("portfolio register exported", zap.String("format", format), zap.Int("rows", len(portfolios)))
	return file, nil
}

func registerTable(portfolios []models.PortfolioSummary) export.Table {
	table := export.Table{
		Title: "Portfolio register",
		Columns: []export.Column{
			{Key: "semester", Header: "Semester", Width: 1},
			{Key: "course_code", Header: "Code", Width: 1},
			{Key: "course_name", Header: "Course", Width: 3},
			{Key: "teacher", Header: "Teacher", Width: 2},
			{Key: "status", Header: "Status", Width: 1.2},
			{Key: "evaluator", Header: "Evaluator", Width: 2},
			{Key: "documents", Header: "Documents", Width: 0.8},
			{Key: "updated_at", Header: "Updated", Width: 1.2},
		},
		Rows: make([]map[string]string, 0, len(portfolios)),
	}
	for _, p := range portfolios {
		evaluator := ""
		if p.EvaluatorName != nil {
			evaluator = *p.EvaluatorName
		}
		table.Rows = append(table.Rows, map[string]string{
			"semester":    p.SemesterName,
			"course_code": p.CourseCode,
			"course_name": p.CourseName,
			"teacher":     p.TeacherName,
			"status":      string(p.Status),
			"evaluator":   evaluator,
			"documents":   strconv.Itoa(p.DocumentCount),
			"updated_at":  p.UpdatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return table
}
