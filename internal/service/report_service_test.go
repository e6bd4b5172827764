package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
)

type mockReportRepo struct {
	counts     []models.StatusCount
	unassigned int
	rows       []models.PortfolioSummary
	calls      int
}

func (m *mockReportRepo) StatusCounts(_ context.Context) ([]models.StatusCount, error) {
	m.calls++
	return m.counts, nil
}

func (m *mockReportRepo) CountUnassignedUnderReview(_ context.Context) (int, error) {
	return m.unassigned, nil
}

func (m *mockReportRepo) ListAll(_ context.Context, _ *models.PortfolioStatus) ([]models.PortfolioSummary, error) {
	return m.rows, nil
}

type memoryReportCache struct {
	entries map[string][]byte
}

func (c *memoryReportCache) Get(_ context.Context, key string, dest interface{}) bool {
	raw, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *memoryReportCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	raw, err := json.Marshal(value)
	if err == nil {
		c.entries[key] = raw
	}
}

func (c *memoryReportCache) Invalidate(_ context.Context, keys ...string) {
	for _, key := range keys {
		delete(c.entries, key)
	}
}

func TestSummaryZeroFillsAndCaches(t *testing.T) {
	repo := &mockReportRepo{
		counts: []models.StatusCount{
			{Status: models.PortfolioStatusDraft, Count: 4},
			{Status: models.PortfolioStatusUnderReview, Count: 2},
		},
		unassigned: 1,
	}
	cache := &memoryReportCache{entries: make(map[string][]byte)}
	svc := NewReportService(repo, cache, time.Minute, zap.NewNop())

	report, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 1, report.Unassigned)
	assert.Equal(t, 0, report.ByStatus[models.PortfolioStatusApproved])
	assert.Equal(t, 0, report.ByStatus[models.PortfolioStatusRejected])
	assert.Len(t, report.ByStatus, len(models.PortfolioStatuses))

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	cache.Invalidate(context.Background(), reportSummaryCacheKey)
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestExportCSVListsRegister(t *testing.T) {
	evaluatorName := "Rosa Flores"
	repo := &mockReportRepo{rows: []models.PortfolioSummary{{
		Portfolio:     models.Portfolio{ID: "p1", Status: models.PortfolioStatusApproved, UpdatedAt: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		CourseCode:    "CS101",
		CourseName:    "Algorithms",
		SemesterName:  "2024-I",
		TeacherName:   "Ana Quispe",
		EvaluatorName: &evaluatorName,
		DocumentCount: 3,
	}}}
	svc := NewReportService(repo, nil, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "portfolios_20240602_080000.csv", file.Name)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	content := string(file.Data)
	assert.True(t, strings.HasPrefix(content, "Semester,Code,Course,Teacher,Status,Evaluator,Documents,Updated"))
	assert.Contains(t, content, "2024-I,CS101,Algorithms,Ana Quispe,APPROVED,Rosa Flores,3,2024-06-01 10:30")
}

func TestExportPDF(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, nil, time.Minute, zap.NewNop())

	file, err := svc.Export(context.Background(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF-"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, nil, time.Minute, zap.NewNop())

	_, err := svc.Export(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
