package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/middleware"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/service"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

const (
	adminID     = "0d9c8b7a-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
	portfolioID = "3f6c2a9e-0b1d-4e7a-9c55-2d8e1f4a6b10"
	documentID  = "9a4e7c21-5d3b-4f8e-a1c6-7b2d0e9f3c45"
)

var (
	adminClaims     = &models.JWTClaims{UserID: adminID, Role: models.RoleAdmin}
	teacherClaims   = &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
	evaluatorClaims = &models.JWTClaims{UserID: "evaluator-1", Role: models.RoleEvaluator}
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asUser(c *gin.Context, claims *models.JWTClaims) {
	c.Set(middleware.ContextUserKey, claims)
}

type envelope struct {
	response.Envelope
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type stubPortfolioService struct {
	items      []models.PortfolioSummary
	pagination *models.Pagination
	portfolio  *models.Portfolio
	comment    *models.Comment
	err        error

	calls     int
	lastID    string
	evaluated dto.EvaluatePortfolioRequest
	viewer    models.Viewer
}

func (s *stubPortfolioService) List(ctx context.Context, viewer models.Viewer, query dto.PortfolioListQuery) ([]models.PortfolioSummary, *models.Pagination, error) {
	s.calls++
	s.viewer = viewer
	return s.items, s.pagination, s.err
}

func (s *stubPortfolioService) Get(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioDetail, error) {
	s.calls++
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	return &models.PortfolioDetail{}, nil
}

func (s *stubPortfolioService) Create(ctx context.Context, viewer models.Viewer, req dto.CreatePortfolioRequest, meta models.RequestMeta) (*models.Portfolio, error) {
	s.calls++
	s.viewer = viewer
	return s.portfolio, s.err
}

func (s *stubPortfolioService) Submit(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) (*models.Portfolio, error) {
	s.calls++
	s.lastID = id
	return s.portfolio, s.err
}

func (s *stubPortfolioService) AssignEvaluator(ctx context.Context, viewer models.Viewer, id string, req dto.AssignEvaluatorRequest, meta models.RequestMeta) (*models.Portfolio, error) {
	s.calls++
	s.lastID = id
	return s.portfolio, s.err
}

func (s *stubPortfolioService) Evaluate(ctx context.Context, viewer models.Viewer, id string, req dto.EvaluatePortfolioRequest, meta models.RequestMeta) (*models.Portfolio, error) {
	s.calls++
	s.lastID = id
	s.evaluated = req
	return s.portfolio, s.err
}

func (s *stubPortfolioService) AddComment(ctx context.Context, viewer models.Viewer, id string, req dto.CreateCommentRequest, meta models.RequestMeta) (*models.Comment, error) {
	s.calls++
	s.lastID = id
	return s.comment, s.err
}

func (s *stubPortfolioService) ListComments(ctx context.Context, viewer models.Viewer, id string) ([]models.Comment, error) {
	s.calls++
	s.lastID = id
	return nil, s.err
}

func (s *stubPortfolioService) Delete(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) error {
	s.calls++
	s.lastID = id
	return s.err
}

type stubDocumentService struct {
	doc     *models.Document
	content string
	err     error

	uploaded     service.UploadFile
	uploadedBody string
	uploadForm   dto.UploadDocumentRequest
	token        string
}

func (s *stubDocumentService) Upload(ctx context.Context, viewer models.Viewer, portfolioID string, req dto.UploadDocumentRequest, file service.UploadFile, meta models.RequestMeta) (*models.Document, error) {
	s.uploaded = file
	s.uploadForm = req
	body, err := io.ReadAll(file.Content)
	if err != nil {
		return nil, err
	}
	s.uploadedBody = string(body)
	return s.doc, s.err
}

func (s *stubDocumentService) List(ctx context.Context, viewer models.Viewer, portfolioID string) ([]models.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Document{*s.doc}, nil
}

func (s *stubDocumentService) Get(ctx context.Context, viewer models.Viewer, id string) (*models.DocumentView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.DocumentView{Document: *s.doc, DownloadURL: "/api/files/shared/token"}, nil
}

func (s *stubDocumentService) Open(ctx context.Context, viewer models.Viewer, id string) (*models.Document, io.ReadCloser, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.doc, io.NopCloser(bytes.NewBufferString(s.content)), nil
}

func (s *stubDocumentService) OpenShared(ctx context.Context, token string) (*models.Document, io.ReadCloser, error) {
	s.token = token
	return s.Open(ctx, models.Viewer{}, "")
}

func (s *stubDocumentService) Delete(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) error {
	return s.err
}

type stubReportService struct {
	report *models.PortfolioReport
	file   *service.ExportFile
	err    error
	format string
}

func (s *stubReportService) Summary(ctx context.Context) (*models.PortfolioReport, error) {
	return s.report, s.err
}

func (s *stubReportService) Export(ctx context.Context, format string) (*service.ExportFile, error) {
	s.format = format
	return s.file, s.err
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, entry models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) resources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Resource)
	}
	return out
}
