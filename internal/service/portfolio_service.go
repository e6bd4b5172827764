package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/storage"
	"github.com/noah-isme/portafolio-docente-api/pkg/validation"
)

type portfolioRepository interface {
	List(ctx context.Context, viewer models.Viewer, filter models.PortfolioFilter) ([]models.PortfolioSummary, int, error)
	FindVisible(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioSummary, error)
	ExistsForCourse(ctx context.Context, courseID string) (bool, error)
	Create(ctx context.Context, portfolio *models.Portfolio) error
	Transition(ctx context.Context, id string, apply func(*models.PortfolioAccess) (*repository.PortfolioChange, error)) (*models.Portfolio, error)
	Delete(ctx context.Context, id string) ([]string, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

type portfolioDocumentReader interface {
	ListByPortfolio(ctx context.Context, portfolioID string) ([]models.Document, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)
}

type commentRepository interface {
	ListByPortfolio(ctx context.Context, portfolioID string) ([]models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
}

// reportInvalidator drops cached report payloads after a write.
type reportInvalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// PortfolioDeps bundles collaborators of the PortfolioService.
type PortfolioDeps struct {
	Portfolios   portfolioRepository
	Courses      courseReader
	Documents    portfolioDocumentReader
	Comments     commentRepository
	Users        userReader
	Blobs        storage.BlobStore
	Cache        reportInvalidator
	Audit        auditRecorder
	Metrics      *MetricsService
	Validator    *validator.Validate
	Logger       *zap.Logger
	DefaultLimit int
}

// PortfolioService runs the portfolio lifecycle and its role-scoped reads.
type PortfolioService struct {
	portfolios   portfolioRepository
	courses      courseReader
	documents    portfolioDocumentReader
	comments     commentRepository
	users        userReader
	blobs        storage.BlobStore
	cache        reportInvalidator
	audit        auditRecorder
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	defaultLimit int
	now          func() time.Time
}

// NewPortfolioService constructs a PortfolioService.
func NewPortfolioService(deps PortfolioDeps) *PortfolioService {
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Audit == nil {
		deps.Audit = nopAuditRecorder{}
	}
	return &PortfolioService{
		portfolios:   deps.Portfolios,
		courses:      deps.Courses,
		documents:    deps.Documents,
		comments:     deps.Comments,
		users:        deps.Users,
		blobs:        deps.Blobs,
		cache:        deps.Cache,
		audit:        deps.Audit,
		metrics:      deps.Metrics,
		validator:    deps.Validator,
		logger:       deps.Logger,
		defaultLimit: deps.DefaultLimit,
		now:          time.Now,
	}
}

// List returns the caller's page of portfolios.
func (s *PortfolioService) List(ctx context.Context, viewer models.Viewer, query dto.PortfolioListQuery) ([]models.PortfolioSummary, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, invalid(err, "invalid portfolio query")
	}
	page, limit := pageParams(query.Page, query.Limit, s.defaultLimit)
	filter := models.PortfolioFilter{
		Search:    strings.TrimSpace(query.Search),
		Page:      page,
		Limit:     limit,
		SortBy:    query.SortBy,
		SortOrder: strings.ToLower(query.SortOrder),
	}
	if query.Status != "" {
		status, ok := models.ParsePortfolioStatus(query.Status)
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}

	items, total, err := s.portfolios.List(ctx, viewer, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list portfolios")
	}
	pagination := models.NewPagination(page, limit, total)
	return items, &pagination, nil
}

// Get returns a visible portfolio with its documents and, when allowed, its comments.
func (s *PortfolioService) Get(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioDetail, error) {
	summary, err := s.findVisible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByPortfolio(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list documents")
	}
	detail := &models.PortfolioDetail{PortfolioSummary: *summary, Documents: docs}
	if seesComments(viewer, summary) {
		comments, err := s.comments.ListByPortfolio(ctx, id)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list comments")
		}
		detail.Comments = comments
	}
	return detail, nil
}

// Create opens the DRAFT portfolio of a course.
func (s *PortfolioService) Create(ctx context.Context, viewer models.Viewer, req dto.CreatePortfolioRequest, meta models.RequestMeta) (*models.Portfolio, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid portfolio payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	if !ownsPortfolio(viewer, course.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course teacher can open its portfolio")
	}
	exists, err := s.portfolios.ExistsForCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check course portfolio")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course already has a portfolio")
	}

	portfolio := &models.Portfolio{CourseID: course.ID}
	if err := s.portfolios.Create(ctx, portfolio); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already has a portfolio")
		}
		return nil, appErrors.Internal(err, "failed to create portfolio")
	}

	s.invalidateReports(ctx)
	s.audit.Record(ctx, auditEntry(viewer.UserID, models.AuditActionPortfolioCreate, "portfolio", portfolio.ID, nil,
		map[string]string{"course_id": course.ID, "status": string(portfolio.Status)}, meta))
	return portfolio, nil
}

// Submit moves a draft with at least one document to UNDER_REVIEW.
func (s *PortfolioService) Submit(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) (*models.Portfolio, error) {
	return s.transition(ctx, actionSubmit, viewer, id, models.AuditActionPortfolioSubmit, meta, submitGuard(viewer, s.now().UTC()))
}

// AssignEvaluator records which active evaluator reviews a submitted portfolio.
func (s *PortfolioService) AssignEvaluator(ctx context.Context, viewer models.Viewer, id string, req dto.AssignEvaluatorRequest, meta models.RequestMeta) (*models.Portfolio, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid assignment payload")
	}
	if _, err := s.findVisible(ctx, viewer, id); err != nil {
		return nil, err
	}
	evaluator, err := s.users.FindByID(ctx, req.EvaluatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluator not found")
		}
		return nil, appErrors.Internal(err, "failed to load evaluator")
	}
	if evaluator.Role != models.RoleEvaluator || !evaluator.Active() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "evaluador_id must reference an active evaluator")
	}
	return s.transition(ctx, actionAssign, viewer, id, models.AuditActionPortfolioAssign, meta, assignGuard(viewer, evaluator.ID, s.now().UTC()))
}

// Evaluate approves or rejects a portfolio under review.
func (s *PortfolioService) Evaluate(ctx context.Context, viewer models.Viewer, id string, req dto.EvaluatePortfolioRequest, meta models.RequestMeta) (*models.Portfolio, error) {
	req.Comments = strings.TrimSpace(req.Comments)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid evaluation payload")
	}
	decision, ok := parseDecision(req.Decision)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "estado must be approved or rejected")
	}
	if _, err := s.findVisible(ctx, viewer, id); err != nil {
		return nil, err
	}
	guard := evaluateGuard(viewer, decision, req.Comments, req.Rating, s.now().UTC())
	return s.transition(ctx, actionEvaluate, viewer, id, models.AuditActionPortfolioEvaluate, meta, guard)
}

// AddComment stores a remark from the assigned evaluator, optionally about one of the portfolio's documents.
func (s *PortfolioService) AddComment(ctx context.Context, viewer models.Viewer, id string, req dto.CreateCommentRequest, meta models.RequestMeta) (*models.Comment, error) {
	req.Body = strings.TrimSpace(req.Body)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid comment payload")
	}
	commentType, ok := models.ParseCommentType(req.Type)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tipo must be one of general, document, suggestion, correction")
	}
	portfolio, err := s.findVisible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !evaluatesPortfolio(viewer, portfolio.EvaluatorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned evaluator can comment on this portfolio")
	}
	if req.DocumentID != nil {
		doc, err := s.documents.FindByID(ctx, *req.DocumentID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load document")
		}
		if doc == nil || doc.PortfolioID != id {
			return nil, appErrors.Clone(appErrors.ErrValidation, "documento_id does not belong to this portfolio")
		}
	}

	comment := &models.Comment{
		PortfolioID: id,
		EvaluatorID: viewer.UserID,
		DocumentID:  req.DocumentID,
		Body:        req.Body,
		Type:        commentType,
		Rating:      req.Rating,
		Status:      models.CommentPending,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Internal(err, "failed to create comment")
	}
	s.audit.Record(ctx, auditEntry(viewer.UserID, models.AuditActionCommentCreate, "portfolio", id, nil,
		map[string]interface{}{"comment_id": comment.ID, "type": comment.Type}, meta))
	return comment, nil
}

// ListComments returns the comments of a visible portfolio, empty when withheld from the caller.
func (s *PortfolioService) ListComments(ctx context.Context, viewer models.Viewer, id string) ([]models.Comment, error) {
	portfolio, err := s.findVisible(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !seesComments(viewer, portfolio) {
		return []models.Comment{}, nil
	}
	comments, err := s.comments.ListByPortfolio(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list comments")
	}
	return comments, nil
}

// Delete removes a portfolio with its documents and comments, then clears their blobs best effort.
func (s *PortfolioService) Delete(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) error {
	if viewer.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators delete portfolios")
	}
	existing, err := s.findVisible(ctx, viewer, id)
	if err != nil {
		return err
	}
	names, err := s.portfolios.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "portfolio not found")
		}
		return appErrors.Internal(err, "failed to delete portfolio")
	}
	for _, name := range names {
		if err := s.blobs.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to remove blob of deleted portfolio",
				zap.String("portfolio_id", id), zap.String("stored_name", name), zap.Error(err))
		}
	}
	s.invalidateReports(ctx)
	s.audit.Record(ctx, auditEntry(viewer.UserID, models.AuditActionPortfolioDelete, "portfolio", id,
		map[string]interface{}{"course_id": existing.CourseID, "status": existing.Status, "documents": len(names)}, nil, meta))
	return nil
}

func (s *PortfolioService) findVisible(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioSummary, error) {
	portfolio, err := s.portfolios.FindVisible(ctx, viewer, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "portfolio not found")
		}
		return nil, appErrors.Internal(err, "failed to load portfolio")
	}
	return portfolio, nil
}

func (s *PortfolioService) transition(ctx context.Context, action string, viewer models.Viewer, id, auditAction string, meta models.RequestMeta, guard func(*models.PortfolioAccess) (*repository.PortfolioChange, error)) (*models.Portfolio, error) {
	var from models.PortfolioStatus
	updated, err := s.portfolios.Transition(ctx, id, func(current *models.PortfolioAccess) (*repository.PortfolioChange, error) {
		from = current.Status
		return guard(current)
	})
	if err != nil {
		s.metrics.RecordTransition(action, transitionOutcome(err))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "portfolio not found")
		case errors.Is(err, repository.ErrStateMismatch):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "portfolio changed state concurrently")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Internal(err, "failed to update portfolio")
	}

	s.metrics.RecordTransition(action, "success")
	s.invalidateReports(ctx)
	s.audit.Record(ctx, auditEntry(viewer.UserID, auditAction, "portfolio", id,
		map[string]interface{}{"status": from},
		map[string]interface{}{"status": updated.Status, "evaluator_id": updated.EvaluatorID, "version": updated.Version}, meta))
	s.logger.Info("portfolio transition",
		zap.String("portfolio_id", id),
		zap.String("action", action),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("user_id", viewer.UserID))
	return updated, nil
}

func (s *PortfolioService) invalidateReports(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, reportSummaryCacheKey)
	}
}

func transitionOutcome(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, appErrors.ErrInvalidTransition), errors.Is(err, repository.ErrStateMismatch):
		return "invalid_state"
	case errors.Is(err, appErrors.ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, sql.ErrNoRows):
		return "not_found"
	}
	return "error"
}
