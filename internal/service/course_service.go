package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/validation"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type semesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type coursePortfolioChecker interface {
	ExistsForCourse(ctx context.Context, courseID string) (bool, error)
}

// CourseService manages courses and their teacher assignment.
type CourseService struct {
	repo         courseRepository
	semesters    semesterReader
	users        userReader
	portfolios   coursePortfolioChecker
	audit        auditRecorder
	validator    *validator.Validate
	logger       *zap.Logger
	defaultLimit int
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, semesters semesterReader, users userReader, portfolios coursePortfolioChecker, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, defaultLimit int) *CourseService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &CourseService{
		repo:         repo,
		semesters:    semesters,
		users:        users,
		portfolios:   portfolios,
		audit:        audit,
		validator:    validate,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// List returns courses; teachers only ever see their own.
func (s *CourseService) List(ctx context.Context, viewer models.Viewer, query dto.CourseListQuery) ([]models.CourseDetail, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, invalid(err, "invalid course query")
	}
	page, limit := pageParams(query.Page, query.Limit, s.defaultLimit)
	filter := models.CourseFilter{
		SemesterID: query.SemesterID,
		Search:     query.Search,
		Page:       page,
		Limit:      limit,
	}
	if viewer.Role == models.RoleTeacher {
		filter.TeacherID = viewer.UserID
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	pagination := models.NewPagination(page, limit, total)
	return courses, &pagination, nil
}

// Get returns one course. A teacher asking for someone else's course gets not found.
func (s *CourseService) Get(ctx context.Context, viewer models.Viewer, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to get course")
	}
	if viewer.Role == models.RoleTeacher && course.TeacherID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// Create stores a new course after checking its semester and teacher.
func (s *CourseService) Create(ctx context.Context, actorID string, req dto.CourseRequest, meta models.RequestMeta) (*models.CourseDetail, error) {
	course, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Internal(err, "failed to create course")
	}
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionCourseCreate, "course", course.ID, nil, course, meta))
	return s.reload(ctx, course.ID)
}

// Update replaces a course's fields.
func (s *CourseService) Update(ctx context.Context, actorID, id string, req dto.CourseRequest, meta models.RequestMeta) (*models.CourseDetail, error) {
	existing, err := s.Get(ctx, models.Viewer{Role: models.RoleAdmin}, id)
	if err != nil {
		return nil, err
	}
	course, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	course.ID = id
	course.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, course); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Internal(err, "failed to update course")
	}
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionCourseUpdate, "course", id, existing.Course, course, meta))
	return s.reload(ctx, id)
}

// Delete removes a course that has no portfolio.
func (s *CourseService) Delete(ctx context.Context, actorID, id string, meta models.RequestMeta) error {
	existing, err := s.Get(ctx, models.Viewer{Role: models.RoleAdmin}, id)
	if err != nil {
		return err
	}
	hasPortfolio, err := s.portfolios.ExistsForCourse(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to check course portfolio")
	}
	if hasPortfolio {
		return appErrors.Clone(appErrors.ErrConflict, "course has a portfolio and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case errors.Is(err, repository.ErrReferenced):
			return appErrors.Clone(appErrors.ErrConflict, "course has a portfolio and cannot be deleted")
		}
		return appErrors.Internal(err, "failed to delete course")
	}
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionCourseDelete, "course", id, existing.Course, nil, meta))
	return nil
}

func (s *CourseService) prepare(ctx context.Context, req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid course payload")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "semester does not exist")
		}
		return nil, appErrors.Internal(err, "failed to load semester")
	}
	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
		}
		return nil, appErrors.Internal(err, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher || !teacher.Active() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id must reference an active teacher")
	}

	course := &models.Course{
		Code:       strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:       strings.TrimSpace(req.Name),
		Credits:    req.Credits,
		SemesterID: req.SemesterID,
		TeacherID:  req.TeacherID,
	}
	if req.Description != nil {
		course.Description = stringPtr(strings.TrimSpace(*req.Description))
	}
	return course, nil
}

func (s *CourseService) reload(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to reload course")
	}
	return course, nil
}
