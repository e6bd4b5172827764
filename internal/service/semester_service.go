package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/validation"
)

const dateLayout = "2006-01-02"

type semesterRepository interface {
	List(ctx context.Context) ([]models.Semester, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
}

// SemesterService manages academic periods.
type SemesterService struct {
	repo      semesterRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs a SemesterService.
func NewSemesterService(repo semesterRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &SemesterService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns all semesters.
func (s *SemesterService) List(ctx context.Context) ([]models.Semester, error) {
	semesters, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list semesters")
	}
	return semesters, nil
}

// Create validates the date range and stores a semester.
func (s *SemesterService) Create(ctx context.Context, actorID string, req dto.CreateSemesterRequest, meta models.RequestMeta) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid semester payload")
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, invalid(err, "start_date must use YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, invalid(err, "end_date must use YYYY-MM-DD")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}

	semester := &models.Semester{
		Name:      strings.TrimSpace(req.Name),
		StartDate: start,
		EndDate:   end,
		Active:    true,
	}
	if req.Description != nil {
		semester.Description = stringPtr(strings.TrimSpace(*req.Description))
	}
	if req.Active != nil {
		semester.Active = *req.Active
	}

	if err := s.repo.Create(ctx, semester); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "semester name already exists")
		}
		return nil, appErrors.Internal(err, "failed to create semester")
	}
	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionSemesterCreate, "semester", semester.ID, nil, semester, meta))
	return semester, nil
}
