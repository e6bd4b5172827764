package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/validation"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	Create(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus, updatedAt time.Time) error
}

var userConstraintMessages = map[string]string{
	"email":        "email already registered",
	"teacher_code": "teacher code already registered",
}

// UserService handles account administration.
type UserService struct {
	repo         userRepository
	audit        auditRecorder
	validator    *validator.Validate
	logger       *zap.Logger
	defaultLimit int
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, defaultLimit int) *UserService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger, defaultLimit: defaultLimit}
}

// Register creates an account with a bcrypt hashed password.
func (s *UserService) Register(ctx context.Context, actorID string, req dto.RegisterUserRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid user payload")
	}
	role, ok := models.ParseUserRole(req.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be one of ADMIN, TEACHER, EVALUATOR")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Names:        strings.TrimSpace(req.Names),
		Surnames:     strings.TrimSpace(req.Surnames),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.UserStatusActive,
	}
	if req.TeacherCode != nil {
		user.TeacherCode = stringPtr(strings.TrimSpace(*req.TeacherCode))
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, duplicateMessage(err, userConstraintMessages, "user already exists"))
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionUserCreate, "user", user.ID, nil,
		map[string]interface{}{"email": user.Email, "role": user.Role}, meta))
	return user, nil
}

// List returns users according to filters.
func (s *UserService) List(ctx context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, invalid(err, "invalid user query")
	}
	page, limit := pageParams(query.Page, query.Limit, s.defaultLimit)
	filter := models.UserFilter{Search: strings.TrimSpace(query.Search), Page: page, Limit: limit}
	if query.Role != "" {
		role, ok := models.ParseUserRole(query.Role)
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
		}
		filter.Role = &role
	}
	if query.Status != "" {
		status := models.UserStatus(strings.ToUpper(query.Status))
		filter.Status = &status
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	pagination := models.NewPagination(page, limit, total)
	return users, &pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to get user")
	}
	return user, nil
}

// UpdateStatus activates or deactivates an account. Administrators cannot deactivate themselves.
func (s *UserService) UpdateStatus(ctx context.Context, actorID, id string, req dto.UpdateUserStatusRequest, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid status payload")
	}
	status := models.UserStatus(strings.ToUpper(req.Status))
	if actorID == id && status == models.UserStatusInactive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cannot deactivate your own account")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to update user status")
	}

	s.audit.Record(ctx, auditEntry(actorID, models.AuditActionUserStatus, "user", id,
		map[string]models.UserStatus{"status": current.Status}, map[string]models.UserStatus{"status": status}, meta))
	current.Status = status
	current.UpdatedAt = now
	return current, nil
}

// ListEvaluators returns active evaluators for the assignment picker.
func (s *UserService) ListEvaluators(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListActiveByRole(ctx, models.RoleEvaluator)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list evaluators")
	}
	return users, nil
}

// EnsureAdmin creates the bootstrap administrator when no administrator exists yet.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := s.repo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.User{
		Names:        "Administrador",
		Surnames:     "Sistema",
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Warn("seed admin email already taken by another role", zap.String("email", admin.Email))
			return nil
		}
		return err
	}
	s.logger.Info("seeded administrator account", zap.String("email", admin.Email))
	return nil
}
