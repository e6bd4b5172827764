package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]*models.User
	created    []*models.User
	createErr  error
	lastFilter models.UserFilter
	adminCount int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) ListActiveByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	out := make([]models.User, 0)
	for _, u := range m.users {
		if u.Role == role && u.Active() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, _ models.UserRole) (int, error) {
	return m.adminCount, nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = fmt.Sprintf("user-%d", len(m.created)+1)
	m.created = append(m.created, user)
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateStatus(_ context.Context, id string, status models.UserStatus, _ time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Status = status
	return nil
}

func TestRegisterUser(t *testing.T) {
	repo := newMockUserRepo()
	audit := &recordingAudit{}
	svc := NewUserService(repo, audit, nil, zap.NewNop(), 10)

	user, err := svc.Register(context.Background(), "admin-1", dto.RegisterUserRequest{
		Names:    " Luis ",
		Surnames: "Mamani",
		Email:    "Luis.Mamani@Example.edu",
		Password: "secret123",
		Role:     "docente",
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "luis.mamani@example.edu", user.Email)
	assert.Equal(t, "Luis", user.Names)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
	assert.Equal(t, []string{models.AuditActionUserCreate}, audit.actions())
}

func TestRegisterUserRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil, zap.NewNop(), 10)

	_, err := svc.Register(context.Background(), "admin-1", dto.RegisterUserRequest{
		Names: "Luis", Surnames: "Mamani", Email: "luis@example.edu", Password: "secret123", Role: "student",
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = fmt.Errorf("create user: %w", fmt.Errorf("%w: users_email_key", repository.ErrDuplicate))
	svc := NewUserService(repo, nil, nil, zap.NewNop(), 10)

	_, err := svc.Register(context.Background(), "admin-1", dto.RegisterUserRequest{
		Names: "Luis", Surnames: "Mamani", Email: "luis@example.edu", Password: "secret123", Role: "TEACHER",
	}, models.RequestMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "email already registered", appErr.Message)
}

func TestListUsersAppliesFilters(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil, zap.NewNop(), 10)
	page, limit := 2, 5

	_, pagination, err := svc.List(context.Background(), dto.UserListQuery{Page: &page, Limit: &limit, Role: "evaluador", Status: "active", Search: " ana "})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Role)
	assert.Equal(t, models.RoleEvaluator, *repo.lastFilter.Role)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.UserStatusActive, *repo.lastFilter.Status)
	assert.Equal(t, "ana", repo.lastFilter.Search)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 5, pagination.Limit)
}

func TestUpdateStatusGuardsSelfDeactivation(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Role: models.RoleAdmin, Status: models.UserStatusActive}
	repo.users["teacher-1"] = &models.User{ID: "teacher-1", Role: models.RoleTeacher, Status: models.UserStatusActive}
	audit := &recordingAudit{}
	svc := NewUserService(repo, audit, nil, zap.NewNop(), 10)

	_, err := svc.UpdateStatus(context.Background(), "admin-1", "admin-1", dto.UpdateUserStatusRequest{Status: "INACTIVE"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	updated, err := svc.UpdateStatus(context.Background(), "admin-1", "teacher-1", dto.UpdateUserStatusRequest{Status: "inactive"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInactive, updated.Status)
	assert.Equal(t, []string{models.AuditActionUserStatus}, audit.actions())

	_, err = svc.UpdateStatus(context.Background(), "admin-1", "missing", dto.UpdateUserStatusRequest{Status: "ACTIVE"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListEvaluatorsOnlyActive(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["e1"] = &models.User{ID: "e1", Role: models.RoleEvaluator, Status: models.UserStatusActive}
	repo.users["e2"] = &models.User{ID: "e2", Role: models.RoleEvaluator, Status: models.UserStatusInactive}
	repo.users["t1"] = &models.User{ID: "t1", Role: models.RoleTeacher, Status: models.UserStatusActive}
	svc := NewUserService(repo, nil, nil, zap.NewNop(), 10)

	evaluators, err := svc.ListEvaluators(context.Background())
	require.NoError(t, err)
	require.Len(t, evaluators, 1)
	assert.Equal(t, "e1", evaluators[0].ID)
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil, zap.NewNop(), 10)

	require.NoError(t, svc.EnsureAdmin(context.Background(), " Admin@Example.edu ", "changeme1"))
	require.Len(t, repo.created, 1)
	assert.Equal(t, "admin@example.edu", repo.created[0].Email)
	assert.Equal(t, models.RoleAdmin, repo.created[0].Role)

	repo.adminCount = 1
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@example.edu", "changeme1"))
	assert.Len(t, repo.created, 1)

	repo.adminCount = 0
	require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
	assert.Len(t, repo.created, 1)
}
