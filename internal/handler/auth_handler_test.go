package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
)

type stubAuthService struct {
	loginErr  error
	loginReq  models.LoginRequest
	revoked   *models.JWTClaims
	changedBy string
}

func (s *stubAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	s.loginReq = req
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &models.LoginResponse{Token: "signed", ExpiresIn: 86400, User: models.UserInfo{ID: "teacher-1", Email: req.Email}}, nil
}

func (s *stubAuthService) Verify(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleTeacher}, nil
}

func (s *stubAuthService) Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) error {
	s.revoked = claims
	return nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	s.changedBy = userID
	return nil
}

type stubUserService struct {
	actorID    string
	registered dto.RegisterUserRequest
	err        error
}

func (s *stubUserService) Register(ctx context.Context, actorID string, req dto.RegisterUserRequest, meta models.RequestMeta) (*models.User, error) {
	s.actorID = actorID
	s.registered = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.User{ID: "u-new", Email: req.Email, Role: models.UserRole(req.Role)}, nil
}

func (s *stubUserService) List(ctx context.Context, query dto.UserListQuery) ([]models.User, *models.Pagination, error) {
	pagination := models.NewPagination(1, 10, 1)
	return []models.User{{ID: "u1"}}, &pagination, s.err
}

func (s *stubUserService) Get(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, s.err
}

func (s *stubUserService) UpdateStatus(ctx context.Context, actorID, id string, req dto.UpdateUserStatusRequest, meta models.RequestMeta) (*models.User, error) {
	s.actorID = actorID
	if s.err != nil {
		return nil, s.err
	}
	return &models.User{ID: id, Status: models.UserStatus(req.Status)}, nil
}

func (s *stubUserService) ListEvaluators(ctx context.Context) ([]models.User, error) {
	return []models.User{{ID: "evaluator-1", Role: models.RoleEvaluator}}, s.err
}

func TestAuthLoginCapturesClientDetails(t *testing.T) {
	svc := &stubAuthService{}
	handler := NewAuthHandler(svc, &stubUserService{})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"ana@uni.edu","password":"secret1"}`))
	c.Request.Header.Set("User-Agent", "portal-test")
	c.Request.RemoteAddr = "10.0.0.7:4312"
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@uni.edu", svc.loginReq.Email)
	assert.Equal(t, "portal-test", svc.loginReq.UserAgent)
	assert.Equal(t, "10.0.0.7", svc.loginReq.IP)
	assert.Contains(t, w.Body.String(), `"token":"signed"`)
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{loginErr: appErrors.ErrInvalidCredentials}, &stubUserService{})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"ana@uni.edu","password":"wrong12"}`))
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, w).Code)
}

func TestAuthRegisterUsesCallerAsActor(t *testing.T) {
	users := &stubUserService{}
	handler := NewAuthHandler(&stubAuthService{}, users)

	body := []byte(`{"names":"Rosa","surnames":"Flores","email":"rosa@uni.edu","password":"secret1","role":"EVALUATOR"}`)
	c, w := newGinContext(http.MethodPost, "/auth/register", body)
	asUser(c, adminClaims)
	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, adminClaims.UserID, users.actorID)
	assert.Equal(t, "EVALUATOR", users.registered.Role)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	users := &stubUserService{err: appErrors.Clone(appErrors.ErrConflict, "email already registered")}
	handler := NewAuthHandler(&stubAuthService{}, users)

	body := []byte(`{"names":"Rosa","surnames":"Flores","email":"rosa@uni.edu","password":"secret1","role":"EVALUATOR"}`)
	c, w := newGinContext(http.MethodPost, "/auth/register", body)
	asUser(c, adminClaims)
	handler.Register(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already registered", decodeEnvelope(t, w).Message)
}

func TestAuthLogoutRevokesPresentedClaims(t *testing.T) {
	svc := &stubAuthService{}
	handler := NewAuthHandler(svc, &stubUserService{})

	c, w := newGinContext(http.MethodPost, "/auth/logout", nil)
	asUser(c, teacherClaims)
	handler.Logout(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, teacherClaims, svc.revoked)
}

func TestAuthChangePasswordUsesCaller(t *testing.T) {
	svc := &stubAuthService{}
	handler := NewAuthHandler(svc, &stubUserService{})

	c, w := newGinContext(http.MethodPut, "/auth/change-password", []byte(`{"currentPassword":"secret1","newPassword":"secret2"}`))
	asUser(c, teacherClaims)
	handler.ChangePassword(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, teacherClaims.UserID, svc.changedBy)
}

func TestUserStatusSelfDeactivationConflict(t *testing.T) {
	users := &stubUserService{err: appErrors.Clone(appErrors.ErrConflict, "administrators cannot deactivate themselves")}
	handler := NewUserHandler(users)

	c, w := newGinContext(http.MethodPut, "/users/0d9c8b7a-6e5f-4a3b-8c2d-1e0f9a8b7c6d/status", []byte(`{"status":"INACTIVE"}`))
	c.Params = gin.Params{{Key: "id", Value: adminID}}
	asUser(c, adminClaims)
	handler.UpdateStatus(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, adminClaims.UserID, users.actorID)
}

func TestUserListWrapsPagination(t *testing.T) {
	handler := NewUserHandler(&stubUserService{})

	c, w := newGinContext(http.MethodGet, "/users?role=TEACHER", nil)
	asUser(c, adminClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pagination":{"page":1,"limit":10,"total":1,"totalPages":1}`)
}
