package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Verify(ctx context.Context, userID string) (*models.UserInfo, error)
	Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) error
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error
}

type userRegistrar interface {
	Register(ctx context.Context, actorID string, req dto.RegisterUserRequest, meta models.RequestMeta) (*models.User, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	users   userRegistrar
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, users userRegistrar) *AuthHandler {
	return &AuthHandler{service: svc, users: users}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "login successful", res)
}

// Register godoc
// @Summary Register user
// @Description Administrators create teacher, evaluator or administrator accounts
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RegisterUserRequest true "New user"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req dto.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid registration payload"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), viewer.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "user registered", user)
}

// Verify godoc
// @Summary Current user
// @Description Returns the authenticated user's profile as currently stored
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}

	info, err := h.service.Verify(c.Request.Context(), viewer.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "token valid", gin.H{"user": info})
}

// Logout godoc
// @Summary Logout current session
// @Description Revokes the presented access token until it expires
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if _, ok := viewerFromContext(c); !ok {
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "logged out", nil)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/change-password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), viewer.UserID, req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "password updated", nil)
}
