package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/validation"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastAccess(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// tokenDenylist remembers revoked token ids until they would have expired anyway.
type tokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	denylist  tokenDenylist
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, denylist tokenDenylist, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &AuthService{repo: repo, denylist: denylist, audit: audit, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates a user and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	if !user.Active() {
		return nil, appErrors.Clone(appErrors.ErrUserInactive, "account is inactive")
	}

	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastAccess(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last access", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastAccessAt = &now

	s.audit.Record(ctx, auditEntry(user.ID, models.AuditActionLogin, "auth", user.ID, nil,
		map[string]string{"status": "success"}, models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}))

	return &models.LoginResponse{
		User:      models.NewUserInfo(user),
		Token:     token,
		ExpiresIn: int64(s.config.Expiry.Seconds()),
		ExpiresAt: expiresAt,
	}, nil
}

// Authenticate verifies a bearer token and resolves the live user behind it.
// Each failure mode carries its own code.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	if tokenString == "" {
		return nil, appErrors.ErrTokenMissing
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check token revocation")
		}
		if revoked {
			return nil, appErrors.ErrTokenRevoked
		}
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.Active() {
		return nil, appErrors.ErrUserInactive
	}

	claims.Role = user.Role
	claims.Email = user.Email
	claims.FullName = user.FullName()
	return claims, nil
}

// Verify returns the profile of the authenticated caller.
func (s *AuthService) Verify(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	info := models.NewUserInfo(user)
	return &info, nil
}

// Logout denylists the presented token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) error {
	if claims == nil {
		return appErrors.ErrTokenMissing
	}
	if s.denylist != nil && claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Time.Sub(s.now())
		if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
			return appErrors.Internal(err, "failed to revoke token")
		}
	}
	s.audit.Record(ctx, auditEntry(claims.UserID, models.AuditActionLogout, "auth", claims.UserID, nil,
		map[string]string{"status": "logout"}, meta))
	return nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "current password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(newHash), s.now().UTC()); err != nil {
		return appErrors.Internal(err, "failed to update password")
	}

	s.audit.Record(ctx, auditEntry(userID, models.AuditActionPasswordChange, "auth", userID, nil,
		map[string]string{"status": "changed"}, meta))
	return nil
}

func (s *AuthService) parseToken(tokenString string) (*models.JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	token, err := parser.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTokenMalformed.Code, appErrors.ErrTokenMalformed.Status, appErrors.ErrTokenMalformed.Message)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.ErrTokenMalformed
	}
	return claims, nil
}

func (s *AuthService) issueToken(user *models.User) (string, time.Time, error) {
	if s.config.Secret == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret not configured")
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.Expiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
