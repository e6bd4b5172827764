package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	User      UserInfo  `json:"user"`
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72,nefield=CurrentPassword"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Names       string     `json:"names"`
	Surnames    string     `json:"surnames"`
	FullName    string     `json:"full_name"`
	Role        UserRole   `json:"role"`
	TeacherCode *string    `json:"teacher_code,omitempty"`
	LastAccess  *time.Time `json:"last_access_at,omitempty"`
}

// NewUserInfo projects a user into its public shape.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		Names:       u.Names,
		Surnames:    u.Surnames,
		FullName:    u.FullName(),
		Role:        u.Role,
		TeacherCode: u.TeacherCode,
		LastAccess:  u.LastAccessAt,
	}
}

// JWTClaims represents the JWT payload for access tokens. ID (jti) keys the revocation list.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
