package models

import (
	"math"
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleTeacher   UserRole = "TEACHER"
	RoleEvaluator UserRole = "EVALUATOR"
)

var roleAliases = map[string]UserRole{
	"administrador": RoleAdmin,
	"docente":       RoleTeacher,
	"evaluador":     RoleEvaluator,
}

// ParseUserRole accepts canonical role names and the legacy lowercase Spanish ones.
func ParseUserRole(raw string) (UserRole, bool) {
	value := strings.TrimSpace(raw)
	if role := UserRole(strings.ToUpper(value)); role.Valid() {
		return role, true
	}
	role, ok := roleAliases[strings.ToLower(value)]
	return role, ok
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleEvaluator:
		return true
	}
	return false
}

// Satisfies reports whether a caller holding r may act as any of the required roles.
// Administrators satisfy every requirement.
func (r UserRole) Satisfies(required ...UserRole) bool {
	if r == RoleAdmin {
		return true
	}
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}

// UserStatus marks whether an account can authenticate.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Names        string     `db:"names" json:"names"`
	Surnames     string     `db:"surnames" json:"surnames"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	TeacherCode  *string    `db:"teacher_code" json:"teacher_code,omitempty"`
	LastAccessAt *time.Time `db:"last_access_at" json:"last_access_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins names and surnames.
func (u *User) FullName() string {
	return strings.TrimSpace(u.Names + " " + u.Surnames)
}

// Active reports whether the account may log in.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   *UserRole
	Status *UserStatus
	Search string
	Page   int
	Limit  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes totalPages as ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
