package models

import (
	"strings"
	"time"
)

// PortfolioStatus is the lifecycle state of a portfolio.
type PortfolioStatus string

const (
	PortfolioStatusDraft       PortfolioStatus = "DRAFT"
	PortfolioStatusUnderReview PortfolioStatus = "UNDER_REVIEW"
	PortfolioStatusApproved    PortfolioStatus = "APPROVED"
	PortfolioStatusRejected    PortfolioStatus = "REJECTED"
)

// PortfolioStatuses lists every state in lifecycle order.
var PortfolioStatuses = []PortfolioStatus{
	PortfolioStatusDraft,
	PortfolioStatusUnderReview,
	PortfolioStatusApproved,
	PortfolioStatusRejected,
}

var statusAliases = map[string]PortfolioStatus{
	"draft":        PortfolioStatusDraft,
	"borrador":     PortfolioStatusDraft,
	"under_review": PortfolioStatusUnderReview,
	"en_revision":  PortfolioStatusUnderReview,
	"completado":   PortfolioStatusUnderReview,
	"revisado":     PortfolioStatusUnderReview,
	"approved":     PortfolioStatusApproved,
	"aprobado":     PortfolioStatusApproved,
	"evaluado":     PortfolioStatusApproved,
	"rejected":     PortfolioStatusRejected,
	"rechazado":    PortfolioStatusRejected,
}

// ParsePortfolioStatus maps canonical names and legacy vocabulary onto the closed set.
func ParsePortfolioStatus(raw string) (PortfolioStatus, bool) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// Valid reports whether s belongs to the closed status set.
func (s PortfolioStatus) Valid() bool {
	switch s {
	case PortfolioStatusDraft, PortfolioStatusUnderReview, PortfolioStatusApproved, PortfolioStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s PortfolioStatus) Terminal() bool {
	return s == PortfolioStatusApproved || s == PortfolioStatusRejected
}

// Portfolio is the per-course review unit.
type Portfolio struct {
	ID                 string          `db:"id" json:"id"`
	CourseID           string          `db:"course_id" json:"course_id"`
	Status             PortfolioStatus `db:"status" json:"status"`
	EvaluatorID        *string         `db:"evaluator_id" json:"evaluator_id,omitempty"`
	EvaluationComments *string         `db:"evaluation_comments" json:"evaluation_comments,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
	SubmittedAt        *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt         *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Version            int             `db:"version" json:"version"`
}

// PortfolioAccess is the locked row plus the ownership facts transitions are guarded on.
type PortfolioAccess struct {
	Portfolio
	TeacherID     string `db:"teacher_id"`
	DocumentCount int    `db:"document_count"`
}

// PortfolioSummary is one row of the role-scoped listing.
type PortfolioSummary struct {
	Portfolio
	CourseCode    string  `db:"course_code" json:"course_code"`
	CourseName    string  `db:"course_name" json:"course_name"`
	SemesterID    string  `db:"semester_id" json:"semester_id"`
	SemesterName  string  `db:"semester_name" json:"semester_name"`
	TeacherID     string  `db:"teacher_id" json:"teacher_id"`
	TeacherName   string  `db:"teacher_name" json:"teacher_name"`
	EvaluatorName *string `db:"evaluator_name" json:"evaluator_name,omitempty"`
	DocumentCount int     `db:"document_count" json:"document_count"`
}

// PortfolioDetail is the single-portfolio projection. Comments is nil when withheld from the caller.
type PortfolioDetail struct {
	PortfolioSummary
	Documents []Document `json:"documents"`
	Comments  []Comment  `json:"comments,omitempty"`
}

// PortfolioSortFields maps accepted sortBy values, in either vocabulary, onto SQL columns.
var PortfolioSortFields = map[string]string{
	"created_at":          "p.created_at",
	"updated_at":          "p.updated_at",
	"status":              "p.status",
	"course_name":         "c.name",
	"fecha_creacion":      "p.created_at",
	"fecha_actualizacion": "p.updated_at",
	"estado":              "p.status",
	"curso_nombre":        "c.name",
}

// PortfolioFilter is a validated listing request.
type PortfolioFilter struct {
	Status    *PortfolioStatus
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Viewer identifies who a query is shaped for.
type Viewer struct {
	UserID string
	Role   UserRole
}

// ViewerFromClaims builds a viewer from token claims.
func ViewerFromClaims(claims *JWTClaims) Viewer {
	if claims == nil {
		return Viewer{}
	}
	return Viewer{UserID: claims.UserID, Role: claims.Role}
}

// StatusCount is one bucket of the status summary report.
type StatusCount struct {
	Status PortfolioStatus `db:"status" json:"status"`
	Count  int             `db:"count" json:"count"`
}

// PortfolioReport summarises the register for administrators.
type PortfolioReport struct {
	Total       int                     `json:"total"`
	ByStatus    map[PortfolioStatus]int `json:"by_status"`
	Unassigned  int                     `json:"unassigned_under_review"`
	GeneratedAt time.Time               `json:"generated_at"`
}
