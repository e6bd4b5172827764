package models

import (
	"encoding/json"
	"time"
)

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLogout            = "LOGOUT"
	AuditActionPasswordChange    = "PASSWORD_CHANGE"
	AuditActionUserCreate        = "USER_CREATE"
	AuditActionUserStatus        = "USER_STATUS"
	AuditActionSemesterCreate    = "SEMESTER_CREATE"
	AuditActionCourseCreate      = "COURSE_CREATE"
	AuditActionCourseUpdate      = "COURSE_UPDATE"
	AuditActionCourseDelete      = "COURSE_DELETE"
	AuditActionPortfolioCreate   = "PORTFOLIO_CREATE"
	AuditActionPortfolioSubmit   = "PORTFOLIO_SUBMIT"
	AuditActionPortfolioAssign   = "PORTFOLIO_ASSIGN"
	AuditActionPortfolioEvaluate = "PORTFOLIO_EVALUATE"
	AuditActionPortfolioDelete   = "PORTFOLIO_DELETE"
	AuditActionDocumentUpload    = "DOCUMENT_UPLOAD"
	AuditActionDocumentDelete    = "DOCUMENT_DELETE"
	AuditActionCommentCreate     = "COMMENT_CREATE"
	AuditActionAccessDenied      = "ACCESS_DENIED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  *string   `db:"old_values" json:"old_values,omitempty"`
	NewValues  *string   `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RequestMeta carries caller network details recorded alongside audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// AuditValues encodes v for the JSONB audit columns. Encoding failures and nil yield NULL.
func AuditValues(v interface{}) *string {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	out := string(raw)
	return &out
}
