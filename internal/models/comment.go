package models

import "time"

// CommentType tags what an evaluator comment is about.
type CommentType string

const (
	CommentGeneral    CommentType = "general"
	CommentDocument   CommentType = "document"
	CommentSuggestion CommentType = "suggestion"
	CommentCorrection CommentType = "correction"
)

var commentTypeAliases = map[string]CommentType{
	"documento":  CommentDocument,
	"sugerencia": CommentSuggestion,
	"correccion": CommentCorrection,
}

// ParseCommentType accepts canonical and legacy Spanish type names. Empty means general.
func ParseCommentType(raw string) (CommentType, bool) {
	switch t := CommentType(raw); t {
	case "":
		return CommentGeneral, true
	case CommentGeneral, CommentDocument, CommentSuggestion, CommentCorrection:
		return t, true
	}
	t, ok := commentTypeAliases[raw]
	return t, ok
}

// CommentStatus distinguishes ad hoc remarks from recorded evaluation decisions.
type CommentStatus string

const (
	CommentPending   CommentStatus = "PENDING"
	CommentCompleted CommentStatus = "COMPLETED"
)

// Comment is an evaluator remark on a portfolio, optionally about one document.
type Comment struct {
	ID            string        `db:"id" json:"id"`
	PortfolioID   string        `db:"portfolio_id" json:"portfolio_id"`
	EvaluatorID   string        `db:"evaluator_id" json:"evaluator_id"`
	EvaluatorName string        `db:"evaluator_name" json:"evaluator_name,omitempty"`
	DocumentID    *string       `db:"document_id" json:"document_id,omitempty"`
	Body          string        `db:"body" json:"body"`
	Type          CommentType   `db:"type" json:"type"`
	Rating        *int          `db:"rating" json:"rating,omitempty"`
	Status        CommentStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
