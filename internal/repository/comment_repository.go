package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
)

// CommentRepository stores evaluator comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByPortfolio returns comments oldest first with the evaluator display name.
func (r *CommentRepository) ListByPortfolio(ctx context.Context, portfolioID string) ([]models.Comment, error) {
	const query = `SELECT cm.id, cm.portfolio_id, cm.evaluator_id, TRIM(u.names || ' ' || u.surnames) AS evaluator_name,
	cm.document_id, cm.body, cm.type, cm.rating, cm.status, cm.created_at
FROM comments cm
JOIN users u ON u.id = cm.evaluator_id
WHERE cm.portfolio_id = $1
ORDER BY cm.created_at ASC`
	comments := make([]models.Comment, 0)
	if err := r.db.SelectContext(ctx, &comments, query, portfolioID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Create inserts a comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return insertComment(ctx, r.db, comment)
}

func insertComment(ctx context.Context, exec sqlx.ExtContext, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	if comment.Type == "" {
		comment.Type = models.CommentGeneral
	}
	if comment.Status == "" {
		comment.Status = models.CommentPending
	}
	const query = `INSERT INTO comments (id, portfolio_id, evaluator_id, document_id, body, type, rating, status, created_at)
VALUES (:id, :portfolio_id, :evaluator_id, :document_id, :body, :type, :rating, :status, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, comment); err != nil {
		return fmt.Errorf("insert comment: %w", classify(err))
	}
	return nil
}
