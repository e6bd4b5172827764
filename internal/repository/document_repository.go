package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
)

const documentColumns = `id, portfolio_id, category, subcategory, original_name, stored_name, size_bytes, mime_type, quality_level, uploaded_by, created_at`

// DocumentRepository stores document metadata rows.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// lockDraft takes a shared lock on the portfolio row and verifies it is still DRAFT.
// A concurrent submit waits on the lock, so the check holds until the transaction ends.
func lockDraft(ctx context.Context, tx *sqlx.Tx, portfolioID string) error {
	var status models.PortfolioStatus
	if err := tx.GetContext(ctx, &status, `SELECT status FROM portfolios WHERE id = $1 FOR SHARE`, portfolioID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock portfolio: %w", err)
	}
	if status != models.PortfolioStatusDraft {
		return ErrStateMismatch
	}
	return nil
}

// InsertInDraft records a document only while its portfolio is DRAFT.
func (r *DocumentRepository) InsertInDraft(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockDraft(ctx, tx, doc.PortfolioID); err != nil {
		return err
	}
	const query = `INSERT INTO documents (id, portfolio_id, category, subcategory, original_name, stored_name, size_bytes, mime_type, quality_level, uploaded_by, created_at)
VALUES (:id, :portfolio_id, :category, :subcategory, :original_name, :stored_name, :size_bytes, :mime_type, :quality_level, :uploaded_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("insert document: %w", classify(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document insert: %w", err)
	}
	return nil
}

// ListByPortfolio returns documents grouped in category display order.
func (r *DocumentRepository) ListByPortfolio(ctx context.Context, portfolioID string) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE portfolio_id = $1
ORDER BY CASE category WHEN 'syllabus' THEN 1 WHEN 'material' THEN 2 WHEN 'exams' THEN 3 WHEN 'student_work' THEN 4 ELSE 5 END,
	subcategory ASC NULLS FIRST, created_at ASC`
	docs := make([]models.Document, 0)
	if err := r.db.SelectContext(ctx, &docs, query, portfolioID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// FindByID returns one document.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

// DeleteInDraft removes a document while its portfolio is DRAFT. removeBlob runs after the row
// delete and before commit; its failure rolls the row back. A commit failure after removeBlob
// succeeded is reported as ErrDanglingRow.
func (r *DocumentRepository) DeleteInDraft(ctx context.Context, id, portfolioID string, removeBlob func(*models.Document) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockDraft(ctx, tx, portfolioID); err != nil {
		return err
	}
	var doc models.Document
	query := `DELETE FROM documents WHERE id = $1 AND portfolio_id = $2 RETURNING ` + documentColumns
	if err := tx.GetContext(ctx, &doc, query, id, portfolioID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete document: %w", err)
	}
	if removeBlob == nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit document delete: %w", err)
		}
		return nil
	}
	if err := removeBlob(&doc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document delete: %w: %w", ErrDanglingRow, err)
	}
	return nil
}

// ExistingStoredNames returns which of names are referenced by a document row.
func (r *DocumentRepository) ExistingStoredNames(ctx context.Context, names []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(names))
	if len(names) == 0 {
		return found, nil
	}
	var rows []string
	if err := r.db.SelectContext(ctx, &rows, `SELECT stored_name FROM documents WHERE stored_name = ANY($1)`, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("match stored names: %w", err)
	}
	for _, name := range rows {
		found[name] = struct{}{}
	}
	return found, nil
}
