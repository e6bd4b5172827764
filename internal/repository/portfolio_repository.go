package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
)

const portfolioColumns = `p.id, p.course_id, p.status, p.evaluator_id, p.evaluation_comments, p.created_at, p.updated_at, p.submitted_at, p.reviewed_at, p.version`

const portfolioSummarySelect = `SELECT ` + portfolioColumns + `,
	c.code AS course_code, c.name AS course_name, c.semester_id, s.name AS semester_name, c.teacher_id,
	TRIM(t.names || ' ' || t.surnames) AS teacher_name,
	NULLIF(TRIM(COALESCE(e.names, '') || ' ' || COALESCE(e.surnames, '')), '') AS evaluator_name,
	(SELECT COUNT(*) FROM documents d WHERE d.portfolio_id = p.id) AS document_count
FROM portfolios p
JOIN courses c ON c.id = p.course_id
JOIN semesters s ON s.id = c.semester_id
JOIN users t ON t.id = c.teacher_id
LEFT JOIN users e ON e.id = p.evaluator_id`

const portfolioCountFrom = `SELECT COUNT(*)
FROM portfolios p
JOIN courses c ON c.id = p.course_id
JOIN semesters s ON s.id = c.semester_id`

// PortfolioChange is the state a Transition writes. Nil pointers keep the locked row's value.
type PortfolioChange struct {
	To                 models.PortfolioStatus
	EvaluatorID        *string
	EvaluationComments *string
	SubmittedAt        *time.Time
	ReviewedAt         *time.Time
	UpdatedAt          time.Time
	// Comment is inserted in the same transaction when set.
	Comment *models.Comment
}

// PortfolioRepository stores portfolios and performs lifecycle writes.
type PortfolioRepository struct {
	db *sqlx.DB
}

// NewPortfolioRepository constructs the repository.
func NewPortfolioRepository(db *sqlx.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// visibilityScope returns the predicate restricting rows to what viewer may see.
// An empty predicate means unrestricted.
func visibilityScope(viewer models.Viewer, args []interface{}) (string, []interface{}) {
	switch viewer.Role {
	case models.RoleAdmin:
		return "", args
	case models.RoleTeacher:
		args = append(args, viewer.UserID)
		return fmt.Sprintf("c.teacher_id = $%d", len(args)), args
	case models.RoleEvaluator:
		args = append(args, viewer.UserID)
		return fmt.Sprintf("(p.evaluator_id = $%d OR p.status = '%s')", len(args), models.PortfolioStatusUnderReview), args
	default:
		return "1=0", args
	}
}

// List returns the page of portfolios visible to viewer together with the total matching count.
func (r *PortfolioRepository) List(ctx context.Context, viewer models.Viewer, filter models.PortfolioFilter) ([]models.PortfolioSummary, int, error) {
	var (
		conditions []string
		args       []interface{}
		scope      string
	)
	scope, args = visibilityScope(viewer, args)
	if scope != "" {
		conditions = append(conditions, scope)
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if search := escapeLike(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR c.code ILIKE $%d OR s.name ILIKE $%d)", idx, idx, idx))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortColumn, ok := models.PortfolioSortFields[filter.SortBy]
	if !ok {
		sortColumn = models.PortfolioSortFields["updated_at"]
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	listQuery := fmt.Sprintf("%s%s ORDER BY %s %s, p.id ASC LIMIT %d OFFSET %d", portfolioSummarySelect, where, sortColumn, sortOrder, limit, (page-1)*limit)

	portfolios := make([]models.PortfolioSummary, 0)
	if err := r.db.SelectContext(ctx, &portfolios, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list portfolios: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, portfolioCountFrom+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count portfolios: %w", err)
	}
	return portfolios, total, nil
}

// FindVisible returns a portfolio only when viewer may see it; otherwise sql.ErrNoRows.
func (r *PortfolioRepository) FindVisible(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioSummary, error) {
	args := []interface{}{id}
	scope, args := visibilityScope(viewer, args)
	query := portfolioSummarySelect + " WHERE p.id = $1"
	if scope != "" {
		query += " AND " + scope
	}
	var portfolio models.PortfolioSummary
	if err := r.db.GetContext(ctx, &portfolio, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find portfolio: %w", err)
	}
	return &portfolio, nil
}

// ListAll returns every portfolio for export, optionally narrowed to one status.
func (r *PortfolioRepository) ListAll(ctx context.Context, status *models.PortfolioStatus) ([]models.PortfolioSummary, error) {
	query := portfolioSummarySelect
	var args []interface{}
	if status != nil {
		args = append(args, *status)
		query += " WHERE p.status = $1"
	}
	query += " ORDER BY s.name ASC, c.code ASC"
	portfolios := make([]models.PortfolioSummary, 0)
	if err := r.db.SelectContext(ctx, &portfolios, query, args...); err != nil {
		return nil, fmt.Errorf("list all portfolios: %w", err)
	}
	return portfolios, nil
}

// ExistsForCourse reports whether the course already has its portfolio.
func (r *PortfolioRepository) ExistsForCourse(ctx context.Context, courseID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM portfolios WHERE course_id = $1)`, courseID); err != nil {
		return false, fmt.Errorf("check course portfolio: %w", err)
	}
	return exists, nil
}

// Create inserts a DRAFT portfolio. A second portfolio for the same course yields ErrDuplicate.
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.ID == "" {
		portfolio.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	portfolio.Status = models.PortfolioStatusDraft
	portfolio.CreatedAt = now
	portfolio.UpdatedAt = now
	portfolio.Version = 1
	const query = `INSERT INTO portfolios (id, course_id, status, created_at, updated_at, version)
VALUES (:id, :course_id, :status, :created_at, :updated_at, :version)`
	if _, err := r.db.NamedExecContext(ctx, query, portfolio); err != nil {
		return fmt.Errorf("create portfolio: %w", classify(err))
	}
	return nil
}

// Transition locks the portfolio, lets apply decide the change from the locked row, and writes it
// conditioned on the status that was read. apply errors abort the transaction unchanged.
func (r *PortfolioRepository) Transition(ctx context.Context, id string, apply func(*models.PortfolioAccess) (*PortfolioChange, error)) (*models.Portfolio, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin portfolio transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT ` + portfolioColumns + `, c.teacher_id
FROM portfolios p
JOIN courses c ON c.id = p.course_id
WHERE p.id = $1
FOR UPDATE OF p`
	var current models.PortfolioAccess
	if err := tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock portfolio: %w", err)
	}
	if !current.Status.Valid() {
		return nil, fmt.Errorf("lock portfolio: unknown status %q", current.Status)
	}
	// Counted in its own statement so the snapshot is taken after the lock is held.
	if err := tx.GetContext(ctx, &current.DocumentCount, `SELECT COUNT(*) FROM documents WHERE portfolio_id = $1`, id); err != nil {
		return nil, fmt.Errorf("count portfolio documents: %w", err)
	}

	change, err := apply(&current)
	if err != nil {
		return nil, err
	}

	next := current.Portfolio
	next.Status = change.To
	if change.EvaluatorID != nil {
		next.EvaluatorID = change.EvaluatorID
	}
	if change.EvaluationComments != nil {
		next.EvaluationComments = change.EvaluationComments
	}
	if change.SubmittedAt != nil {
		next.SubmittedAt = change.SubmittedAt
	}
	if change.ReviewedAt != nil {
		next.ReviewedAt = change.ReviewedAt
	}
	next.UpdatedAt = change.UpdatedAt
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}

	const updateQuery = `UPDATE portfolios p SET status = $3, evaluator_id = $4, evaluation_comments = $5,
	submitted_at = $6, reviewed_at = $7, updated_at = $8, version = p.version + 1
WHERE p.id = $1 AND p.status = $2
RETURNING ` + portfolioColumns
	var updated models.Portfolio
	err = tx.GetContext(ctx, &updated, updateQuery,
		id, current.Status, next.Status, next.EvaluatorID, next.EvaluationComments,
		next.SubmittedAt, next.ReviewedAt, next.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStateMismatch
		}
		return nil, fmt.Errorf("update portfolio status: %w", classify(err))
	}

	if change.Comment != nil {
		change.Comment.PortfolioID = id
		if err := insertComment(ctx, tx, change.Comment); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit portfolio transition: %w", err)
	}
	return &updated, nil
}

// Delete removes a portfolio with its documents and comments and returns the stored names
// of the blobs that belonged to it.
func (r *PortfolioRepository) Delete(ctx context.Context, id string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin portfolio delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	names := make([]string, 0)
	if err := tx.SelectContext(ctx, &names, `SELECT stored_name FROM documents WHERE portfolio_id = $1`, id); err != nil {
		return nil, fmt.Errorf("collect portfolio blobs: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete portfolio: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete portfolio rows: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit portfolio delete: %w", err)
	}
	return names, nil
}

// StatusCounts groups the register by status.
func (r *PortfolioRepository) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	counts := make([]models.StatusCount, 0)
	if err := r.db.SelectContext(ctx, &counts, `SELECT status, COUNT(*) AS count FROM portfolios GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count portfolios by status: %w", err)
	}
	return counts, nil
}

// CountUnassignedUnderReview counts submitted portfolios still waiting for an evaluator.
func (r *PortfolioRepository) CountUnassignedUnderReview(ctx context.Context) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM portfolios WHERE status = $1 AND evaluator_id IS NULL`
	if err := r.db.GetContext(ctx, &total, query, models.PortfolioStatusUnderReview); err != nil {
		return 0, fmt.Errorf("count unassigned portfolios: %w", err)
	}
	return total, nil
}
