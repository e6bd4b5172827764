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

const courseDetailSelect = `SELECT c.id, c.code, c.name, c.credits, c.description, c.semester_id, c.teacher_id, c.created_at, c.updated_at,
	s.name AS semester_name,
	TRIM(u.names || ' ' || u.surnames) AS teacher_name,
	p.id AS portfolio_id
FROM courses c
JOIN semesters s ON s.id = c.semester_id
JOIN users u ON u.id = c.teacher_id
LEFT JOIN portfolios p ON p.course_id = c.id`

// CourseRepository stores courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching filter with the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where += fmt.Sprintf(" AND c.teacher_id = $%d", len(args))
	}
	if filter.SemesterID != "" {
		args = append(args, filter.SemesterID)
		where += fmt.Sprintf(" AND c.semester_id = $%d", len(args))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where += fmt.Sprintf(" AND (c.name ILIKE $%d OR c.code ILIKE $%d)", len(args), len(args))
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	listQuery := fmt.Sprintf("%s%s ORDER BY c.code ASC LIMIT %d OFFSET %d", courseDetailSelect, where, limit, (page-1)*limit)

	courses := make([]models.CourseDetail, 0)
	if err := r.db.SelectContext(ctx, &courses, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses c"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns one course with display names.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, courseDetailSelect+" WHERE c.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// Create inserts a course; a repeated code yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, credits, description, semester_id, teacher_id, created_at, updated_at)
VALUES (:id, :code, :name, :credits, :description, :semester_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", classify(err))
	}
	return nil
}

// Update replaces the mutable fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, credits = :credits, description = :description,
	semester_id = :semester_id, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a course. A course that still owns a portfolio yields ErrReferenced.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
