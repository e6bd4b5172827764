package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
)

var courseRowColumns = []string{"id", "code", "name", "credits", "description", "semester_id", "teacher_id", "created_at", "updated_at", "semester_name", "teacher_name", "portfolio_id"}

func TestCourseRepositoryListForTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(courseRowColumns).
		AddRow("c1", "CS101", "Algorithms", 4, nil, "s1", "t1", now, now, "2026-I", "Ana Quispe", "p1")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND c.teacher_id = $1 AND c.semester_id = $2 ORDER BY c.code ASC LIMIT 10 OFFSET 0")).
		WithArgs("t1", "s1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses c WHERE 1=1 AND c.teacher_id = $1 AND c.semester_id = $2")).
		WithArgs("t1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{TeacherID: "t1", SemesterID: "s1"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Ana Quispe", courses[0].TeacherName)
	require.NotNil(t, courses[0].PortfolioID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteReferenced(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "portfolios_course_id_fkey"})

	err := repo.Delete(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrReferenced)
}

func TestCourseRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("UPDATE courses SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Course{ID: "nope", Code: "CS101", Name: "Algorithms", Credits: 3})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSemesterRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectExec("INSERT INTO semesters").WillReturnResult(sqlmock.NewResult(1, 1))

	semester := &models.Semester{Name: "2026-I", StartDate: time.Now(), EndDate: time.Now().AddDate(0, 4, 0), Active: true}
	require.NoError(t, repo.Create(context.Background(), semester))
	assert.NotEmpty(t, semester.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
