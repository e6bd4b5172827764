package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
)

const (
	semesterID = "5b0f1f0e-2c7a-4d8e-9a6b-3c1d2e4f5a60"
	teacherID  = "9d8c7b6a-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	courseID   = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
)

type mockCourseRepo struct {
	courses    map[string]*models.CourseDetail
	lastFilter models.CourseFilter
	createErr  error
	deleteErr  error
}

func (m *mockCourseRepo) List(_ context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	m.lastFilter = filter
	out := make([]models.CourseDetail, 0)
	for _, c := range m.courses {
		if filter.TeacherID == "" || c.TeacherID == filter.TeacherID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(_ context.Context, id string) (*models.CourseDetail, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	course.ID = courseID
	m.courses[course.ID] = &models.CourseDetail{Course: *course, SemesterName: "2024-I"}
	return nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID].Course = *course
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.courses, id)
	return nil
}

type stubSemesters map[string]*models.Semester

func (s stubSemesters) FindByID(_ context.Context, id string) (*models.Semester, error) {
	sem, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sem, nil
}

type stubPortfolioChecker map[string]bool

func (s stubPortfolioChecker) ExistsForCourse(_ context.Context, courseID string) (bool, error) {
	return s[courseID], nil
}

func newCourseFixture() (*CourseService, *mockCourseRepo, stubPortfolioChecker) {
	repo := &mockCourseRepo{courses: make(map[string]*models.CourseDetail)}
	semesters := stubSemesters{semesterID: {ID: semesterID, Name: "2024-I"}}
	users := stubUsers{
		teacherID: {ID: teacherID, Role: models.RoleTeacher, Status: models.UserStatusActive},
		"eval-1":  {ID: "eval-1", Role: models.RoleEvaluator, Status: models.UserStatusActive},
	}
	portfolios := stubPortfolioChecker{}
	return NewCourseService(repo, semesters, users, portfolios, nil, nil, zap.NewNop(), 10), repo, portfolios
}

func validCourseRequest() dto.CourseRequest {
	return dto.CourseRequest{
		Code:       " cs101 ",
		Name:       "Algorithms and Data Structures",
		Credits:    4,
		SemesterID: semesterID,
		TeacherID:  teacherID,
	}
}

func TestCreateCourseNormalisesCode(t *testing.T) {
	svc, _, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), "admin-1", validCourseRequest(), models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)
	assert.Equal(t, "2024-I", course.SemesterName)
}

func TestCreateCourseRequiresActiveTeacher(t *testing.T) {
	svc, _, _ := newCourseFixture()
	req := validCourseRequest()
	req.TeacherID = "0f6b1a8e-3c2d-4e5f-8a9b-7c6d5e4f3a2b"

	_, err := svc.Create(context.Background(), "admin-1", req, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	svc.users = stubUsers{req.TeacherID: {ID: req.TeacherID, Role: models.RoleEvaluator, Status: models.UserStatusActive}}
	_, err = svc.Create(context.Background(), "admin-1", req, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateCourseUnknownSemester(t *testing.T) {
	svc, _, _ := newCourseFixture()
	req := validCourseRequest()
	req.SemesterID = "0f6b1a8e-3c2d-4e5f-8a9b-7c6d5e4f3a2b"

	_, err := svc.Create(context.Background(), "admin-1", req, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateCourseDuplicateCode(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.createErr = fmt.Errorf("create course: %w", repository.ErrDuplicate)

	_, err := svc.Create(context.Background(), "admin-1", validCourseRequest(), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherSeesOnlyOwnCourses(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.courses[courseID] = &models.CourseDetail{Course: models.Course{ID: courseID, TeacherID: teacherID}}
	teacherViewer := models.Viewer{UserID: "someone-else", Role: models.RoleTeacher}

	items, _, err := svc.List(context.Background(), teacherViewer, dto.CourseListQuery{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, "someone-else", repo.lastFilter.TeacherID)

	_, err = svc.Get(context.Background(), teacherViewer, courseID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	course, err := svc.Get(context.Background(), models.Viewer{UserID: teacherID, Role: models.RoleTeacher}, courseID)
	require.NoError(t, err)
	assert.Equal(t, courseID, course.ID)
}

func TestDeleteCourseWithPortfolioConflicts(t *testing.T) {
	svc, repo, portfolios := newCourseFixture()
	repo.courses[courseID] = &models.CourseDetail{Course: models.Course{ID: courseID, TeacherID: teacherID}}
	portfolios[courseID] = true

	err := svc.Delete(context.Background(), "admin-1", courseID, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Contains(t, repo.courses, courseID)

	portfolios[courseID] = false
	require.NoError(t, svc.Delete(context.Background(), "admin-1", courseID, models.RequestMeta{}))
	assert.NotContains(t, repo.courses, courseID)
}

func TestUpdateCourseMissing(t *testing.T) {
	svc, _, _ := newCourseFixture()

	_, err := svc.Update(context.Background(), "admin-1", courseID, validCourseRequest(), models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
