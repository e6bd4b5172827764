package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, viewer models.Viewer, query dto.CourseListQuery) ([]models.CourseDetail, *models.Pagination, error)
	Get(ctx context.Context, viewer models.Viewer, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, actorID string, req dto.CourseRequest, meta models.RequestMeta) (*models.CourseDetail, error)
	Update(ctx context.Context, actorID, id string, req dto.CourseRequest, meta models.RequestMeta) (*models.CourseDetail, error)
	Delete(ctx context.Context, actorID, id string, meta models.RequestMeta) error
}

// CourseHandler manages course endpoints.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary List courses
// @Description Teachers only see the courses they teach
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param semester_id query string false "Semester filter"
// @Param search query string false "Code or name"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var query dto.CourseListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid query parameters"))
		return
	}

	courses, pagination, err := h.service.List(c.Request.Context(), viewer, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "courses retrieved", gin.H{"courses": courses, "pagination": pagination})
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	course, err := h.service.Get(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "course retrieved", course)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid course payload"))
		return
	}

	course, err := h.service.Create(c.Request.Context(), viewer.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "course created", course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid course payload"))
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	course, err := h.service.Update(c.Request.Context(), viewer.UserID, id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "course updated", course)
}

// Delete godoc
// @Summary Delete course
// @Description Blocked while the course has a portfolio
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), viewer.UserID, id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "course deleted", nil)
}
