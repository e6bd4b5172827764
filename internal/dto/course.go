package dto

// CreateSemesterRequest opens a new academic period. Dates use YYYY-MM-DD.
type CreateSemesterRequest struct {
	Name        string  `json:"name" validate:"required,min=5,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Active      *bool   `json:"active"`
}

// CourseRequest creates or fully replaces a course.
type CourseRequest struct {
	Code        string  `json:"code" validate:"required,min=3,max=20"`
	Name        string  `json:"name" validate:"required,min=5,max=200"`
	Credits     int     `json:"credits" validate:"required,min=1,max=10"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	SemesterID  string  `json:"semester_id" validate:"required,uuid"`
	TeacherID   string  `json:"teacher_id" validate:"required,uuid"`
}

// CourseListQuery filters the course listing.
type CourseListQuery struct {
	Page       *int   `form:"page" validate:"omitempty,min=1"`
	Limit      *int   `form:"limit" validate:"omitempty,min=1,max=100"`
	SemesterID string `form:"semester_id" validate:"omitempty,uuid"`
	Search     string `form:"search" validate:"max=100"`
}
