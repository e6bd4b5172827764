package models

import "time"

// Course is taught by one teacher in one semester and owns at most one portfolio.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Credits     int       `db:"credits" json:"credits"`
	Description *string   `db:"description" json:"description,omitempty"`
	SemesterID  string    `db:"semester_id" json:"semester_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches a course with display names.
type CourseDetail struct {
	Course
	SemesterName string  `db:"semester_name" json:"semester_name"`
	TeacherName  string  `db:"teacher_name" json:"teacher_name"`
	PortfolioID  *string `db:"portfolio_id" json:"portfolio_id,omitempty"`
}

// CourseFilter narrows course listings. TeacherID is forced for teacher callers.
type CourseFilter struct {
	SemesterID string
	TeacherID  string
	Search     string
	Page       int
	Limit      int
}
