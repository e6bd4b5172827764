package dto

// CreatePortfolioRequest opens the portfolio of a course.
type CreatePortfolioRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

// PortfolioListQuery is the raw listing query. Unknown sortBy values fall back to updated_at.
type PortfolioListQuery struct {
	Page      *int   `form:"page" validate:"omitempty,min=1"`
	Limit     *int   `form:"limit" validate:"omitempty,min=1,max=100"`
	Search    string `form:"search" validate:"max=100"`
	Status    string `form:"status"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// AssignEvaluatorRequest names the evaluator for a portfolio under review.
type AssignEvaluatorRequest struct {
	EvaluatorID string `json:"evaluador_id" validate:"required,uuid"`
}

// EvaluatePortfolioRequest records the review decision.
type EvaluatePortfolioRequest struct {
	Decision string `json:"estado" validate:"required"`
	Comments string `json:"comentarios_evaluacion" validate:"max=2000"`
	Rating   *int   `json:"calificacion" validate:"omitempty,min=1,max=5"`
}

// CreateCommentRequest adds an evaluator remark.
type CreateCommentRequest struct {
	Body       string  `json:"comentario" validate:"required,min=10,max=2000"`
	Type       string  `json:"tipo"`
	DocumentID *string `json:"documento_id" validate:"omitempty,uuid"`
	Rating     *int    `json:"calificacion" validate:"omitempty,min=1,max=5"`
}

// UploadDocumentRequest holds the multipart form fields sent alongside the file.
type UploadDocumentRequest struct {
	Category     string `form:"categoria" validate:"required"`
	Subcategory  string `form:"subcategoria" validate:"max=100"`
	QualityLevel string `form:"nivel_calidad"`
}

// ExportQuery selects the report format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
