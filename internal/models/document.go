package models

import (
	"strings"
	"time"
)

// DocumentCategory classifies an uploaded file inside a portfolio.
type DocumentCategory string

const (
	CategorySyllabus    DocumentCategory = "syllabus"
	CategoryMaterial    DocumentCategory = "material"
	CategoryExams       DocumentCategory = "exams"
	CategoryStudentWork DocumentCategory = "student_work"
)

// DocumentCategories is the display order of categories.
var DocumentCategories = []DocumentCategory{CategorySyllabus, CategoryMaterial, CategoryExams, CategoryStudentWork}

// QualityLevel grades a student work sample.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
)

// Document is the metadata row for a stored blob.
type Document struct {
	ID           string           `db:"id" json:"id"`
	PortfolioID  string           `db:"portfolio_id" json:"portfolio_id"`
	Category     DocumentCategory `db:"category" json:"category"`
	Subcategory  *string          `db:"subcategory" json:"subcategory,omitempty"`
	OriginalName string           `db:"original_name" json:"original_name"`
	StoredName   string           `db:"stored_name" json:"-"`
	SizeBytes    int64            `db:"size_bytes" json:"size_bytes"`
	MimeType     string           `db:"mime_type" json:"mime_type"`
	QualityLevel *QualityLevel    `db:"quality_level" json:"quality_level,omitempty"`
	UploadedBy   string           `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// DocumentView adds a short lived download link to document metadata.
type DocumentView struct {
	Document
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"download_expires_at"`
}

var categoryAliases = map[string]DocumentCategory{
	"syllabus":     CategorySyllabus,
	"silabo":       CategorySyllabus,
	"material":     CategoryMaterial,
	"exams":        CategoryExams,
	"examenes":     CategoryExams,
	"student_work": CategoryStudentWork,
	"trabajos":     CategoryStudentWork,
}

// ParseDocumentCategory accepts canonical and legacy category names.
func ParseDocumentCategory(raw string) (DocumentCategory, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// ParseQualityLevel validates a quality grade.
func ParseQualityLevel(raw string) (QualityLevel, bool) {
	switch q := QualityLevel(strings.ToLower(strings.TrimSpace(raw))); q {
	case QualityExcellent, QualityGood, QualityFair, QualityPoor:
		return q, true
	}
	return "", false
}
