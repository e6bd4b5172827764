package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/dto"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	appErrors "github.com/noah-isme/portafolio-docente-api/pkg/errors"
	"github.com/noah-isme/portafolio-docente-api/pkg/storage"
	"github.com/noah-isme/portafolio-docente-api/pkg/validation"
)

const pdfMIME = "application/pdf"

// DefaultAllowedMIMEs is used when no allow-list is configured.
var DefaultAllowedMIMEs = []string{
	pdfMIME,
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"image/jpeg",
	"image/png",
	"text/plain",
}

type documentRepository interface {
	InsertInDraft(ctx context.Context, doc *models.Document) error
	ListByPortfolio(ctx context.Context, portfolioID string) ([]models.Document, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)
	DeleteInDraft(ctx context.Context, id, portfolioID string, removeBlob func(*models.Document) error) error
}

type visiblePortfolioReader interface {
	FindVisible(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioSummary, error)
}

type downloadSigner interface {
	Sign(documentID, blobName string) (string, time.Time, error)
	Verify(token string) (*storage.DownloadGrant, error)
}

// UploadContent is the uploaded file body; multipart.File satisfies it.
type UploadContent interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// UploadFile describes one file received in a multipart upload.
type UploadFile struct {
	Name    string
	Size    int64
	Content UploadContent
}

// DocumentConfig controls upload validation and link generation.
type DocumentConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	// SharedPath is the public route prefix signed tokens are appended to.
	SharedPath string
}

// DocumentService stores portfolio documents in the blob store and their metadata in the database.
type DocumentService struct {
	repo       documentRepository
	portfolios visiblePortfolioReader
	blobs      storage.BlobStore
	signer     downloadSigner
	audit      auditRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     DocumentConfig
	now        func() time.Time
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(repo documentRepository, portfolios visiblePortfolioReader, blobs storage.BlobStore, signer downloadSigner, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config DocumentConfig) *DocumentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 5 * 1024 * 1024
	}
	if len(config.AllowedMIMEs) == 0 {
		config.AllowedMIMEs = DefaultAllowedMIMEs
	}
	if config.SharedPath == "" {
		config.SharedPath = "/api/files/shared/"
	}
	return &DocumentService{
		repo:       repo,
		portfolios: portfolios,
		blobs:      blobs,
		signer:     signer,
		audit:      audit,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// Upload validates a file, stores its blob and records it in a DRAFT portfolio.
// A failed metadata insert removes the blob again.
func (s *DocumentService) Upload(ctx context.Context, viewer models.Viewer, portfolioID string, req dto.UploadDocumentRequest, file UploadFile, meta models.RequestMeta) (*models.Document, error) {
	doc, err := s.upload(ctx, viewer, portfolioID, req, file)
	if err != nil {
		s.metrics.RecordUpload(uploadOutcome(err))
		return nil, err
	}
	s.metrics.RecordUpload("success")
	s.audit.Record(ctx, auditEntry(viewer.UserID, models.AuditActionDocumentUpload, "document", doc.ID, nil,
		map[string]interface{}{"portfolio_id": portfolioID, "original_name": doc.OriginalName, "category": doc.Category, "size_bytes": doc.SizeBytes}, meta))
	return doc, nil
}

func (s *DocumentService) upload(ctx context.Context, viewer models.Viewer, portfolioID string, req dto.UploadDocumentRequest, file UploadFile) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid upload form")
	}
	category, ok := models.ParseDocumentCategory(req.Category)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "categoria must be one of syllabus, material, exams, student_work")
	}
	var quality *models.QualityLevel
	if req.QualityLevel != "" {
		if category != models.CategoryStudentWork {
			return nil, appErrors.Clone(appErrors.ErrValidation, "nivel_calidad only applies to student_work")
		}
		level, ok := models.ParseQualityLevel(req.QualityLevel)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "nivel_calidad must be one of excellent, good, fair, poor")
		}
		quality = &level
	}

	portfolio, err := s.findPortfolio(ctx, viewer, portfolioID)
	if err != nil {
		return nil, err
	}
	if !ownsPortfolio(viewer, portfolio.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course teacher can upload documents")
	}
	if portfolio.Status != models.PortfolioStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "documents can only be added while the portfolio is DRAFT")
	}

	mimeType, err := s.validateFile(file)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		PortfolioID:  portfolioID,
		Category:     category,
		Subcategory:  stringPtr(strings.TrimSpace(req.Subcategory)),
		OriginalName: filepath.Base(file.Name),
		StoredName:   s.storedName(file.Name),
		SizeBytes:    file.Size,
		MimeType:     mimeType,
		QualityLevel: quality,
		UploadedBy:   viewer.UserID,
		CreatedAt:    s.now().UTC(),
	}

	if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Internal(err, "failed to rewind upload")
	}
	if err := s.blobs.Put(ctx, doc.StoredName, file.Content, file.Size, mimeType); err != nil {
		return nil, appErrors.Storage(err, "failed to store file")
	}

	if err := s.repo.InsertInDraft(ctx, doc); err != nil {
		s.compensate(doc.StoredName)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "portfolio not found")
		case errors.Is(err, repository.ErrStateMismatch):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "documents can only be added while the portfolio is DRAFT")
		}
		return nil, appErrors.Internal(err, "failed to record document")
	}
	return doc, nil
}

// validateFile checks size, then content type, then PDF structure. It returns the detected MIME type.
func (s *DocumentService) validateFile(file UploadFile) (string, error) {
	if file.Content == nil || file.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if file.Size > s.config.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the maximum size of %d MB", s.config.MaxFileSize/(1024*1024)))
	}

	detected, err := mimetype.DetectReader(io.NewSectionReader(file.Content, 0, file.Size))
	if err != nil {
		return "", appErrors.Internal(err, "failed to read upload")
	}
	mimeType, ok := s.allowedMIME(detected)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", detected.String()))
	}

	if mimeType == pdfMIME {
		if _, err := storage.InspectPDF(file.Content, file.Size); err != nil {
			return "", invalid(err, "file is not a readable PDF")
		}
	}
	return mimeType, nil
}

// allowedMIME walks the detected type and its parents against the allow-list.
func (s *DocumentService) allowedMIME(detected *mimetype.MIME) (string, bool) {
	for m := detected; m != nil; m = m.Parent() {
		for _, allowed := range s.config.AllowedMIMEs {
			if m.Is(allowed) {
				return allowed, true
			}
		}
	}
	return "", false
}

func (s *DocumentService) storedName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("file_%d_%s%s", s.now().UnixNano(), uuid.NewString()[:8], ext)
}

// compensate deletes a blob whose metadata row could not be written. It is attempted once.
func (s *DocumentService) compensate(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, name); err != nil {
		s.metrics.RecordCompensation("failed")
		s.logger.Error("orphaned blob", zap.String("stored_name", name), zap.Error(err))
		return
	}
	s.metrics.RecordCompensation("deleted")
}

// List returns the documents of a visible portfolio.
func (s *DocumentService) List(ctx context.Context, viewer models.Viewer, portfolioID string) ([]models.Document, error) {
	if _, err := s.findPortfolio(ctx, viewer, portfolioID); err != nil {
		return nil, err
	}
	docs, err := s.repo.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list documents")
	}
	return docs, nil
}

// Get returns document metadata with a short lived download link.
func (s *DocumentService) Get(ctx context.Context, viewer models.Viewer, id string) (*models.DocumentView, error) {
	doc, _, err := s.findDocument(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(doc.ID, doc.StoredName)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download link")
	}
	return &models.DocumentView{
		Document:    *doc,
		DownloadURL: s.config.SharedPath + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Open streams the blob of a visible document. The caller closes the reader.
func (s *DocumentService) Open(ctx context.Context, viewer models.Viewer, id string) (*models.Document, io.ReadCloser, error) {
	doc, _, err := s.findDocument(ctx, viewer, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.openBlob(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// OpenShared streams a document through a signed download token.
func (s *DocumentService) OpenShared(ctx context.Context, token string) (*models.Document, io.ReadCloser, error) {
	grant, err := s.signer.Verify(token)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link is invalid or expired")
	}
	doc, err := s.repo.FindByID(ctx, grant.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load document")
	}
	if doc.StoredName != grant.BlobName {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	body, err := s.openBlob(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// Delete removes a document's blob and row while its portfolio is DRAFT.
func (s *DocumentService) Delete(ctx context.Context, viewer models.Viewer, id string, meta models.RequestMeta) error {
	doc, portfolio, err := s.findDocument(ctx, viewer, id)
	if err != nil {
		return err
	}
	if !ownsPortfolio(viewer, portfolio.TeacherID) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the course teacher can delete documents")
	}
	if portfolio.Status != models.PortfolioStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "documents can only be deleted while the portfolio is DRAFT")
	}

	err = s.repo.DeleteInDraft(ctx, doc.ID, doc.PortfolioID, func(locked *models.Document) error {
		if err := s.blobs.Delete(ctx, locked.StoredName); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return appErrors.Storage(err, "failed to delete stored file")
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		case errors.Is(err, repository.ErrStateMismatch):
			return appErrors.Clone(appErrors.ErrInvalidTransition, "documents can only be deleted while the portfolio is DRAFT")
		case errors.Is(err, repository.ErrDanglingRow):
			s.logger.Error("document row kept after blob removal",
				zap.String("document_id", doc.ID),
				zap.String("portfolio_id", doc.PortfolioID),
				zap.String("stored_name", doc.StoredName),
				zap.Error(err),
			)
			return appErrors.Internal(err, "failed to delete document")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Internal(err, "failed to delete document")
	}

	s.audit.Record(ctx, auditEntry(viewer.UserID, models.AuditActionDocumentDelete, "document", doc.ID,
		map[string]interface{}{"portfolio_id": doc.PortfolioID, "original_name": doc.OriginalName}, nil, meta))
	return nil
}

func (s *DocumentService) findPortfolio(ctx context.Context, viewer models.Viewer, id string) (*models.PortfolioSummary, error) {
	portfolio, err := s.portfolios.FindVisible(ctx, viewer, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "portfolio not found")
		}
		return nil, appErrors.Internal(err, "failed to load portfolio")
	}
	return portfolio, nil
}

// findDocument loads a document and hides it unless its portfolio is visible to viewer.
func (s *DocumentService) findDocument(ctx context.Context, viewer models.Viewer, id string) (*models.Document, *models.PortfolioSummary, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load document")
	}
	portfolio, err := s.portfolios.FindVisible(ctx, viewer, doc.PortfolioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load portfolio")
	}
	return doc, portfolio, nil
}

func (s *DocumentService) openBlob(ctx context.Context, doc *models.Document) (io.ReadCloser, error) {
	body, _, err := s.blobs.Get(ctx, doc.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "stored file not found")
		}
		return nil, appErrors.Storage(err, "failed to read stored file")
	}
	return body, nil
}

func uploadOutcome(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrValidation):
		return "rejected"
	case errors.Is(err, appErrors.ErrStorage):
		return "storage_error"
	case errors.Is(err, appErrors.ErrForbidden), errors.Is(err, appErrors.ErrNotFound), errors.Is(err, appErrors.ErrInvalidTransition):
		return "denied"
	}
	return "error"
}
