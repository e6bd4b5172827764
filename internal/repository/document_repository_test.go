package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
)

var documentRowColumns = []string{"id", "portfolio_id", "category", "subcategory", "original_name", "stored_name", "size_bytes", "mime_type", "quality_level", "uploaded_by", "created_at"}

func TestDocumentRepositoryInsertInDraft(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM portfolios WHERE id = $1 FOR SHARE")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("DRAFT"))
	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	doc := &models.Document{PortfolioID: "p1", Category: models.CategorySyllabus, OriginalName: "silabo.pdf", StoredName: "x.pdf", SizeBytes: 10, MimeType: "application/pdf", UploadedBy: "t1"}
	require.NoError(t, repo.InsertInDraft(context.Background(), doc))
	assert.NotEmpty(t, doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryInsertRejectsSubmittedPortfolio(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR SHARE").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("UNDER_REVIEW"))
	mock.ExpectRollback()

	err := repo.InsertInDraft(context.Background(), &models.Document{PortfolioID: "p1"})
	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDeleteRollsBackWhenBlobRemovalFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR SHARE").WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("DRAFT"))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1 AND portfolio_id = $2 RETURNING")).
		WithArgs("d1", "p1").
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow("d1", "p1", "material", nil, "slides.pdf", "stored.pdf", 100, "application/pdf", nil, "t1", now))
	mock.ExpectRollback()

	blobErr := errors.New("bucket unavailable")
	var removed string
	err := repo.DeleteInDraft(context.Background(), "d1", "p1", func(doc *models.Document) error {
		removed = doc.StoredName
		return blobErr
	})
	assert.ErrorIs(t, err, blobErr)
	assert.Equal(t, "stored.pdf", removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryDeleteReportsDanglingRowOnCommitFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR SHARE").WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("DRAFT"))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1 AND portfolio_id = $2 RETURNING")).
		WithArgs("d1", "p1").
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow("d1", "p1", "material", nil, "slides.pdf", "stored.pdf", 100, "application/pdf", nil, "t1", now))
	commitErr := errors.New("connection reset")
	mock.ExpectCommit().WillReturnError(commitErr)

	err := repo.DeleteInDraft(context.Background(), "d1", "p1", func(*models.Document) error { return nil })
	assert.ErrorIs(t, err, ErrDanglingRow)
	assert.ErrorIs(t, err, commitErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryExistingStoredNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE stored_name = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"stored_name"}).AddRow("keep.pdf"))

	found, err := repo.ExistingStoredNames(context.Background(), []string{"keep.pdf", "orphan.pdf"})
	require.NoError(t, err)
	assert.Contains(t, found, "keep.pdf")
	assert.NotContains(t, found, "orphan.pdf")
}

func TestCommentRepositoryListByPortfolio(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cm.portfolio_id = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "portfolio_id", "evaluator_id", "evaluator_name", "document_id", "body", "type", "rating", "status", "created_at"}).
			AddRow("cm1", "p1", "e1", "Luis Rojas", nil, "Falta el silabo actualizado", "correction", 3, "PENDING", now))

	comments, err := repo.ListByPortfolio(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Luis Rojas", comments[0].EvaluatorName)
	assert.Equal(t, models.CommentCorrection, comments[0].Type)
	require.NotNil(t, comments[0].Rating)
	assert.Equal(t, 3, *comments[0].Rating)
}
