package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	"github.com/noah-isme/portafolio-docente-api/pkg/storage"
)

// memoryStore is an in-memory stand-in for the portfolio, document and comment tables.
// Transition and the draft-guarded document writes hold mu for their whole duration,
// the way the row lock serializes them in Postgres.
type memoryStore struct {
	mu          sync.Mutex
	portfolios  map[string]*models.PortfolioSummary
	documents   map[string]*models.Document
	comments    []models.Comment
	transitions int
	insertErr   error
	commitErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		portfolios: make(map[string]*models.PortfolioSummary),
		documents:  make(map[string]*models.Document),
	}
}

func (m *memoryStore) addPortfolio(id, teacherID string, status models.PortfolioStatus, evaluatorID *string) *models.PortfolioSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.PortfolioSummary{
		Portfolio: models.Portfolio{
			ID:          id,
			CourseID:    "course-" + id,
			Status:      status,
			EvaluatorID: evaluatorID,
			CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Version:     1,
		},
		CourseCode:  "CS" + id,
		CourseName:  "Course " + id,
		TeacherID:   teacherID,
		TeacherName: "Teacher " + teacherID,
	}
	m.portfolios[id] = p
	return p
}

func (m *memoryStore) addDocument(id, portfolioID, storedName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[id] = &models.Document{
		ID:           id,
		PortfolioID:  portfolioID,
		Category:     models.CategorySyllabus,
		OriginalName: storedName,
		StoredName:   storedName,
		SizeBytes:    10,
		MimeType:     "text/plain",
	}
}

func (m *memoryStore) status(id string) models.PortfolioStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolios[id].Status
}

func (m *memoryStore) documentCount(portfolioID string) int {
	n := 0
	for _, d := range m.documents {
		if d.PortfolioID == portfolioID {
			n++
		}
	}
	return n
}

func visibleTo(viewer models.Viewer, p *models.PortfolioSummary) bool {
	switch viewer.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.TeacherID == viewer.UserID
	case models.RoleEvaluator:
		return (p.EvaluatorID != nil && *p.EvaluatorID == viewer.UserID) || p.Status == models.PortfolioStatusUnderReview
	}
	return false
}

func (m *memoryStore) List(_ context.Context, viewer models.Viewer, filter models.PortfolioFilter) ([]models.PortfolioSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]models.PortfolioSummary, 0)
	for _, p := range m.portfolios {
		if !visibleTo(viewer, p) {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.CourseName), strings.ToLower(filter.Search)) {
			continue
		}
		row := *p
		row.DocumentCount = m.documentCount(p.ID)
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (m *memoryStore) FindVisible(_ context.Context, viewer models.Viewer, id string) (*models.PortfolioSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.portfolios[id]
	if !ok || !visibleTo(viewer, p) {
		return nil, sql.ErrNoRows
	}
	row := *p
	row.DocumentCount = m.documentCount(id)
	return &row, nil
}

func (m *memoryStore) ExistsForCourse(_ context.Context, courseID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.portfolios {
		if p.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) Create(_ context.Context, portfolio *models.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.portfolios {
		if p.CourseID == portfolio.CourseID {
			return repository.ErrDuplicate
		}
	}
	portfolio.ID = "p-new"
	portfolio.Status = models.PortfolioStatusDraft
	portfolio.Version = 1
	m.portfolios[portfolio.ID] = &models.PortfolioSummary{Portfolio: *portfolio}
	return nil
}

func (m *memoryStore) Transition(_ context.Context, id string, apply func(*models.PortfolioAccess) (*repository.PortfolioChange, error)) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.portfolios[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	access := &models.PortfolioAccess{Portfolio: p.Portfolio, TeacherID: p.TeacherID, DocumentCount: m.documentCount(id)}
	change, err := apply(access)
	if err != nil {
		return nil, err
	}
	p.Status = change.To
	if change.EvaluatorID != nil {
		p.EvaluatorID = change.EvaluatorID
	}
	if change.EvaluationComments != nil {
		p.EvaluationComments = change.EvaluationComments
	}
	if change.SubmittedAt != nil {
		p.SubmittedAt = change.SubmittedAt
	}
	if change.ReviewedAt != nil {
		p.ReviewedAt = change.ReviewedAt
	}
	p.UpdatedAt = change.UpdatedAt
	p.Version++
	if change.Comment != nil {
		c := *change.Comment
		c.PortfolioID = id
		m.comments = append(m.comments, c)
	}
	m.transitions++
	updated := p.Portfolio
	return &updated, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.portfolios[id]; !ok {
		return nil, sql.ErrNoRows
	}
	names := make([]string, 0)
	for docID, d := range m.documents {
		if d.PortfolioID == id {
			names = append(names, d.StoredName)
			delete(m.documents, docID)
		}
	}
	delete(m.portfolios, id)
	return names, nil
}

// memoryDocuments exposes the document half of memoryStore.
type memoryDocuments struct{ *memoryStore }

func (d memoryDocuments) InsertInDraft(_ context.Context, doc *models.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.insertErr != nil {
		return d.insertErr
	}
	p, ok := d.portfolios[doc.PortfolioID]
	if !ok {
		return sql.ErrNoRows
	}
	if p.Status != models.PortfolioStatusDraft {
		return repository.ErrStateMismatch
	}
	stored := *doc
	d.documents[doc.ID] = &stored
	return nil
}

func (d memoryDocuments) ListByPortfolio(_ context.Context, portfolioID string) ([]models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	docs := make([]models.Document, 0)
	for _, doc := range d.documents {
		if doc.PortfolioID == portfolioID {
			docs = append(docs, *doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (d memoryDocuments) FindByID(_ context.Context, id string) (*models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.documents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *doc
	return &out, nil
}

func (d memoryDocuments) DeleteInDraft(_ context.Context, id, portfolioID string, removeBlob func(*models.Document) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.portfolios[portfolioID]
	if !ok {
		return sql.ErrNoRows
	}
	if p.Status != models.PortfolioStatusDraft {
		return repository.ErrStateMismatch
	}
	doc, ok := d.documents[id]
	if !ok || doc.PortfolioID != portfolioID {
		return sql.ErrNoRows
	}
	if err := removeBlob(doc); err != nil {
		return err
	}
	if d.commitErr != nil {
		return fmt.Errorf("commit document delete: %w: %w", repository.ErrDanglingRow, d.commitErr)
	}
	delete(d.documents, id)
	return nil
}

// memoryComments exposes the comment half of memoryStore.
type memoryComments struct{ *memoryStore }

func (c memoryComments) ListByPortfolio(_ context.Context, portfolioID string) ([]models.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Comment, 0)
	for _, comment := range c.comments {
		if comment.PortfolioID == portfolioID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (c memoryComments) Create(_ context.Context, comment *models.Comment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	comment.ID = "comment-" + comment.PortfolioID
	c.comments = append(c.comments, *comment)
	return nil
}

type stubCourses map[string]*models.CourseDetail

func (s stubCourses) FindByID(_ context.Context, id string) (*models.CourseDetail, error) {
	course, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type stubUsers map[string]*models.User

func (s stubUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type memoryBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: make(map[string][]byte)}
}

func (b *memoryBlobs) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = data
	return nil
}

func (b *memoryBlobs) Get(_ context.Context, name string) (io.ReadCloser, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[name]
	if !ok {
		return nil, 0, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (b *memoryBlobs) Delete(_ context.Context, name string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[name]; !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, name)
	b.deleted = append(b.deleted, name)
	return nil
}

func (b *memoryBlobs) List(_ context.Context) ([]storage.BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]storage.BlobInfo, 0, len(b.objects))
	for name, data := range b.objects {
		out = append(out, storage.BlobInfo{Name: name, Size: int64(len(data))})
	}
	return out, nil
}

func (b *memoryBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, entry models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingInvalidator struct {
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, keys ...string) {
	r.keys = append(r.keys, keys...)
}

var errBoom = errors.New("boom")

func ptr(s string) *string { return &s }
