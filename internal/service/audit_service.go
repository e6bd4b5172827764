package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/internal/models"
	"github.com/noah-isme/portafolio-docente-api/pkg/jobs"
)

const auditJobType = "audit.write"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// auditRecorder is what the domain services depend on to leave an audit trail.
type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// AuditConfig sizes the background writer.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// AuditService writes audit entries through a bounded job queue so request paths never wait on them.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the service and its queue. Call Start before recording.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger, cfg AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	svc := &AuditService{repo: repo, metrics: metrics, logger: logger}
	svc.queue = jobs.NewQueue("audit", svc.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the writer goroutines.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains queued entries until ctx expires.
func (s *AuditService) Stop(ctx context.Context) {
	s.queue.Stop(ctx)
}

// Record queues an entry. When the queue refuses it the entry is dropped and counted.
func (s *AuditService) Record(_ context.Context, entry models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry})
	if err == nil {
		return
	}
	s.metrics.RecordAuditDropped()
	level := s.logger.Warn
	if errors.Is(err, jobs.ErrQueueClosed) {
		level = s.logger.Error
	}
	level("audit entry dropped",
		zap.String("action", entry.Action),
		zap.String("resource", entry.Resource),
		zap.Error(err))
}

func (s *AuditService) persist(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.repo.Create(ctx, &entry)
}

// auditEntry assembles a log row for the common case of one actor acting on one resource.
func auditEntry(actorID, action, resource, resourceID string, oldValues, newValues interface{}, meta models.RequestMeta) models.AuditLog {
	entry := models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: models.AuditValues(oldValues),
		NewValues: models.AuditValues(newValues),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	return entry
}

type nopAuditRecorder struct{}

func (nopAuditRecorder) Record(context.Context, models.AuditLog) {}
