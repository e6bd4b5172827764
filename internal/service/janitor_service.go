package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/portafolio-docente-api/pkg/storage"
)

const janitorBatchSize = 500

type storedNameChecker interface {
	ExistingStoredNames(ctx context.Context, names []string) (map[string]struct{}, error)
}

type blobLister interface {
	List(ctx context.Context) ([]storage.BlobInfo, error)
	Delete(ctx context.Context, name string) error
}

// JanitorService removes blobs no document row references, e.g. after a failed upload compensation.
type JanitorService struct {
	documents storedNameChecker
	blobs     blobLister
	metrics   *MetricsService
	logger    *zap.Logger
	minAge    time.Duration
	now       func() time.Time
}

// NewJanitorService builds the sweeper. Blobs younger than minAge are never touched so in-flight uploads survive.
func NewJanitorService(documents storedNameChecker, blobs blobLister, metrics *MetricsService, logger *zap.Logger, minAge time.Duration) *JanitorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JanitorService{
		documents: documents,
		blobs:     blobs,
		metrics:   metrics,
		logger:    logger,
		minAge:    minAge,
		now:       time.Now,
	}
}

// Sweep deletes orphaned blobs and reports how many were removed.
func (s *JanitorService) Sweep(ctx context.Context) (int, error) {
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}

	cutoff := s.now().Add(-s.minAge)
	candidates := make([]string, 0, len(blobs))
	for _, blob := range blobs {
		if blob.ModifiedAt.Before(cutoff) {
			candidates = append(candidates, blob.Name)
		}
	}

	removed := 0
	for start := 0; start < len(candidates); start += janitorBatchSize {
		end := start + janitorBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]
		referenced, err := s.documents.ExistingStoredNames(ctx, batch)
		if err != nil {
			return removed, fmt.Errorf("check stored names: %w", err)
		}
		for _, name := range batch {
			if _, ok := referenced[name]; ok {
				continue
			}
			if err := s.blobs.Delete(ctx, name); err != nil {
				s.logger.Warn("failed to remove orphaned blob", zap.String("blob", name), zap.Error(err))
				continue
			}
			removed++
		}
	}

	s.metrics.RecordJanitorRemoved(removed)
	if removed > 0 {
		s.logger.Info("orphaned blobs removed", zap.Int("count", removed), zap.Int("scanned", len(blobs)))
	}
	return removed, nil
}

// Run adapts Sweep to the scheduler task signature.
func (s *JanitorService) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}
