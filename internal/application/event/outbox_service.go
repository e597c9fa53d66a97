package event

import (
	"context"
	"time"

	"github.com/pharmanet/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultSentRetention is how long delivered outbox rows are kept
const DefaultSentRetention = 7 * 24 * time.Hour

// OutboxService reports on and prunes the event outbox
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxStatsDTO counts outbox rows per status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// GetStats counts entries per status
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	stats.Total = stats.Pending + stats.Processing + stats.Sent + stats.Failed + stats.Dead
	return stats, nil
}

// PurgeSent deletes delivered entries older than retention
func (s *OutboxService) PurgeSent(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultSentRetention
	}
	n, err := s.repo.DeleteDeliveredBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged sent outbox entries", zap.Int64("count", n), zap.Duration("retention", retention))
	}
	return n, nil
}

// RequeueDead returns up to limit dead-lettered entries to PENDING with a
// fresh set of attempts. It reports how many were requeued.
func (s *OutboxService) RequeueDead(ctx context.Context, limit int) (int, error) {
	dead, err := s.repo.ListByStatus(ctx, shared.OutboxStatusDead, limit)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	for i, entry := range dead {
		if err := entry.Requeue(now); err != nil {
			return i, err
		}
		if err := s.repo.Update(ctx, entry); err != nil {
			return i, err
		}
		s.logger.Info("requeued dead outbox entry",
			zap.Stringer("event_id", entry.EventID),
			zap.String("event_type", entry.EventType),
			zap.String("last_error", entry.LastError),
		)
	}
	return len(dead), nil
}
