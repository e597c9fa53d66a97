package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pharmanet/backend/internal/domain/shared"
	"go.uber.org/zap"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// Retry spaces out redelivery. The zero value means DefaultRetryPolicy.
	Retry            shared.RetryPolicy
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		Retry:            shared.DefaultRetryPolicy(),
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	def := DefaultOutboxProcessorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.Retry == (shared.RetryPolicy{}) {
		c.Retry = def.Retry
	}
	if c.CleanupRetention <= 0 {
		c.CleanupRetention = def.CleanupRetention
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}

// PassResult summarizes one claim-and-deliver pass
type PassResult struct {
	Claimed   int
	Delivered int
	Retrying  int
	Dead      int
}

// OutboxProcessor relays committed outbox entries to the event bus. Several
// processors may poll the same table: ClaimDue hands each entry to one of them.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventBus
	serializer *EventSerializer
	cfg        OutboxProcessorConfig
	logger     *zap.Logger
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventBus,
	serializer *EventSerializer,
	cfg OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		cfg:        cfg.withDefaults(),
		logger:     logger.Named("outbox"),
		now:        time.Now,
	}
}

// Start launches the polling loop, plus the pruning loop when cleanup is on
func (p *OutboxProcessor) Start(ctx context.Context) error {
	if p.cancel != nil {
		return errors.New("outbox processor already started")
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.every(ctx, p.cfg.PollInterval, func(ctx context.Context) {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("claim due entries", zap.Error(err))
		}
	})
	if p.cfg.CleanupEnabled {
		p.every(ctx, p.cfg.CleanupInterval, p.prune)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Int("max_attempts", p.cfg.Retry.MaxAttempts),
	)
	return nil
}

// Stop cancels the loops and waits for the pass in flight, or for ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// RunOnce claims one batch of due entries and delivers each
func (p *OutboxProcessor) RunOnce(ctx context.Context) (PassResult, error) {
	entries, err := p.repo.ClaimDue(ctx, p.now(), p.cfg.BatchSize)
	if err != nil {
		return PassResult{}, err
	}

	res := PassResult{Claimed: len(entries)}
	for _, entry := range entries {
		p.deliver(ctx, entry)
		switch entry.Status {
		case shared.OutboxStatusSent:
			res.Delivered++
		case shared.OutboxStatusDead:
			res.Dead++
		default:
			res.Retrying++
		}
		if err := p.repo.Update(ctx, entry); err != nil {
			// the row stays PROCESSING until an operator requeues it
			p.logger.Error("record delivery outcome",
				zap.Stringer("event_id", entry.EventID),
				zap.String("status", string(entry.Status)),
				zap.Error(err),
			)
		}
	}
	return res, nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) {
	log := p.logger.With(
		zap.Stringer("event_id", entry.EventID),
		zap.String("event_type", entry.EventType),
	)

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, event)
	}
	if err == nil {
		entry.Delivered(p.now())
		log.Debug("event delivered")
		return
	}

	if errors.Is(err, ErrUnknownEventType) {
		// no amount of retrying decodes it
		entry.MaxAttempts = entry.Attempts + 1
	}
	entry.Failed(err, p.cfg.Retry, p.now())
	if entry.Status == shared.OutboxStatusDead {
		log.Warn("event dead-lettered",
			zap.String("aggregate_type", entry.AggregateType),
			zap.Stringer("aggregate_id", entry.AggregateID),
			zap.Int("attempts", entry.Attempts),
			zap.Error(err),
		)
		return
	}
	log.Warn("event delivery failed, will retry",
		zap.Int("attempts", entry.Attempts),
		zap.Time("available_at", entry.AvailableAt),
		zap.Error(err),
	)
}

func (p *OutboxProcessor) prune(ctx context.Context) {
	cutoff := p.now().Add(-p.cfg.CleanupRetention)
	n, err := p.repo.DeleteDeliveredBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("prune delivered entries", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Info("pruned delivered entries", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
}
