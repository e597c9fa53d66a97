package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pharmanet/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// HandlerStats counts what an IdempotentHandler did with its deliveries
type HandlerStats struct {
	Applied int64 `json:"applied"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// IdempotentHandler skips events its wrapped handler has already applied.
// The outbox delivers at least once, so a crash between a successful
// handler run and the SENT update redelivers the event.
//
// Keys are "<name>:<event id>", so handlers sharing a store do not shadow
// each other.
type IdempotentHandler struct {
	name    string
	next    shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	enabled bool
	logger  *zap.Logger

	applied atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default TTL and switch
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.ttl = config.TTL
		h.enabled = config.Enabled
	}
}

func NewIdempotentHandler(
	name string,
	next shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	defaults := shared.DefaultIdempotencyConfig()
	h := &IdempotentHandler{
		name:    name,
		next:    next,
		store:   store,
		ttl:     defaults.TTL,
		enabled: defaults.Enabled,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle runs the wrapped handler unless the event was already applied. The
// key is written only after success so a failed run is retried. A store
// that cannot be read is treated as a miss.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.enabled {
		return h.next.Handle(ctx, event)
	}

	key := h.name + ":" + event.EventID().String()
	log := h.logger.With(
		zap.String("handler", h.name),
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	seen, err := h.store.IsProcessed(ctx, key)
	switch {
	case err != nil:
		log.Warn("idempotency lookup failed, handling event anyway", zap.Error(err))
	case seen:
		h.skipped.Add(1)
		log.Debug("event already applied")
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		return err
	}
	h.applied.Add(1)

	if _, err := h.store.MarkProcessed(ctx, key, h.ttl); err != nil {
		log.Warn("could not record applied event", zap.Error(err))
	}
	return nil
}

// Stats returns a snapshot of the counters
func (h *IdempotentHandler) Stats() HandlerStats {
	return HandlerStats{
		Applied: h.applied.Load(),
		Skipped: h.skipped.Load(),
		Failed:  h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
