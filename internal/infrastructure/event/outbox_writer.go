package event

import (
	"context"
	"fmt"

	"github.com/pharmanet/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxWriter turns domain events into outbox rows inside the business
// transaction, so a rolled back reservation leaves no event behind
type OutboxWriter struct {
	serializer  *EventSerializer
	maxAttempts int
}

// NewOutboxWriter builds a writer. maxAttempts <= 0 keeps the entry default.
func NewOutboxWriter(serializer *EventSerializer, maxAttempts int) *OutboxWriter {
	return &OutboxWriter{serializer: serializer, maxAttempts: maxAttempts}
}

// Record implements shared.OutboxRecorder. tx must be the *gorm.DB of the
// open transaction.
func (w *OutboxWriter) Record(ctx context.Context, tx any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	db, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox writer needs a *gorm.DB transaction, got %T", tx)
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		payload, err := w.serializer.Serialize(ev)
		if err != nil {
			return err
		}
		entries[i] = shared.NewOutboxEntry(ev, payload)
		if w.maxAttempts > 0 {
			entries[i].MaxAttempts = w.maxAttempts
		}
	}
	return NewGormOutboxRepository(db).Save(ctx, entries...)
}

var _ shared.OutboxRecorder = (*OutboxWriter)(nil)
