package inventory

import (
	"context"

	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// WorkflowRecorder receives business counters from stock-moving workflows
type WorkflowRecorder interface {
	RecordOrderTransition(ctx context.Context, from, to string)
	RecordStockReservation(ctx context.Context, source string, quantity int)
	RecordStockRelease(ctx context.Context, source string, quantity int)
	RecordStockRejection(ctx context.Context, source string)
	RecordStockMerge(ctx context.Context, created bool, quantity int)
}

// NoopRecorder discards everything
type NoopRecorder struct{}

func (NoopRecorder) RecordOrderTransition(context.Context, string, string) {}
func (NoopRecorder) RecordStockReservation(context.Context, string, int)   {}
func (NoopRecorder) RecordStockRelease(context.Context, string, int)       {}
func (NoopRecorder) RecordStockRejection(context.Context, string)          {}
func (NoopRecorder) RecordStockMerge(context.Context, bool, int)           {}

var _ WorkflowRecorder = NoopRecorder{}

// RecordLedgerEvents reports committed ledger movements to recorder
func RecordLedgerEvents(ctx context.Context, recorder WorkflowRecorder, events []shared.DomainEvent) {
	for _, ev := range events {
		switch e := ev.(type) {
		case *inventory.StockReservedEvent:
			recorder.RecordStockReservation(ctx, string(e.SourceType), e.Quantity)
		case *inventory.StockReleasedEvent:
			recorder.RecordStockRelease(ctx, string(e.SourceType), e.Quantity)
		case *inventory.StockMergedEvent:
			recorder.RecordStockMerge(ctx, e.Created, e.Quantity)
		}
	}
}
