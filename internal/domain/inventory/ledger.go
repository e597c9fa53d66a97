package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// SourceType names what caused a ledger movement
type SourceType string

const (
	SourceOrder   SourceType = "ORDER"
	SourceCart    SourceType = "CART"
	SourceRestock SourceType = "RESTOCK"
)

// Source identifies the document and account behind a ledger movement
type Source struct {
	Type    SourceType
	ID      uuid.UUID
	ActorID uuid.UUID
}

// Ledger moves quantities on stock items. Every method must run inside the
// caller's transaction: build it from transaction-scoped repositories.
type Ledger struct {
	items StockItemRepository
}

// NewLedger creates a ledger over the given repository
func NewLedger(items StockItemRepository) *Ledger {
	return &Ledger{items: items}
}

// Reserve atomically debits quantity if enough is on hand. On shortfall it
// returns INSUFFICIENT_STOCK carrying the available and requested amounts and
// leaves the balance unchanged.
func (l *Ledger) Reserve(ctx context.Context, itemID uuid.UUID, quantity int, src Source) (*StockReservedEvent, error) {
	if quantity <= 0 {
		return nil, shared.NewInvalidInputError("quantity", "Reserve quantity must be positive")
	}
	item, err := l.items.DecrementIfAvailable(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	return NewStockReservedEvent(item, quantity, src), nil
}

// Release atomically credits quantity back. It has no replay protection.
func (l *Ledger) Release(ctx context.Context, itemID uuid.UUID, quantity int, src Source) (*StockReleasedEvent, error) {
	if quantity <= 0 {
		return nil, shared.NewInvalidInputError("quantity", "Release quantity must be positive")
	}
	item, err := l.items.Increment(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	return NewStockReleasedEvent(item, quantity, src), nil
}

// MergeIncoming folds received goods into ownerID's stock. A same-named item
// (exact match, oldest first) is incremented; otherwise a clone of source is
// created with the received quantity.
func (l *Ledger) MergeIncoming(ctx context.Context, ownerID uuid.UUID, source *StockItem, quantity int, src Source) (*StockItem, *StockMergedEvent, error) {
	if quantity <= 0 {
		return nil, nil, shared.NewInvalidInputError("quantity", "Merge quantity must be positive")
	}
	if source == nil {
		return nil, nil, shared.NewInvalidInputError("source", "Source item is required")
	}

	existing, err := l.items.FindByOwnerAndNameForUpdate(ctx, ownerID, source.Name)
	switch {
	case err == nil:
		updated, err := l.items.Increment(ctx, existing.ID, quantity)
		if err != nil {
			return nil, nil, err
		}
		return updated, NewStockMergedEvent(updated, source, quantity, false, src), nil
	case errors.Is(err, shared.ErrNotFound):
		created, err := source.CloneFor(ownerID, quantity)
		if err != nil {
			return nil, nil, err
		}
		if err := l.items.Save(ctx, created); err != nil {
			return nil, nil, err
		}
		return created, NewStockMergedEvent(created, source, quantity, true, src), nil
	default:
		return nil, nil, err
	}
}
