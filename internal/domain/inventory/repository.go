package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// StockItemRepository defines the interface for stock item persistence
type StockItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]StockItem, error)

	// FindByOwner lists an owner's items; filter.Search matches the name
	FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]StockItem, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (int64, error)

	// FindByOwnerAndNameForUpdate returns the oldest item of owner whose name
	// matches exactly, holding a row lock until the transaction ends
	FindByOwnerAndNameForUpdate(ctx context.Context, ownerID uuid.UUID, name string) (*StockItem, error)

	// Save inserts or fully updates an item
	Save(ctx context.Context, item *StockItem) error

	// SaveWithLock updates descriptive fields with an optimistic version check.
	// It never writes QuantityOnHand.
	SaveWithLock(ctx context.Context, item *StockItem) error

	// DecrementIfAvailable subtracts quantity in a single conditional update
	// and returns the item after the update. It fails with NOT_FOUND or
	// INSUFFICIENT_STOCK without changing anything.
	DecrementIfAvailable(ctx context.Context, id uuid.UUID, quantity int) (*StockItem, error)

	// Increment adds quantity in a single update and returns the item after it
	Increment(ctx context.Context, id uuid.UUID, quantity int) (*StockItem, error)
}

// StockAlertRepository defines the interface for stock alert persistence
type StockAlertRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockAlert, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]StockAlert, error)
	FindByStockItem(ctx context.Context, stockItemID uuid.UUID) ([]StockAlert, error)
	Save(ctx context.Context, alert *StockAlert) error
	Delete(ctx context.Context, id uuid.UUID) error
}
