package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence.
// filter.Filters["status"] narrows list queries to one OrderStatus.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForUpdate loads the order holding a row lock until the
	// transaction ends, serializing concurrent transitions
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]Order, error)
	CountByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (int64, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) ([]Order, error)
	CountBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (int64, error)

	// Save inserts a new order
	Save(ctx context.Context, order *Order) error

	// SaveWithLock updates with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *Order) error
}

// OrderLineRepository defines the interface for order line persistence
type OrderLineRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderLine, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error)
	FindByOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderLine, error)
	Save(ctx context.Context, line *OrderLine) error
	SaveBatch(ctx context.Context, lines []OrderLine) error
	Delete(ctx context.Context, id uuid.UUID) error
}
