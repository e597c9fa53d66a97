package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// CartRepository defines the interface for cart persistence
type CartRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)

	// FindByIDForUpdate loads the cart and holds its row lock until the
	// transaction ends. Line changes take this lock before touching lines.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Cart, error)

	// FindOpenByOwner returns the buyer's open incremental cart or NOT_FOUND
	FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*Cart, error)
	FindOpenByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*Cart, error)

	// GetOrCreateOpen returns the buyer's open incremental cart, creating it
	// if none exists. The storage layer guarantees at most one per buyer.
	GetOrCreateOpen(ctx context.Context, ownerID uuid.UUID) (*Cart, error)

	FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]Cart, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, cart *Cart) error
	SaveWithLock(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CartLineRepository defines the interface for cart line persistence
type CartLineRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CartLine, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*CartLine, error)
	FindByCart(ctx context.Context, cartID uuid.UUID) ([]CartLine, error)
	FindByCarts(ctx context.Context, cartIDs []uuid.UUID) (map[uuid.UUID][]CartLine, error)
	FindByCartAndItem(ctx context.Context, cartID, stockItemID uuid.UUID) (*CartLine, error)
	Save(ctx context.Context, line *CartLine) error
	SaveBatch(ctx context.Context, lines []CartLine) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCart(ctx context.Context, cartID uuid.UUID) error
}
