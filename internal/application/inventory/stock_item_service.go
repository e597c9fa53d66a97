package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockItemService manages the catalog of stock items each account owns
type StockItemService struct {
	items   inventory.StockItemRepository
	txScope TransactionScope
	logger  *zap.Logger
}

// NewStockItemService creates a new StockItemService
func NewStockItemService(items inventory.StockItemRepository, txScope TransactionScope, logger *zap.Logger) *StockItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockItemService{items: items, txScope: txScope, logger: logger}
}

// Create adds an item to the caller's own stock
func (s *StockItemService) Create(ctx context.Context, caller identity.Caller, req CreateStockItemRequest) (*StockItemResponse, error) {
	if caller.ID == uuid.Nil {
		return nil, shared.NewUnauthorizedError("create stock item", caller.ID)
	}
	item, err := inventory.NewStockItem(caller.ID, req.Name, req.Quantity, req.Details.toDomain())
	if err != nil {
		return nil, err
	}
	item.ExpiryDate = req.ExpiryDate

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.StockItems().Save(ctx, item); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, item.PendingEvents()...)
	})
	if err != nil {
		return nil, err
	}
	item.ClearEvents()

	resp := ToStockItemResponse(item)
	return &resp, nil
}

// GetByID returns any item; stock is visible to every authenticated account
func (s *StockItemService) GetByID(ctx context.Context, id uuid.UUID) (*StockItemResponse, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToStockItemResponse(item)
	return &resp, nil
}

// ListByOwner lists an owner's items, paginated, with optional name search
func (s *StockItemService) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter StockItemListFilter) (shared.Paginated[StockItemResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}.Normalize()
	if f.OrderBy == "" {
		f.OrderBy = "name"
		f.OrderDir = "asc"
	}

	items, err := s.items.FindByOwner(ctx, ownerID, f)
	if err != nil {
		return shared.Paginated[StockItemResponse]{}, err
	}
	total, err := s.items.CountByOwner(ctx, ownerID, f)
	if err != nil {
		return shared.Paginated[StockItemResponse]{}, err
	}
	return shared.NewPaginated(ToStockItemResponses(items), total, f.Page, f.PageSize), nil
}

// Update changes descriptive fields of an item the caller owns
func (s *StockItemService) Update(ctx context.Context, caller identity.Caller, id uuid.UUID, req UpdateStockItemRequest) (*StockItemResponse, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := item.RequireOwner(caller.ID); err != nil {
		return nil, err
	}
	if err := item.UpdateDetails(req.Name, req.Details.toDomain(), req.ExpiryDate, req.ForSale); err != nil {
		return nil, err
	}
	if err := s.items.SaveWithLock(ctx, item); err != nil {
		return nil, err
	}
	resp := ToStockItemResponse(item)
	return &resp, nil
}

// Restock adds quantity to an item the caller owns
func (s *StockItemService) Restock(ctx context.Context, caller identity.Caller, id uuid.UUID, quantity int) (*StockItemResponse, error) {
	var updated *inventory.StockItem
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.StockItems().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := item.RequireOwner(caller.ID); err != nil {
			return err
		}
		ev, err := Ledger(repos).Release(ctx, id, quantity, inventory.Source{Type: inventory.SourceRestock, ID: id, ActorID: caller.ID})
		if err != nil {
			return err
		}
		if updated, err = repos.StockItems().FindByID(ctx, id); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock item restocked",
		zap.String("stock_item_id", id.String()),
		zap.Int("quantity", quantity),
		zap.Int("balance", updated.QuantityOnHand),
	)
	resp := ToStockItemResponse(updated)
	return &resp, nil
}
