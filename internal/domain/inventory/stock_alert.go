package inventory

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// StockAlert watches a set of the owner's items and fires when any of them
// drops below MinimumQuantity
type StockAlert struct {
	shared.BaseAggregateRoot
	OwnerID         uuid.UUID
	Message         string
	MinimumQuantity int
	StockItemIDs    []uuid.UUID
}

// NewStockAlert creates an alert. Item ownership is checked by the caller.
func NewStockAlert(ownerID uuid.UUID, message string, minimum int, itemIDs []uuid.UUID) (*StockAlert, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewInvalidInputError("owner_id", "Owner ID cannot be empty")
	}
	alert := &StockAlert{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
	}
	if err := alert.apply(message, minimum, itemIDs); err != nil {
		return nil, err
	}
	return alert, nil
}

// Update replaces message, threshold and watched items
func (a *StockAlert) Update(message string, minimum int, itemIDs []uuid.UUID) error {
	if err := a.apply(message, minimum, itemIDs); err != nil {
		return err
	}
	a.IncrementVersion()
	return nil
}

func (a *StockAlert) apply(message string, minimum int, itemIDs []uuid.UUID) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return shared.NewInvalidInputError("message", "Message cannot be empty")
	}
	if minimum < 0 {
		return shared.NewInvalidInputError("minimum_quantity", "Minimum quantity cannot be negative")
	}
	if len(itemIDs) == 0 {
		return shared.NewInvalidInputError("stock_item_ids", "At least one stock item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(itemIDs))
	ids := make([]uuid.UUID, 0, len(itemIDs))
	for _, id := range itemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	a.Message = message
	a.MinimumQuantity = minimum
	a.StockItemIDs = ids
	return nil
}

// Watches reports whether the alert covers the item
func (a *StockAlert) Watches(itemID uuid.UUID) bool {
	for _, id := range a.StockItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// IsTriggeredBy reports whether quantity is below the threshold
func (a *StockAlert) IsTriggeredBy(quantity int) bool {
	return quantity < a.MinimumQuantity
}

// LowItems returns the watched items currently below the threshold
func (a *StockAlert) LowItems(items []StockItem) []StockItem {
	low := make([]StockItem, 0)
	for _, item := range items {
		if a.Watches(item.ID) && a.IsTriggeredBy(item.QuantityOnHand) {
			low = append(low, item)
		}
	}
	return low
}
