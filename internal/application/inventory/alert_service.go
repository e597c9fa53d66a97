package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// AlertService manages low-stock alerts. Every watched item must belong to
// the alert's owner.
type AlertService struct {
	alerts inventory.StockAlertRepository
	items  inventory.StockItemRepository
}

// NewAlertService creates a new AlertService
func NewAlertService(alerts inventory.StockAlertRepository, items inventory.StockItemRepository) *AlertService {
	return &AlertService{alerts: alerts, items: items}
}

// Create creates an alert for the caller
func (s *AlertService) Create(ctx context.Context, caller identity.Caller, req StockAlertRequest) (*StockAlertResponse, error) {
	if err := s.requireOwnedItems(ctx, caller, req.StockItemIDs); err != nil {
		return nil, err
	}
	alert, err := inventory.NewStockAlert(caller.ID, req.Message, req.MinimumQuantity, req.StockItemIDs)
	if err != nil {
		return nil, err
	}
	if err := s.alerts.Save(ctx, alert); err != nil {
		return nil, err
	}
	resp := ToStockAlertResponse(alert)
	return &resp, nil
}

// Update replaces an alert the caller owns
func (s *AlertService) Update(ctx context.Context, caller identity.Caller, id uuid.UUID, req StockAlertRequest) (*StockAlertResponse, error) {
	alert, err := s.findOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnedItems(ctx, caller, req.StockItemIDs); err != nil {
		return nil, err
	}
	if err := alert.Update(req.Message, req.MinimumQuantity, req.StockItemIDs); err != nil {
		return nil, err
	}
	if err := s.alerts.Save(ctx, alert); err != nil {
		return nil, err
	}
	resp := ToStockAlertResponse(alert)
	return &resp, nil
}

// Delete removes an alert the caller owns
func (s *AlertService) Delete(ctx context.Context, caller identity.Caller, id uuid.UUID) error {
	if _, err := s.findOwned(ctx, caller, id); err != nil {
		return err
	}
	return s.alerts.Delete(ctx, id)
}

// List returns the caller's alerts
func (s *AlertService) List(ctx context.Context, caller identity.Caller) ([]StockAlertResponse, error) {
	alerts, err := s.alerts.FindByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	out := make([]StockAlertResponse, len(alerts))
	for i := range alerts {
		out[i] = ToStockAlertResponse(&alerts[i])
	}
	return out, nil
}

// ListTriggered returns the caller's alerts that have at least one watched
// item below the threshold, with those items attached
func (s *AlertService) ListTriggered(ctx context.Context, caller identity.Caller) ([]StockAlertResponse, error) {
	alerts, err := s.alerts.FindByOwner(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	out := make([]StockAlertResponse, 0)
	for i := range alerts {
		items, err := s.items.FindByIDs(ctx, alerts[i].StockItemIDs)
		if err != nil {
			return nil, err
		}
		low := alerts[i].LowItems(items)
		if len(low) == 0 {
			continue
		}
		resp := ToStockAlertResponse(&alerts[i])
		resp.LowItems = ToStockItemResponses(low)
		out = append(out, resp)
	}
	return out, nil
}

func (s *AlertService) findOwned(ctx context.Context, caller identity.Caller, id uuid.UUID) (*inventory.StockAlert, error) {
	alert, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := caller.RequireParty("manage stock alert", alert.OwnerID); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *AlertService) requireOwnedItems(ctx context.Context, caller identity.Caller, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return shared.NewInvalidInputError("stock_item_ids", "At least one stock item is required")
	}
	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[uuid.UUID]*inventory.StockItem, len(items))
	for i := range items {
		found[items[i].ID] = &items[i]
	}
	for _, id := range ids {
		item, ok := found[id]
		if !ok {
			return shared.NewNotFoundError("stock item", id)
		}
		if err := item.RequireOwner(caller.ID); err != nil {
			return err
		}
	}
	return nil
}
