package inventory

import (
	"context"
	"fmt"

	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockRecorder counts alerts crossed by a reservation
type LowStockRecorder interface {
	RecordLowStockAlert(ctx context.Context, ownerID string)
}

// LowStockAlertHandler reacts to StockReserved events and reports every alert
// whose threshold the reservation just crossed
type LowStockAlertHandler struct {
	alerts   inventory.StockAlertRepository
	logger   *zap.Logger
	recorder LowStockRecorder
}

// NewLowStockAlertHandler creates a new handler
func NewLowStockAlertHandler(alerts inventory.StockAlertRepository, logger *zap.Logger) *LowStockAlertHandler {
	return &LowStockAlertHandler{alerts: alerts, logger: logger}
}

// WithRecorder sets the metrics recorder
func (h *LowStockAlertHandler) WithRecorder(recorder LowStockRecorder) *LowStockAlertHandler {
	h.recorder = recorder
	return h
}

func (h *LowStockAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockReserved}
}

// Handle processes a StockReservedEvent
func (h *LowStockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	reserved, ok := event.(*inventory.StockReservedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockReserved, event.EventType())
	}

	alerts, err := h.alerts.FindByStockItem(ctx, reserved.StockItemID)
	if err != nil {
		return err
	}

	before := reserved.Remaining + reserved.Quantity
	for i := range alerts {
		alert := &alerts[i]
		if !alert.IsTriggeredBy(reserved.Remaining) || alert.IsTriggeredBy(before) {
			continue
		}
		h.logger.Warn("stock alert triggered",
			zap.String("alert_id", alert.ID.String()),
			zap.String("owner_id", alert.OwnerID.String()),
			zap.String("stock_item_id", reserved.StockItemID.String()),
			zap.String("item_name", reserved.Name),
			zap.Int("remaining", reserved.Remaining),
			zap.Int("minimum_quantity", alert.MinimumQuantity),
			zap.String("message", alert.Message),
		)
		if h.recorder != nil {
			h.recorder.RecordLowStockAlert(ctx, alert.OwnerID.String())
		}
	}
	return nil
}

var _ shared.EventHandler = (*LowStockAlertHandler)(nil)
