package cart

import (
	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const AggregateTypeCart = "Cart"

const (
	EventTypeCartCheckedOut = "CartCheckedOut"
	EventTypeCartSubmitted  = "CartSubmitted"
	EventTypeCartCancelled  = "CartCancelled"
)

// CartLineInfo is the line snapshot carried by cart events
type CartLineInfo struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	Quantity    int       `json:"quantity"`
}

// CartClosedEvent is raised when a cart is checked out, submitted or cancelled.
// Type tells which.
type CartClosedEvent struct {
	shared.BaseDomainEvent
	CartID      uuid.UUID       `json:"cart_id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Mode        Mode            `json:"mode"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []CartLineInfo  `json:"lines"`
}

func NewCartClosedEvent(eventType string, c *Cart, actorID uuid.UUID, lines []CartLine) *CartClosedEvent {
	infos := make([]CartLineInfo, len(lines))
	for i, l := range lines {
		infos[i] = CartLineInfo{StockItemID: l.StockItemID, Quantity: l.Quantity}
	}
	return &CartClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCart, c.ID, actorID),
		CartID:          c.ID,
		OwnerID:         c.OwnerID,
		Mode:            c.Mode,
		TotalAmount:     c.TotalAmount,
		Lines:           infos,
	}
}
