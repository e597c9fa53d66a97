package trade

import (
	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

const AggregateTypeOrder = "Order"

const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderSubmitted = "OrderSubmitted"
	EventTypeOrderShipped   = "OrderShipped"
	EventTypeOrderDelivered = "OrderDelivered"
)

// OrderLineInfo is the line snapshot carried by order events
type OrderLineInfo struct {
	LineID      uuid.UUID `json:"line_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Quantity    int       `json:"quantity"`
}

func lineInfos(lines []OrderLine) []OrderLineInfo {
	infos := make([]OrderLineInfo, len(lines))
	for i, l := range lines {
		infos[i] = OrderLineInfo{LineID: l.ID, StockItemID: l.StockItemID, Quantity: l.Quantity}
	}
	return infos
}

// OrderCreatedEvent is raised when a buyer places a DRAFTING order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID       `json:"order_id"`
	BuyerID  uuid.UUID       `json:"buyer_id"`
	SellerID uuid.UUID       `json:"seller_id"`
	Lines    []OrderLineInfo `json:"lines"`
}

func NewOrderCreatedEvent(o *Order, lines []OrderLine) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID, o.BuyerID),
		OrderID:         o.ID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		Lines:           lineInfos(lines),
	}
}

// OrderSubmittedEvent is raised on DRAFTING to PENDING
type OrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID `json:"order_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
	SellerID uuid.UUID `json:"seller_id"`
}

func NewOrderSubmittedEvent(o *Order, actorID uuid.UUID) *OrderSubmittedEvent {
	return &OrderSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderSubmitted, AggregateTypeOrder, o.ID, actorID),
		OrderID:         o.ID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
	}
}

// OrderShippedEvent is raised on PENDING to IN_DELIVERY, after every line
// has been reserved from the seller's stock
type OrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID       `json:"order_id"`
	BuyerID  uuid.UUID       `json:"buyer_id"`
	SellerID uuid.UUID       `json:"seller_id"`
	Lines    []OrderLineInfo `json:"lines"`
}

func NewOrderShippedEvent(o *Order, actorID uuid.UUID, lines []OrderLine) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, AggregateTypeOrder, o.ID, actorID),
		OrderID:         o.ID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		Lines:           lineInfos(lines),
	}
}

// OrderDeliveredEvent is raised on IN_DELIVERY to DELIVERED, after every line
// has been merged into the buyer's stock
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID       `json:"order_id"`
	BuyerID  uuid.UUID       `json:"buyer_id"`
	SellerID uuid.UUID       `json:"seller_id"`
	Lines    []OrderLineInfo `json:"lines"`
}

func NewOrderDeliveredEvent(o *Order, actorID uuid.UUID, lines []OrderLine) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID, actorID),
		OrderID:         o.ID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		Lines:           lineInfos(lines),
	}
}
