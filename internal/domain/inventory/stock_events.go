package inventory

import (
	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

const AggregateTypeStockItem = "StockItem"

const (
	EventTypeStockItemCreated = "StockItemCreated"
	EventTypeStockReserved    = "StockReserved"
	EventTypeStockReleased    = "StockReleased"
	EventTypeStockMerged      = "StockMerged"
)

// StockItemCreatedEvent is raised when an item enters an owner's stock
type StockItemCreatedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID `json:"stock_item_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
}

func NewStockItemCreatedEvent(item *StockItem, actorID uuid.UUID) *StockItemCreatedEvent {
	return &StockItemCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockItemCreated, AggregateTypeStockItem, item.ID, actorID),
		StockItemID:     item.ID,
		OwnerID:         item.OwnerID,
		Name:            item.Name,
		Quantity:        item.QuantityOnHand,
	}
}

// StockReservedEvent is raised after an atomic decrement of QuantityOnHand.
// Remaining is the balance right after the decrement.
type StockReservedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID  `json:"stock_item_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Quantity    int        `json:"quantity"`
	Remaining   int        `json:"remaining"`
	SourceType  SourceType `json:"source_type"`
	SourceID    uuid.UUID  `json:"source_id"`
}

func NewStockReservedEvent(item *StockItem, quantity int, src Source) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeStockItem, item.ID, src.ActorID),
		StockItemID:     item.ID,
		OwnerID:         item.OwnerID,
		Name:            item.Name,
		Quantity:        quantity,
		Remaining:       item.QuantityOnHand,
		SourceType:      src.Type,
		SourceID:        src.ID,
	}
}

// StockReleasedEvent is raised after an atomic increment of QuantityOnHand
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	StockItemID uuid.UUID  `json:"stock_item_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Quantity    int        `json:"quantity"`
	Balance     int        `json:"balance"`
	SourceType  SourceType `json:"source_type"`
	SourceID    uuid.UUID  `json:"source_id"`
}

func NewStockReleasedEvent(item *StockItem, quantity int, src Source) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReleased, AggregateTypeStockItem, item.ID, src.ActorID),
		StockItemID:     item.ID,
		OwnerID:         item.OwnerID,
		Quantity:        quantity,
		Balance:         item.QuantityOnHand,
		SourceType:      src.Type,
		SourceID:        src.ID,
	}
}

// StockMergedEvent is raised when received goods land in the buyer's stock.
// Created is true when no same-named item existed and a new one was made.
type StockMergedEvent struct {
	shared.BaseDomainEvent
	StockItemID       uuid.UUID `json:"stock_item_id"`
	SourceStockItemID uuid.UUID `json:"source_stock_item_id"`
	OwnerID           uuid.UUID `json:"owner_id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	Balance           int       `json:"balance"`
	Created           bool      `json:"created"`
	OrderID           uuid.UUID `json:"order_id"`
}

func NewStockMergedEvent(target, source *StockItem, quantity int, created bool, src Source) *StockMergedEvent {
	return &StockMergedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStockMerged, AggregateTypeStockItem, target.ID, src.ActorID),
		StockItemID:       target.ID,
		SourceStockItemID: source.ID,
		OwnerID:           target.OwnerID,
		Name:              target.Name,
		Quantity:          quantity,
		Balance:           target.QuantityOnHand,
		Created:           created,
		OrderID:           src.ID,
	}
}
