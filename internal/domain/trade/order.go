package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// Party names which side of an order may perform a transition
type Party string

const (
	PartyBuyer  Party = "BUYER"
	PartySeller Party = "SELLER"
	PartyEither Party = "EITHER"
)

// Order is a buyer-to-seller purchase. Lines are separate rows referencing the
// order by ID; the aggregate itself only carries status and its timestamps.
type Order struct {
	shared.BaseAggregateRoot
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	Status      OrderStatus
	Note        string
	SubmittedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// NewOrder creates a DRAFTING order. Lines are built separately with NewLine.
func NewOrder(buyerID, sellerID uuid.UUID, note string) (*Order, error) {
	if buyerID == uuid.Nil {
		return nil, shared.NewInvalidInputError("buyer_id", "Buyer ID cannot be empty")
	}
	if sellerID == uuid.Nil {
		return nil, shared.NewInvalidInputError("seller_id", "Seller ID cannot be empty")
	}
	if buyerID == sellerID {
		return nil, shared.NewInvalidInputError("seller_id", "Buyer and seller must differ")
	}
	if len(note) > 500 {
		return nil, shared.NewInvalidInputError("note", "Note cannot exceed 500 characters")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BuyerID:           buyerID,
		SellerID:          sellerID,
		Status:            OrderStatusDrafting,
		Note:              note,
	}, nil
}

// Place records the creation event once the initial lines are known
func (o *Order) Place(lines []OrderLine) {
	o.Raise(NewOrderCreatedEvent(o, lines))
}

// IsParty reports whether the account is the buyer or the seller
func (o *Order) IsParty(accountID uuid.UUID) bool {
	return accountID == o.BuyerID || accountID == o.SellerID
}

// RequireParty fails with UNAUTHORIZED for anyone but the buyer and seller
func (o *Order) RequireParty(caller identity.Caller, action string) error {
	return caller.RequireParty(action, o.BuyerID, o.SellerID)
}

// RequiredParty returns who may move the order into target
func RequiredParty(target OrderStatus) Party {
	switch target {
	case OrderStatusPending:
		return PartyBuyer
	case OrderStatusInDelivery:
		return PartySeller
	}
	return PartyEither
}

// CheckTransition validates a move to target on behalf of caller without
// changing anything. Outsiders get UNAUTHORIZED first, then the state machine
// is consulted, then the party required for that step.
func (o *Order) CheckTransition(caller identity.Caller, target OrderStatus) error {
	action := "move order to " + string(target)
	if err := o.RequireParty(caller, action); err != nil {
		return err
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError(string(o.Status), string(target))
	}
	switch RequiredParty(target) {
	case PartyBuyer:
		return caller.RequireParty(action, o.BuyerID)
	case PartySeller:
		return caller.RequireParty(action, o.SellerID)
	}
	return nil
}

// TransitionTo applies a validated move and records the matching event.
// Stock effects of the move are carried out by the caller in the same
// transaction.
func (o *Order) TransitionTo(caller identity.Caller, target OrderStatus, lines []OrderLine) error {
	if err := o.CheckTransition(caller, target); err != nil {
		return err
	}

	now := time.Now()
	o.Status = target
	switch target {
	case OrderStatusPending:
		o.SubmittedAt = &now
		o.Raise(NewOrderSubmittedEvent(o, caller.ID))
	case OrderStatusInDelivery:
		o.ShippedAt = &now
		o.Raise(NewOrderShippedEvent(o, caller.ID, lines))
	case OrderStatusDelivered:
		o.DeliveredAt = &now
		o.Raise(NewOrderDeliveredEvent(o, caller.ID, lines))
	}
	o.IncrementVersion()
	return nil
}

// RequireEditableBy allows line edits only by the buyer while DRAFTING
func (o *Order) RequireEditableBy(caller identity.Caller) error {
	if err := caller.RequireParty("edit order lines", o.BuyerID); err != nil {
		return err
	}
	if o.Status != OrderStatusDrafting {
		return shared.NewInvalidTransitionError(string(o.Status), "EDIT_LINES")
	}
	return nil
}

// NewLine builds a line row for this order
func (o *Order) NewLine(stockItemID uuid.UUID, quantity int) (*OrderLine, error) {
	return NewOrderLine(o.ID, stockItemID, quantity)
}

// OrderLine is one stock item and quantity on an order
type OrderLine struct {
	shared.BaseEntity
	OrderID     uuid.UUID
	StockItemID uuid.UUID
	Quantity    int
}

// NewOrderLine creates a line row
func NewOrderLine(orderID, stockItemID uuid.UUID, quantity int) (*OrderLine, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewInvalidInputError("order_id", "Order ID cannot be empty")
	}
	if stockItemID == uuid.Nil {
		return nil, shared.NewInvalidInputError("stock_item_id", "Stock item ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewInvalidInputError("quantity", "Quantity must be positive")
	}
	return &OrderLine{
		BaseEntity:  shared.NewBaseEntity(),
		OrderID:     orderID,
		StockItemID: stockItemID,
		Quantity:    quantity,
	}, nil
}

// Change replaces item and/or quantity. Nil leaves a field unchanged.
func (l *OrderLine) Change(stockItemID *uuid.UUID, quantity *int) error {
	if stockItemID == nil && quantity == nil {
		return shared.NewInvalidInputError("line", "Nothing to update")
	}
	if stockItemID != nil {
		if *stockItemID == uuid.Nil {
			return shared.NewInvalidInputError("stock_item_id", "Stock item ID cannot be empty")
		}
		l.StockItemID = *stockItemID
	}
	if quantity != nil {
		if *quantity <= 0 {
			return shared.NewInvalidInputError("quantity", "Quantity must be positive")
		}
		l.Quantity = *quantity
	}
	l.Touch()
	return nil
}

// QuantitiesByItem sums line quantities per stock item
func QuantitiesByItem(lines []OrderLine) map[uuid.UUID]int {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		totals[l.StockItemID] += l.Quantity
	}
	return totals
}
