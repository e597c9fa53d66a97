package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Mode separates the two ways a buyer stages stock
type Mode string

const (
	// ModeIncremental is the single open cart a buyer grows line by line
	ModeIncremental Mode = "INCREMENTAL"
	// ModeBatch is a closed snapshot written by one submit call
	ModeBatch Mode = "BATCH"
)

func (m Mode) IsValid() bool {
	return m == ModeIncremental || m == ModeBatch
}

// Cart groups reserved quantities for one buyer. Lines live in their own
// table and reference the cart by ID.
type Cart struct {
	shared.BaseAggregateRoot
	OwnerID     uuid.UUID
	Mode        Mode
	Closed      bool
	ClosedAt    *time.Time
	TotalAmount decimal.Decimal
}

// NewIncrementalCart opens an empty cart for the buyer
func NewIncrementalCart(ownerID uuid.UUID) (*Cart, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewInvalidInputError("owner_id", "Owner ID cannot be empty")
	}
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		Mode:              ModeIncremental,
		TotalAmount:       decimal.Zero,
	}, nil
}

// NewBatchCart creates an already-closed cart for a one-shot submission
func NewBatchCart(ownerID uuid.UUID, total decimal.Decimal) (*Cart, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewInvalidInputError("owner_id", "Owner ID cannot be empty")
	}
	now := time.Now()
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		Mode:              ModeBatch,
		Closed:            true,
		ClosedAt:          &now,
		TotalAmount:       total,
	}, nil
}

// Status is OPEN or CLOSED
func (c *Cart) Status() string {
	if c.Closed {
		return "CLOSED"
	}
	return "OPEN"
}

// RequireOwner fails with UNAUTHORIZED unless caller owns the cart
func (c *Cart) RequireOwner(caller identity.Caller, action string) error {
	return caller.RequireParty(action, c.OwnerID)
}

// RequireOpen fails with INVALID_TRANSITION once the cart is closed
func (c *Cart) RequireOpen() error {
	if c.Closed {
		return shared.NewInvalidTransitionError(c.Status(), "EDIT_LINES")
	}
	return nil
}

// Checkout closes an open incremental cart at the given total. Reserved
// stock stays debited.
func (c *Cart) Checkout(actorID uuid.UUID, lines []CartLine, total decimal.Decimal) error {
	if c.Mode != ModeIncremental || c.Closed {
		return shared.NewInvalidTransitionError(c.Status(), "CLOSED")
	}
	if len(lines) == 0 {
		return shared.NewInvalidTransitionError("EMPTY", "CLOSED")
	}
	now := time.Now()
	c.Closed = true
	c.ClosedAt = &now
	c.TotalAmount = total
	c.IncrementVersion()
	c.Raise(NewCartClosedEvent(EventTypeCartCheckedOut, c, actorID, lines))
	return nil
}

// Submitted records the event for a batch cart once its lines are reserved
func (c *Cart) Submitted(actorID uuid.UUID, lines []CartLine) {
	c.Raise(NewCartClosedEvent(EventTypeCartSubmitted, c, actorID, lines))
}

// Cancelled records the event for an open cart whose lines were released
func (c *Cart) Cancelled(actorID uuid.UUID, lines []CartLine) {
	c.Raise(NewCartClosedEvent(EventTypeCartCancelled, c, actorID, lines))
}

// CartLine is a reserved quantity of one stock item
type CartLine struct {
	shared.BaseEntity
	CartID      uuid.UUID
	StockItemID uuid.UUID
	Quantity    int
}

// NewCartLine creates a line row
func NewCartLine(cartID, stockItemID uuid.UUID, quantity int) (*CartLine, error) {
	if cartID == uuid.Nil {
		return nil, shared.NewInvalidInputError("cart_id", "Cart ID cannot be empty")
	}
	if stockItemID == uuid.Nil {
		return nil, shared.NewInvalidInputError("stock_item_id", "Stock item ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewInvalidInputError("quantity", "Quantity must be positive")
	}
	return &CartLine{
		BaseEntity:  shared.NewBaseEntity(),
		CartID:      cartID,
		StockItemID: stockItemID,
		Quantity:    quantity,
	}, nil
}

// Resize sets a new quantity and returns new minus old. A positive delta must
// be reserved, a negative one released.
func (l *CartLine) Resize(quantity int) (int, error) {
	if quantity <= 0 {
		return 0, shared.NewInvalidInputError("quantity", "Quantity must be positive; delete the line instead")
	}
	delta := quantity - l.Quantity
	if delta != 0 {
		l.Quantity = quantity
		l.Touch()
	}
	return delta, nil
}
