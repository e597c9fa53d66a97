package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/cart"
	"github.com/shopspring/decimal"
)

// CartModel is the persistence model for the Cart aggregate. The partial
// unique index keeps a single open incremental cart per owner.
type CartModel struct {
	VersionedRow
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_carts_open_owner,where:closed = false"`
	Mode        cart.Mode `gorm:"type:varchar(20);not null"`
	Closed      bool      `gorm:"not null;default:false"`
	ClosedAt    *time.Time
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// ToDomain converts the persistence model to a domain Cart
func (m *CartModel) ToDomain() *cart.Cart {
	return &cart.Cart{
		BaseAggregateRoot: m.aggregate(),
		OwnerID:           m.OwnerID,
		Mode:              m.Mode,
		Closed:            m.Closed,
		ClosedAt:          m.ClosedAt,
		TotalAmount:       m.TotalAmount,
	}
}

// FromDomain populates the persistence model from a domain Cart
func (m *CartModel) FromDomain(c *cart.Cart) {
	m.setAggregate(c.BaseAggregateRoot)
	m.OwnerID = c.OwnerID
	m.Mode = c.Mode
	m.Closed = c.Closed
	m.ClosedAt = c.ClosedAt
	m.TotalAmount = c.TotalAmount
}

// CartModelFromDomain creates a new persistence model from a domain Cart
func CartModelFromDomain(c *cart.Cart) *CartModel {
	m := &CartModel{}
	m.FromDomain(c)
	return m
}

// CartLineModel is the persistence model for a cart line
type CartLineModel struct {
	Row
	CartID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_cart_item,priority:1"`
	StockItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_cart_item,priority:2;index"`
	Quantity    int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartLineModel) TableName() string {
	return "cart_lines"
}

// ToDomain converts the persistence model to a domain CartLine
func (m *CartLineModel) ToDomain() *cart.CartLine {
	return &cart.CartLine{
		BaseEntity:  m.entity(),
		CartID:      m.CartID,
		StockItemID: m.StockItemID,
		Quantity:    m.Quantity,
	}
}

// FromDomain populates the persistence model from a domain CartLine
func (m *CartLineModel) FromDomain(l *cart.CartLine) {
	m.setEntity(l.BaseEntity)
	m.CartID = l.CartID
	m.StockItemID = l.StockItemID
	m.Quantity = l.Quantity
}

// CartLineModelFromDomain creates a new persistence model from a domain CartLine
func CartLineModelFromDomain(l *cart.CartLine) *CartLineModel {
	m := &CartLineModel{}
	m.FromDomain(l)
	return m
}
