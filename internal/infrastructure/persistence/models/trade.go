package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/trade"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	VersionedRow
	BuyerID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_orders_buyer_status,priority:1"`
	SellerID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_orders_seller_status,priority:1"`
	Status      trade.OrderStatus `gorm:"type:varchar(20);not null;default:'DRAFTING';index:idx_orders_buyer_status,priority:2;index:idx_orders_seller_status,priority:2"`
	Note        string            `gorm:"type:varchar(500)"`
	SubmittedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	return &trade.Order{
		BaseAggregateRoot: m.aggregate(),
		BuyerID:           m.BuyerID,
		SellerID:          m.SellerID,
		Status:            m.Status,
		Note:              m.Note,
		SubmittedAt:       m.SubmittedAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
	}
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.setAggregate(o.BaseAggregateRoot)
	m.BuyerID = o.BuyerID
	m.SellerID = o.SellerID
	m.Status = o.Status
	m.Note = o.Note
	m.SubmittedAt = o.SubmittedAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderLineModel is the persistence model for an order line
type OrderLineModel struct {
	Row
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	StockItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity    int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderLineModel) ToDomain() *trade.OrderLine {
	return &trade.OrderLine{
		BaseEntity:  m.entity(),
		OrderID:     m.OrderID,
		StockItemID: m.StockItemID,
		Quantity:    m.Quantity,
	}
}

// FromDomain populates the persistence model from a domain OrderLine
func (m *OrderLineModel) FromDomain(l *trade.OrderLine) {
	m.setEntity(l.BaseEntity)
	m.OrderID = l.OrderID
	m.StockItemID = l.StockItemID
	m.Quantity = l.Quantity
}

// OrderLineModelFromDomain creates a new persistence model from a domain OrderLine
func OrderLineModelFromDomain(l *trade.OrderLine) *OrderLineModel {
	m := &OrderLineModel{}
	m.FromDomain(l)
	return m
}
