package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/trade"
)

// OrderLineInput is one requested line
type OrderLineInput struct {
	StockItemID uuid.UUID `json:"stock_item_id" binding:"required"`
	Quantity    int       `json:"quantity"`
}

// CreateOrderRequest places a new order with a seller
type CreateOrderRequest struct {
	SellerID uuid.UUID        `json:"seller_id" binding:"required"`
	Note     string           `json:"note"`
	Lines    []OrderLineInput `json:"lines" binding:"dive"`
}

// UpdateOrderLineRequest changes a line; nil fields are left as they are
type UpdateOrderLineRequest struct {
	StockItemID *uuid.UUID `json:"stock_item_id,omitempty"`
	Quantity    *int       `json:"quantity,omitempty"`
}

// OrderListFilter represents filter options for order lists
type OrderListFilter struct {
	Status   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// OrderLineResponse represents an order line in API responses
type OrderLineResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderResponse represents an order with its lines
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	BuyerID     uuid.UUID           `json:"buyer_id"`
	SellerID    uuid.UUID           `json:"seller_id"`
	Status      string              `json:"status"`
	Note        string              `json:"note,omitempty"`
	Lines       []OrderLineResponse `json:"lines"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	SubmittedAt *time.Time          `json:"submitted_at,omitempty"`
	ShippedAt   *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
	Version     int                 `json:"version"`
}

// ToOrderLineResponse converts a domain line
func ToOrderLineResponse(l *trade.OrderLine) OrderLineResponse {
	return OrderLineResponse{
		ID:          l.ID,
		OrderID:     l.OrderID,
		StockItemID: l.StockItemID,
		Quantity:    l.Quantity,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ToOrderResponse converts a domain order and its lines
func ToOrderResponse(o *trade.Order, lines []trade.OrderLine) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		BuyerID:     o.BuyerID,
		SellerID:    o.SellerID,
		Status:      o.Status.String(),
		Note:        o.Note,
		Lines:       make([]OrderLineResponse, len(lines)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		SubmittedAt: o.SubmittedAt,
		ShippedAt:   o.ShippedAt,
		DeliveredAt: o.DeliveredAt,
		Version:     o.Version,
	}
	for i := range lines {
		resp.Lines[i] = ToOrderLineResponse(&lines[i])
	}
	return resp
}

// DeliveryNoteResponse points at a rendered delivery note
type DeliveryNoteResponse struct {
	OrderID   uuid.UUID `json:"order_id"`
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
