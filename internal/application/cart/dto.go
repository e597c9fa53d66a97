package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/cart"
	"github.com/shopspring/decimal"
)

// CartLineInput is one stock item and the quantity to reserve
type CartLineInput struct {
	StockItemID uuid.UUID `json:"stock_item_id" binding:"required"`
	Quantity    int       `json:"quantity"`
}

// SubmitCartRequest reserves a whole batch in one call
type SubmitCartRequest struct {
	Items []CartLineInput `json:"items" binding:"dive"`
}

// UpdateCartLineRequest sets a new quantity on a line
type UpdateCartLineRequest struct {
	Quantity int `json:"quantity"`
}

// CartListFilter represents filter options for cart history
type CartListFilter struct {
	Mode     string
	Page     int
	PageSize int
}

// CartLineResponse represents a cart line in API responses
type CartLineResponse struct {
	ID          uuid.UUID `json:"id"`
	CartID      uuid.UUID `json:"cart_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CartResponse represents a cart with its lines
type CartResponse struct {
	ID          uuid.UUID          `json:"id"`
	OwnerID     uuid.UUID          `json:"owner_id"`
	Mode        string             `json:"mode"`
	Status      string             `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Lines       []CartLineResponse `json:"lines"`
	CreatedAt   time.Time          `json:"created_at"`
	ClosedAt    *time.Time         `json:"closed_at,omitempty"`
}

// ToCartLineResponse converts a domain line to a response
func ToCartLineResponse(l *cart.CartLine) CartLineResponse {
	return CartLineResponse{
		ID:          l.ID,
		CartID:      l.CartID,
		StockItemID: l.StockItemID,
		Quantity:    l.Quantity,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ToCartLineResponses converts a slice of domain lines
func ToCartLineResponses(lines []cart.CartLine) []CartLineResponse {
	out := make([]CartLineResponse, len(lines))
	for i := range lines {
		out[i] = ToCartLineResponse(&lines[i])
	}
	return out
}

// ToCartResponse converts a domain cart and its lines to a response
func ToCartResponse(c *cart.Cart, lines []cart.CartLine) CartResponse {
	return CartResponse{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Mode:        string(c.Mode),
		Status:      c.Status(),
		TotalAmount: c.TotalAmount,
		Lines:       ToCartLineResponses(lines),
		CreatedAt:   c.CreatedAt,
		ClosedAt:    c.ClosedAt,
	}
}
