package trade

import (
	"strings"

	"github.com/pharmanet/backend/internal/domain/shared"
)

// OrderStatus is the position of an order in its forward-only lifecycle
type OrderStatus string

const (
	OrderStatusDrafting   OrderStatus = "DRAFTING"
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInDelivery OrderStatus = "IN_DELIVERY"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDrafting, OrderStatusPending, OrderStatusInDelivery, OrderStatusDelivered:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// Next returns the only status reachable from s, or "" for DELIVERED
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case OrderStatusDrafting:
		return OrderStatusPending
	case OrderStatusPending:
		return OrderStatusInDelivery
	case OrderStatusInDelivery:
		return OrderStatusDelivered
	}
	return ""
}

// CanTransitionTo allows exactly one step forward. No skips, no reversal.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next := s.Next()
	return next != "" && next == target
}

// IsTerminal reports whether no further transition exists
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// ParseOrderStatus converts user input to a status
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewInvalidInputError("status", "Unknown order status: "+s)
	}
	return status, nil
}
