package trade

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parties struct {
	buyer, seller, stranger identity.Caller
}

func newParties() parties {
	return parties{
		buyer:    identity.NewCaller(uuid.New(), identity.RoleBuyer),
		seller:   identity.NewCaller(uuid.New(), identity.RoleSeller),
		stranger: identity.NewCaller(uuid.New(), identity.RoleBuyer),
	}
}

func createTestOrder(t *testing.T, p parties) *Order {
	t.Helper()
	order, err := NewOrder(p.buyer.ID, p.seller.ID, "")
	require.NoError(t, err)
	return order
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	all := []OrderStatus{OrderStatusDrafting, OrderStatusPending, OrderStatusInDelivery, OrderStatusDelivered}
	allowed := map[OrderStatus]OrderStatus{
		OrderStatusDrafting:   OrderStatusPending,
		OrderStatusPending:    OrderStatusInDelivery,
		OrderStatusInDelivery: OrderStatusDelivered,
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, allowed[from] == to, from.CanTransitionTo(to))
			})
		}
	}
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatus("CANCELLED")))
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("in_delivery")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusInDelivery, s)

	_, err = ParseOrderStatus("SHIPPED")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestNewOrder(t *testing.T) {
	p := newParties()

	order := createTestOrder(t, p)
	assert.Equal(t, OrderStatusDrafting, order.Status)
	assert.True(t, order.IsParty(p.buyer.ID))
	assert.True(t, order.IsParty(p.seller.ID))
	assert.False(t, order.IsParty(p.stranger.ID))

	_, err := NewOrder(p.buyer.ID, p.buyer.ID, "")
	assert.Error(t, err)
	_, err = NewOrder(uuid.Nil, p.seller.ID, "")
	assert.Error(t, err)
}

func TestOrder_TransitionTo(t *testing.T) {
	t.Run("full forward path", func(t *testing.T) {
		p := newParties()
		order := createTestOrder(t, p)
		line, err := order.NewLine(uuid.New(), 10)
		require.NoError(t, err)
		lines := []OrderLine{*line}

		require.NoError(t, order.TransitionTo(p.buyer, OrderStatusPending, lines))
		assert.NotNil(t, order.SubmittedAt)
		require.NoError(t, order.TransitionTo(p.seller, OrderStatusInDelivery, lines))
		assert.NotNil(t, order.ShippedAt)
		require.NoError(t, order.TransitionTo(p.buyer, OrderStatusDelivered, lines))
		assert.NotNil(t, order.DeliveredAt)
		assert.Equal(t, 4, order.Version)

		events := order.PendingEvents()
		require.Len(t, events, 3)
		assert.Equal(t, EventTypeOrderSubmitted, events[0].EventType())
		assert.Equal(t, EventTypeOrderShipped, events[1].EventType())
		assert.Equal(t, EventTypeOrderDelivered, events[2].EventType())
		assert.Len(t, events[2].(*OrderDeliveredEvent).Lines, 1)
	})

	t.Run("seller may confirm delivery", func(t *testing.T) {
		p := newParties()
		order := createTestOrder(t, p)
		order.Status = OrderStatusInDelivery
		assert.NoError(t, order.TransitionTo(p.seller, OrderStatusDelivered, nil))
	})

	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		actor   func(parties) identity.Caller
		wantErr *shared.DomainError
	}{
		{"delivered back to pending", OrderStatusDelivered, OrderStatusPending, func(p parties) identity.Caller { return p.buyer }, shared.ErrInvalidTransition},
		{"skip from drafting to in delivery", OrderStatusDrafting, OrderStatusInDelivery, func(p parties) identity.Caller { return p.seller }, shared.ErrInvalidTransition},
		{"skip checked before role", OrderStatusDrafting, OrderStatusInDelivery, func(p parties) identity.Caller { return p.buyer }, shared.ErrInvalidTransition},
		{"same status", OrderStatusPending, OrderStatusPending, func(p parties) identity.Caller { return p.buyer }, shared.ErrInvalidTransition},
		{"seller cannot submit", OrderStatusDrafting, OrderStatusPending, func(p parties) identity.Caller { return p.seller }, shared.ErrUnauthorized},
		{"buyer cannot ship", OrderStatusPending, OrderStatusInDelivery, func(p parties) identity.Caller { return p.buyer }, shared.ErrUnauthorized},
		{"stranger cannot deliver", OrderStatusInDelivery, OrderStatusDelivered, func(p parties) identity.Caller { return p.stranger }, shared.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParties()
			order := createTestOrder(t, p)
			order.Status = tt.from

			err := order.TransitionTo(tt.actor(p), tt.to, nil)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, tt.from, order.Status)
			assert.Empty(t, order.PendingEvents())
		})
	}

	t.Run("invalid transition carries both statuses", func(t *testing.T) {
		p := newParties()
		order := createTestOrder(t, p)
		order.Status = OrderStatusDelivered

		err := order.CheckTransition(p.buyer, OrderStatusPending)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "DELIVERED", de.Details["current"])
		assert.Equal(t, "PENDING", de.Details["requested"])
	})
}

func TestOrder_RequireEditableBy(t *testing.T) {
	p := newParties()
	order := createTestOrder(t, p)

	assert.NoError(t, order.RequireEditableBy(p.buyer))
	assert.True(t, errors.Is(order.RequireEditableBy(p.seller), shared.ErrUnauthorized))

	order.Status = OrderStatusPending
	assert.True(t, errors.Is(order.RequireEditableBy(p.buyer), shared.ErrInvalidTransition))
}

func TestOrderLine_Change(t *testing.T) {
	line, err := NewOrderLine(uuid.New(), uuid.New(), 3)
	require.NoError(t, err)

	qty := 7
	require.NoError(t, line.Change(nil, &qty))
	assert.Equal(t, 7, line.Quantity)

	item := uuid.New()
	require.NoError(t, line.Change(&item, nil))
	assert.Equal(t, item, line.StockItemID)

	assert.True(t, errors.Is(line.Change(nil, nil), shared.ErrInvalidInput))
	zero := 0
	assert.Error(t, line.Change(nil, &zero))

	_, err = NewOrderLine(uuid.New(), uuid.New(), 0)
	assert.Error(t, err)
}

func TestQuantitiesByItem(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lines := []OrderLine{{StockItemID: a, Quantity: 2}, {StockItemID: b, Quantity: 1}, {StockItemID: a, Quantity: 5}}
	totals := QuantitiesByItem(lines)
	assert.Equal(t, 7, totals[a])
	assert.Equal(t, 1, totals[b])
}
