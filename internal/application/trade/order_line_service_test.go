package trade_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	apptrade "github.com/pharmanet/backend/internal/application/trade"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestOrderService_AddLine(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, line(f.paracetamol.ID, 4))

	added, err := f.svc.AddLine(ctx, f.buyer, order.ID, line(f.ibuprofen.ID, 2))
	require.NoError(t, err)
	assert.Equal(t, order.ID, added.OrderID)

	got, err := f.svc.Get(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, order.Version+1, got.Version)

	// 4 already on the order plus 7 more exceeds the 10 on hand
	_, err = f.svc.AddLine(ctx, f.buyer, order.ID, line(f.paracetamol.ID, 7))
	requireCode(t, err, shared.ErrInsufficientStock)

	_, err = f.svc.AddLine(ctx, f.seller, order.ID, line(f.paracetamol.ID, 1))
	requireCode(t, err, shared.ErrUnauthorized)

	_, err = f.svc.AddLine(ctx, f.buyer, order.ID, line(uuid.New(), 1))
	requireCode(t, err, shared.ErrNotFound)
}

func TestOrderService_UpdateLine(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, line(f.paracetamol.ID, 4))
	lineID := order.Lines[0].ID

	updated, err := f.svc.UpdateLine(ctx, f.buyer, lineID, apptrade.UpdateOrderLineRequest{Quantity: intPtr(9)})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Quantity)
	assert.Equal(t, f.paracetamol.ID, updated.StockItemID)

	swapped, err := f.svc.UpdateLine(ctx, f.buyer, lineID, apptrade.UpdateOrderLineRequest{
		StockItemID: &f.ibuprofen.ID,
		Quantity:    intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, f.ibuprofen.ID, swapped.StockItemID)

	_, err = f.svc.UpdateLine(ctx, f.buyer, lineID, apptrade.UpdateOrderLineRequest{Quantity: intPtr(5)})
	requireCode(t, err, shared.ErrInsufficientStock)

	_, err = f.svc.UpdateLine(ctx, f.buyer, lineID, apptrade.UpdateOrderLineRequest{})
	requireCode(t, err, shared.ErrInvalidInput)

	_, err = f.svc.UpdateLine(ctx, f.buyer, lineID, apptrade.UpdateOrderLineRequest{Quantity: intPtr(0)})
	requireCode(t, err, shared.ErrInvalidInput)

	got, err := f.svc.Get(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, order.Version+2, got.Version)
}

func TestOrderService_DeleteLine(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, line(f.paracetamol.ID, 1), line(f.ibuprofen.ID, 1))

	require.NoError(t, f.svc.DeleteLine(ctx, f.buyer, order.Lines[0].ID))

	got, err := f.svc.Get(ctx, f.seller, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lines, 1)

	err = f.svc.DeleteLine(ctx, f.buyer, uuid.New())
	requireCode(t, err, shared.ErrNotFound)
}

func TestOrderService_LineEditsNeedDraftingOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, line(f.paracetamol.ID, 2))
	f.advance(t, f.buyer, order.ID, "PENDING")

	_, err := f.svc.AddLine(ctx, f.buyer, order.ID, line(f.ibuprofen.ID, 1))
	de := requireCode(t, err, shared.ErrInvalidTransition)
	assert.Equal(t, "PENDING", de.Details["current"])
	assert.Equal(t, "EDIT_LINES", de.Details["requested"])

	_, err = f.svc.UpdateLine(ctx, f.buyer, order.Lines[0].ID, apptrade.UpdateOrderLineRequest{Quantity: intPtr(1)})
	requireCode(t, err, shared.ErrInvalidTransition)

	err = f.svc.DeleteLine(ctx, f.buyer, order.Lines[0].ID)
	requireCode(t, err, shared.ErrInvalidTransition)

	err = f.svc.DeleteLine(ctx, f.outsider, order.Lines[0].ID)
	requireCode(t, err, shared.ErrUnauthorized)
}

func TestOrderService_LineEditsRejectForeignItems(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, line(f.paracetamol.ID, 2))
	foreign := f.stock(t, f.outsider.ID, "Amoxicillin 250mg", 50, "4.00")

	_, err := f.svc.AddLine(ctx, f.buyer, order.ID, line(foreign.ID, 1))
	requireCode(t, err, shared.ErrOwnershipMismatch)

	_, err = f.svc.UpdateLine(ctx, f.buyer, order.Lines[0].ID, apptrade.UpdateOrderLineRequest{
		StockItemID: &foreign.ID,
		Quantity:    intPtr(1),
	})
	requireCode(t, err, shared.ErrOwnershipMismatch)

	got, err := f.svc.Get(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, f.paracetamol.ID, got.Lines[0].StockItemID)
	assert.Equal(t, order.Version, got.Version)
}

func TestOrderService_LineEditsCheckOnlyTheEditedItem(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.createOrder(t, line(f.paracetamol.ID, 4), line(f.ibuprofen.ID, 2))

	// Ibuprofen sells out elsewhere after the order was drafted
	_, err := f.items.DecrementIfAvailable(ctx, f.ibuprofen.ID, 4)
	require.NoError(t, err)

	var paracetamolLine uuid.UUID
	for _, l := range order.Lines {
		if l.StockItemID == f.paracetamol.ID {
			paracetamolLine = l.ID
		}
	}
	updated, err := f.svc.UpdateLine(ctx, f.buyer, paracetamolLine, apptrade.UpdateOrderLineRequest{Quantity: intPtr(6)})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Quantity)

	_, err = f.svc.AddLine(ctx, f.buyer, order.ID, line(f.paracetamol.ID, 4))
	require.NoError(t, err)

	// The drained item is still checked when it is the one being edited
	_, err = f.svc.AddLine(ctx, f.buyer, order.ID, line(f.ibuprofen.ID, 1))
	requireCode(t, err, shared.ErrInsufficientStock)
}
