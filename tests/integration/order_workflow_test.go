package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	appcart "github.com/pharmanet/backend/internal/application/cart"
	apptrade "github.com/pharmanet/backend/internal/application/trade"
	"github.com/pharmanet/backend/internal/domain/cart"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/domain/trade"
	"github.com/pharmanet/backend/internal/infrastructure/event"
	"github.com/pharmanet/backend/internal/infrastructure/persistence"
	"github.com/pharmanet/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type workflow struct {
	db     *TestDB
	orders *apptrade.OrderService
	carts  *appcart.CartService
	outbox *event.GormOutboxRepository
	serial *event.EventSerializer
}

func newWorkflow(t *testing.T, tdb *TestDB) *workflow {
	t.Helper()

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	txScope := persistence.NewGormTransactionScope(tdb.DB, event.NewOutboxWriter(serializer, 0))

	return &workflow{
		db: tdb,
		orders: apptrade.NewOrderService(
			persistence.NewGormAccountRepository(tdb.DB),
			persistence.NewGormOrderRepository(tdb.DB),
			persistence.NewGormOrderLineRepository(tdb.DB),
			txScope,
			nil,
		),
		carts: appcart.NewCartService(
			persistence.NewGormCartRepository(tdb.DB),
			persistence.NewGormCartLineRepository(tdb.DB),
			txScope,
			nil,
		),
		outbox: event.NewGormOutboxRepository(tdb.DB),
		serial: serializer,
	}
}

func (w *workflow) pendingTypes(t *testing.T) []string {
	t.Helper()
	entries, err := w.outbox.ListByStatus(context.Background(), shared.OutboxStatusPending, 100)
	require.NoError(t, err)
	types := make([]string, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.EventType)
	}
	return types
}

func TestOrderWorkflow_Postgres(t *testing.T) {
	tdb := NewTestDB(t)
	w := newWorkflow(t, tdb)
	ctx := context.Background()

	buyer := tdb.CreateAccount("Farmacia Centro", identity.RoleBuyer)
	seller := tdb.CreateAccount("Distribuidora Norte", identity.RoleSeller)
	paracetamol := tdb.CreateStockItem(seller.ID, "Paracetamol 500mg", 10, "2.50")
	ibuprofen := tdb.CreateStockItem(seller.ID, "Ibuprofen 400mg", 6, "3.10")
	// The buyer already stocks ibuprofen, so delivery merges into it
	ownIbuprofen := tdb.CreateStockItem(buyer.ID, "Ibuprofen 400mg", 1, "3.40")

	order, err := w.orders.Create(ctx, buyer, apptrade.CreateOrderRequest{
		SellerID: seller.ID,
		Note:     "Monday delivery",
		Lines: []apptrade.OrderLineInput{
			{StockItemID: paracetamol.ID, Quantity: 4},
			{StockItemID: ibuprofen.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusDrafting.String(), order.Status)
	assert.Len(t, order.Lines, 2)

	order, err = w.orders.AdvanceStatus(ctx, buyer, order.ID, trade.OrderStatusPending.String())
	require.NoError(t, err)
	assert.Equal(t, 10, tdb.OnHand(paracetamol.ID), "submitting reserves nothing")

	_, err = w.orders.AdvanceStatus(ctx, buyer, order.ID, trade.OrderStatusInDelivery.String())
	assert.True(t, errors.Is(err, shared.ErrUnauthorized), "only the seller ships")

	order, err = w.orders.AdvanceStatus(ctx, seller, order.ID, trade.OrderStatusInDelivery.String())
	require.NoError(t, err)
	assert.Equal(t, 6, tdb.OnHand(paracetamol.ID))
	assert.Equal(t, 4, tdb.OnHand(ibuprofen.ID))
	require.NotNil(t, order.ShippedAt)

	order, err = w.orders.AdvanceStatus(ctx, buyer, order.ID, trade.OrderStatusDelivered.String())
	require.NoError(t, err)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, 3, tdb.OnHand(ownIbuprofen.ID))

	cloned, err := items(tdb).FindByOwnerAndNameForUpdate(ctx, buyer.ID, "Paracetamol 500mg")
	require.NoError(t, err)
	assert.Equal(t, 4, cloned.QuantityOnHand)
	assert.True(t, cloned.Details.PublicPrice.Equal(paracetamol.Details.PublicPrice))

	_, err = w.orders.AdvanceStatus(ctx, seller, order.ID, trade.OrderStatusDelivered.String())
	assert.True(t, errors.Is(err, shared.ErrInvalidTransition), "delivered is final")

	assert.ElementsMatch(t, []string{
		trade.EventTypeOrderCreated,
		trade.EventTypeOrderSubmitted,
		inventory.EventTypeStockReserved,
		inventory.EventTypeStockReserved,
		trade.EventTypeOrderShipped,
		inventory.EventTypeStockMerged,
		inventory.EventTypeStockMerged,
		trade.EventTypeOrderDelivered,
	}, w.pendingTypes(t))
}

func TestOrderWorkflow_ShipmentRollsBackOnShortLine(t *testing.T) {
	tdb := NewTestDB(t)
	w := newWorkflow(t, tdb)
	ctx := context.Background()

	buyer := tdb.CreateAccount("Farmacia Sur", identity.RoleBuyer)
	seller := tdb.CreateAccount("Droguería Oeste", identity.RoleSeller)
	amoxicillin := tdb.CreateStockItem(seller.ID, "Amoxicillin 875mg", 5, "7.20")
	loratadine := tdb.CreateStockItem(seller.ID, "Loratadine 10mg", 3, "1.90")

	order, err := w.orders.Create(ctx, buyer, apptrade.CreateOrderRequest{
		SellerID: seller.ID,
		Lines: []apptrade.OrderLineInput{
			{StockItemID: amoxicillin.ID, Quantity: 5},
			{StockItemID: loratadine.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	_, err = w.orders.AdvanceStatus(ctx, buyer, order.ID, trade.OrderStatusPending.String())
	require.NoError(t, err)

	// Another sale drains loratadine after the order was placed
	_, err = items(tdb).DecrementIfAvailable(ctx, loratadine.ID, 2)
	require.NoError(t, err)

	_, err = w.orders.AdvanceStatus(ctx, seller, order.ID, trade.OrderStatusInDelivery.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

	assert.Equal(t, 5, tdb.OnHand(amoxicillin.ID), "first line is rolled back")
	assert.Equal(t, 1, tdb.OnHand(loratadine.ID))

	current, err := w.orders.Get(ctx, seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusPending.String(), current.Status)
}

func TestCartWorkflow_Postgres(t *testing.T) {
	tdb := NewTestDB(t)
	w := newWorkflow(t, tdb)
	ctx := context.Background()

	buyer := tdb.CreateAccount("Farmacia Centro", identity.RoleBuyer)
	aspirin := tdb.CreateStockItem(buyer.ID, "Aspirin 100mg", 12, "1.25")
	omeprazole := tdb.CreateStockItem(buyer.ID, "Omeprazole 20mg", 4, "4.00")

	line, err := w.carts.AddLine(ctx, buyer, appcart.CartLineInput{StockItemID: aspirin.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, tdb.OnHand(aspirin.ID))

	_, err = w.carts.UpdateLine(ctx, buyer, line.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, tdb.OnHand(aspirin.ID), "lowering a line releases the difference")

	_, err = w.carts.AddLine(ctx, buyer, appcart.CartLineInput{StockItemID: omeprazole.ID, Quantity: 5})
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.Equal(t, 4, tdb.OnHand(omeprazole.ID))

	checked, err := w.carts.Checkout(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, string(cart.ModeIncremental), checked.Mode)
	assert.Equal(t, "2.5", checked.TotalAmount.String())

	submitted, err := w.carts.Submit(ctx, buyer, appcart.SubmitCartRequest{Items: []appcart.CartLineInput{
		{StockItemID: aspirin.ID, Quantity: 3},
		{StockItemID: omeprazole.ID, Quantity: 4},
	}})
	require.NoError(t, err)
	assert.Equal(t, string(cart.ModeBatch), submitted.Mode)
	assert.Equal(t, 7, tdb.OnHand(aspirin.ID))
	assert.Equal(t, 0, tdb.OnHand(omeprazole.ID))

	history, err := w.carts.List(ctx, buyer, appcart.CartListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, history.Total)

	types := w.pendingTypes(t)
	assert.Contains(t, types, cart.EventTypeCartCheckedOut)
	assert.Contains(t, types, cart.EventTypeCartSubmitted)
	assert.Contains(t, types, inventory.EventTypeStockReleased)
}

func TestOutboxRelay_DeliversRecordedEvents(t *testing.T) {
	tdb := NewTestDB(t)
	w := newWorkflow(t, tdb)
	ctx := context.Background()

	buyer := tdb.CreateAccount("Farmacia Norte", identity.RoleBuyer)
	item := tdb.CreateStockItem(buyer.ID, "Cetirizine 10mg", 8, "2.00")
	_, err := w.carts.Submit(ctx, buyer, appcart.SubmitCartRequest{Items: []appcart.CartLineInput{
		{StockItemID: item.ID, Quantity: 3},
	}})
	require.NoError(t, err)

	bus := event.NewInMemoryEventBus(zaptest.NewLogger(t))
	recorder := testutil.NewEventRecorder(inventory.EventTypeStockReserved, cart.EventTypeCartSubmitted)
	bus.Subscribe(recorder)

	processor := event.NewOutboxProcessor(w.outbox, bus, w.serial, event.OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: 50 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, processor.Start(ctx))
	t.Cleanup(func() { _ = processor.Stop(context.Background()) })

	recorder.WaitFor(t, 2, 5*time.Second)
	require.Len(t, recorder.OfType(cart.EventTypeCartSubmitted), 1)
	require.Len(t, recorder.OfType(inventory.EventTypeStockReserved), 1)
	reserved, ok := recorder.OfType(inventory.EventTypeStockReserved)[0].(*inventory.StockReservedEvent)
	require.True(t, ok)
	assert.Equal(t, item.ID, reserved.StockItemID)
	assert.Equal(t, 3, reserved.Quantity)
	assert.Equal(t, 5, reserved.Remaining)

	testutil.RequireEventually(t, func() bool {
		counts, err := w.outbox.CountByStatus(ctx)
		return err == nil && counts[shared.OutboxStatusPending] == 0 && counts[shared.OutboxStatusProcessing] == 0
	}, 5*time.Second, 50*time.Millisecond, "outbox drained")
}

func items(tdb *TestDB) *persistence.GormStockItemRepository {
	return persistence.NewGormStockItemRepository(tdb.DB)
}
