package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockStockAlertRepository struct {
	mock.Mock
}

func (m *MockStockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockAlert, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*inventory.StockAlert), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStockAlertRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]inventory.StockAlert, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]inventory.StockAlert), args.Error(1)
}

func (m *MockStockAlertRepository) FindByStockItem(ctx context.Context, stockItemID uuid.UUID) ([]inventory.StockAlert, error) {
	args := m.Called(ctx, stockItemID)
	return args.Get(0).([]inventory.StockAlert), args.Error(1)
}

func (m *MockStockAlertRepository) Save(ctx context.Context, alert *inventory.StockAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *MockStockAlertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type lowStockCounter struct {
	owners []string
}

func (c *lowStockCounter) RecordLowStockAlert(_ context.Context, ownerID string) {
	c.owners = append(c.owners, ownerID)
}

func reservedEvent(t *testing.T, owner uuid.UUID, qty, remaining int) *inventory.StockReservedEvent {
	t.Helper()
	item, err := inventory.NewStockItem(owner, "Omeprazole 20mg", remaining, inventory.StockItemDetails{})
	require.NoError(t, err)
	return inventory.NewStockReservedEvent(item, qty, inventory.Source{Type: inventory.SourceOrder, ID: uuid.New(), ActorID: owner})
}

func TestLowStockAlertHandler_ReportsCrossedThreshold(t *testing.T) {
	owner := uuid.New()
	ev := reservedEvent(t, owner, 5, 3)

	crossed, err := inventory.NewStockAlert(owner, "reorder omeprazole", 5, []uuid.UUID{ev.StockItemID})
	require.NoError(t, err)
	alreadyLow, err := inventory.NewStockAlert(owner, "critical", 20, []uuid.UUID{ev.StockItemID})
	require.NoError(t, err)
	notYet, err := inventory.NewStockAlert(owner, "watch", 2, []uuid.UUID{ev.StockItemID})
	require.NoError(t, err)

	repo := new(MockStockAlertRepository)
	repo.On("FindByStockItem", mock.Anything, ev.StockItemID).
		Return([]inventory.StockAlert{*crossed, *alreadyLow, *notYet}, nil)

	counter := &lowStockCounter{}
	handler := NewLowStockAlertHandler(repo, zap.NewNop()).WithRecorder(counter)

	require.NoError(t, handler.Handle(context.Background(), ev))

	// 8 -> 3 crosses 5 only; 20 was already breached and 2 is not reached
	assert.Equal(t, []string{owner.String()}, counter.owners)
	repo.AssertExpectations(t)
}

func TestLowStockAlertHandler_Errors(t *testing.T) {
	repo := new(MockStockAlertRepository)
	handler := NewLowStockAlertHandler(repo, zap.NewNop())

	assert.Equal(t, []string{inventory.EventTypeStockReserved}, handler.EventTypes())

	other := shared.NewBaseDomainEvent("StockReleased", "StockItem", uuid.New(), uuid.New())
	err := handler.Handle(context.Background(), &other)
	require.Error(t, err)

	ev := reservedEvent(t, uuid.New(), 1, 1)
	repo.On("FindByStockItem", mock.Anything, ev.StockItemID).
		Return([]inventory.StockAlert(nil), errors.New("db down"))
	assert.Error(t, handler.Handle(context.Background(), ev))
}

type ledgerRecorder struct {
	NoopRecorder
	reserved, released, merged, created int
}

func (r *ledgerRecorder) RecordStockReservation(_ context.Context, _ string, qty int) {
	r.reserved += qty
}
func (r *ledgerRecorder) RecordStockRelease(_ context.Context, _ string, qty int) { r.released += qty }
func (r *ledgerRecorder) RecordStockMerge(_ context.Context, created bool, qty int) {
	r.merged += qty
	if created {
		r.created++
	}
}

func TestRecordLedgerEvents(t *testing.T) {
	owner := uuid.New()
	item, err := inventory.NewStockItem(owner, "Loratadine 10mg", 10, inventory.StockItemDetails{})
	require.NoError(t, err)
	src := inventory.Source{Type: inventory.SourceCart, ID: uuid.New(), ActorID: owner}

	events := []shared.DomainEvent{
		inventory.NewStockReservedEvent(item, 4, src),
		inventory.NewStockReleasedEvent(item, 1, src),
		inventory.NewStockMergedEvent(item, item, 2, true, src),
		inventory.NewStockItemCreatedEvent(item, owner),
	}

	rec := &ledgerRecorder{}
	RecordLedgerEvents(context.Background(), rec, events)

	assert.Equal(t, 4, rec.reserved)
	assert.Equal(t, 1, rec.released)
	assert.Equal(t, 2, rec.merged)
	assert.Equal(t, 1, rec.created)
}
