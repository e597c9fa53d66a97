package inventory

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memItems mirrors the conditional-update semantics of the SQL repository
type memItems struct {
	items map[uuid.UUID]*StockItem
}

func newMemItems(items ...*StockItem) *memItems {
	m := &memItems{items: make(map[uuid.UUID]*StockItem)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *memItems) FindByID(_ context.Context, id uuid.UUID) (*StockItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memItems) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]StockItem, error) {
	out := make([]StockItem, 0, len(ids))
	for _, id := range ids {
		if it, err := m.FindByID(ctx, id); err == nil {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memItems) FindByOwner(_ context.Context, ownerID uuid.UUID, _ shared.Filter) ([]StockItem, error) {
	out := make([]StockItem, 0)
	for _, it := range m.items {
		if it.OwnerID == ownerID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memItems) CountByOwner(ctx context.Context, ownerID uuid.UUID, f shared.Filter) (int64, error) {
	items, _ := m.FindByOwner(ctx, ownerID, f)
	return int64(len(items)), nil
}

func (m *memItems) FindByOwnerAndNameForUpdate(_ context.Context, ownerID uuid.UUID, name string) (*StockItem, error) {
	matches := make([]*StockItem, 0)
	for _, it := range m.items {
		if it.OwnerID == ownerID && it.Name == name {
			matches = append(matches, it)
		}
	}
	if len(matches) == 0 {
		return nil, shared.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	cp := *matches[0]
	return &cp, nil
}

func (m *memItems) Save(_ context.Context, item *StockItem) error {
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memItems) SaveWithLock(ctx context.Context, item *StockItem) error {
	return m.Save(ctx, item)
}

func (m *memItems) DecrementIfAvailable(_ context.Context, id uuid.UUID, quantity int) (*StockItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, shared.NewNotFoundError("stock item", id)
	}
	if it.QuantityOnHand < quantity {
		return nil, shared.NewInsufficientStockError(id, it.QuantityOnHand, quantity)
	}
	it.QuantityOnHand -= quantity
	cp := *it
	return &cp, nil
}

func (m *memItems) Increment(_ context.Context, id uuid.UUID, quantity int) (*StockItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, shared.NewNotFoundError("stock item", id)
	}
	it.QuantityOnHand += quantity
	cp := *it
	return &cp, nil
}

var _ StockItemRepository = (*memItems)(nil)

func orderSource() Source {
	return Source{Type: SourceOrder, ID: uuid.New(), ActorID: uuid.New()}
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("debits and reports remaining", func(t *testing.T) {
		item := newTestItem(t, uuid.New(), 50)
		repo := newMemItems(item)
		ledger := NewLedger(repo)

		ev, err := ledger.Reserve(ctx, item.ID, 10, orderSource())
		require.NoError(t, err)
		assert.Equal(t, 10, ev.Quantity)
		assert.Equal(t, 40, ev.Remaining)
		assert.Equal(t, SourceOrder, ev.SourceType)
		assert.Equal(t, 40, repo.items[item.ID].QuantityOnHand)
	})

	t.Run("shortfall leaves balance unchanged", func(t *testing.T) {
		item := newTestItem(t, uuid.New(), 40)
		repo := newMemItems(item)

		_, err := NewLedger(repo).Reserve(ctx, item.ID, 41, orderSource())
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, shared.CodeInsufficientStock, de.Code)
		assert.Equal(t, 40, de.Details["available"])
		assert.Equal(t, 41, de.Details["requested"])
		assert.Equal(t, 40, repo.items[item.ID].QuantityOnHand)
	})

	t.Run("rejects non-positive and missing", func(t *testing.T) {
		ledger := NewLedger(newMemItems())
		_, err := ledger.Reserve(ctx, uuid.New(), 0, orderSource())
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		_, err = ledger.Reserve(ctx, uuid.New(), 1, orderSource())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestLedger_ReserveReleaseNeverNegative(t *testing.T) {
	ctx := context.Background()
	item := newTestItem(t, uuid.New(), 20)
	repo := newMemItems(item)
	ledger := NewLedger(repo)
	rng := rand.New(rand.NewSource(7))

	expected := 20
	for i := 0; i < 500; i++ {
		qty := rng.Intn(15) + 1
		if rng.Intn(2) == 0 {
			_, err := ledger.Reserve(ctx, item.ID, qty, orderSource())
			if qty > expected {
				require.True(t, errors.Is(err, shared.ErrInsufficientStock))
			} else {
				require.NoError(t, err)
				expected -= qty
			}
		} else {
			_, err := ledger.Release(ctx, item.ID, qty, orderSource())
			require.NoError(t, err)
			expected += qty
		}
		require.GreaterOrEqual(t, repo.items[item.ID].QuantityOnHand, 0)
		require.Equal(t, expected, repo.items[item.ID].QuantityOnHand)
	}
}

func TestLedger_MergeIncoming(t *testing.T) {
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()

	t.Run("creates clone when buyer has no such item", func(t *testing.T) {
		source := newTestItem(t, seller, 40)
		repo := newMemItems(source)

		target, ev, err := NewLedger(repo).MergeIncoming(ctx, buyer, source, 10, orderSource())
		require.NoError(t, err)
		assert.True(t, ev.Created)
		assert.Equal(t, buyer, target.OwnerID)
		assert.Equal(t, 10, target.QuantityOnHand)
		assert.Equal(t, source.Details.PublicPrice, target.Details.PublicPrice)
		assert.Len(t, repo.items, 2)
	})

	t.Run("increments existing same-named item", func(t *testing.T) {
		source := newTestItem(t, seller, 40)
		mine := newTestItem(t, buyer, 7)
		repo := newMemItems(source, mine)

		target, ev, err := NewLedger(repo).MergeIncoming(ctx, buyer, source, 10, orderSource())
		require.NoError(t, err)
		assert.False(t, ev.Created)
		assert.Equal(t, mine.ID, target.ID)
		assert.Equal(t, 17, repo.items[mine.ID].QuantityOnHand)
		assert.Equal(t, 40, repo.items[source.ID].QuantityOnHand)
	})

	t.Run("name match is exact", func(t *testing.T) {
		source := newTestItem(t, seller, 40)
		other, err := NewStockItem(buyer, "doliprane 500", 3, testDetails())
		require.NoError(t, err)
		repo := newMemItems(source, other)

		_, ev, err := NewLedger(repo).MergeIncoming(ctx, buyer, source, 10, orderSource())
		require.NoError(t, err)
		assert.True(t, ev.Created)
		assert.Equal(t, 3, repo.items[other.ID].QuantityOnHand)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, _, err := NewLedger(newMemItems()).MergeIncoming(ctx, buyer, newTestItem(t, seller, 1), 0, orderSource())
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}
