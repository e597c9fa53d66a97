package cart

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarts(t *testing.T) {
	owner := uuid.New()

	open, err := NewIncrementalCart(owner)
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, open.Mode)
	assert.Equal(t, "OPEN", open.Status())
	assert.NoError(t, open.RequireOpen())

	batch, err := NewBatchCart(owner, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, ModeBatch, batch.Mode)
	assert.True(t, batch.Closed)
	assert.NotNil(t, batch.ClosedAt)
	assert.True(t, errors.Is(batch.RequireOpen(), shared.ErrInvalidTransition))

	_, err = NewIncrementalCart(uuid.Nil)
	assert.Error(t, err)
}

func TestCart_RequireOwner(t *testing.T) {
	owner := identity.NewCaller(uuid.New(), identity.RoleBuyer)
	c, err := NewIncrementalCart(owner.ID)
	require.NoError(t, err)

	assert.NoError(t, c.RequireOwner(owner, "edit cart"))
	other := identity.NewCaller(uuid.New(), identity.RoleBuyer)
	assert.True(t, errors.Is(c.RequireOwner(other, "edit cart"), shared.ErrUnauthorized))
}

func TestCart_Checkout(t *testing.T) {
	owner := uuid.New()

	t.Run("closes with total", func(t *testing.T) {
		c, _ := NewIncrementalCart(owner)
		line, err := NewCartLine(c.ID, uuid.New(), 2)
		require.NoError(t, err)

		require.NoError(t, c.Checkout(owner, []CartLine{*line}, decimal.NewFromInt(25)))
		assert.True(t, c.Closed)
		assert.True(t, decimal.NewFromInt(25).Equal(c.TotalAmount))
		require.Len(t, c.PendingEvents(), 1)
		assert.Equal(t, EventTypeCartCheckedOut, c.PendingEvents()[0].EventType())
	})

	t.Run("empty cart cannot be checked out", func(t *testing.T) {
		c, _ := NewIncrementalCart(owner)
		assert.True(t, errors.Is(c.Checkout(owner, nil, decimal.Zero), shared.ErrInvalidTransition))
		assert.False(t, c.Closed)
	})

	t.Run("closed cart cannot be checked out again", func(t *testing.T) {
		c, _ := NewBatchCart(owner, decimal.Zero)
		line, _ := NewCartLine(c.ID, uuid.New(), 1)
		assert.True(t, errors.Is(c.Checkout(owner, []CartLine{*line}, decimal.Zero), shared.ErrInvalidTransition))
	})
}

func TestCartLine_Resize(t *testing.T) {
	line, err := NewCartLine(uuid.New(), uuid.New(), 5)
	require.NoError(t, err)

	delta, err := line.Resize(8)
	require.NoError(t, err)
	assert.Equal(t, 3, delta)

	delta, err = line.Resize(8)
	require.NoError(t, err)
	assert.Zero(t, delta)

	delta, err = line.Resize(2)
	require.NoError(t, err)
	assert.Equal(t, -6, delta)
	assert.Equal(t, 2, line.Quantity)

	_, err = line.Resize(0)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.Equal(t, 2, line.Quantity)

	_, err = NewCartLine(uuid.New(), uuid.New(), -1)
	assert.Error(t, err)
}
