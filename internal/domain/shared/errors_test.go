package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches sentinel by code", func(t *testing.T) {
		err := NewInsufficientStockError(uuid.New(), 3, 5)
		assert.True(t, errors.Is(err, ErrInsufficientStock))
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("reserve line: %w", NewNotFoundError("order", uuid.New()))
		assert.True(t, errors.Is(err, ErrNotFound))

		var domainErr *DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "order", domainErr.Details["resource"])
	})

	t.Run("does not match plain errors", func(t *testing.T) {
		assert.False(t, errors.Is(errors.New("NOT_FOUND"), ErrNotFound))
	})
}

func TestNewInsufficientStockError(t *testing.T) {
	itemID := uuid.New()
	err := NewInsufficientStockError(itemID, 40, 41)

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, 40, err.Details["available"])
	assert.Equal(t, 41, err.Details["requested"])
	assert.Equal(t, itemID.String(), err.Details["stock_item_id"])
	assert.Contains(t, err.Error(), "available 40, requested 41")
}

func TestNewInvalidTransitionError(t *testing.T) {
	err := NewInvalidTransitionError("DELIVERED", "PENDING")

	assert.Equal(t, CodeInvalidTransition, err.Code)
	assert.Equal(t, "DELIVERED", err.Details["current"])
	assert.Equal(t, "PENDING", err.Details["requested"])
}

func TestNewOwnershipMismatchError(t *testing.T) {
	item, expected, actual := uuid.New(), uuid.New(), uuid.New()
	err := NewOwnershipMismatchError(item, expected, actual)

	assert.True(t, errors.Is(err, ErrOwnershipMismatch))
	assert.Equal(t, expected.String(), err.Details["expected_owner_id"])
	assert.Equal(t, actual.String(), err.Details["actual_owner_id"])
}

func TestDomainError_WithDetail(t *testing.T) {
	base := NewInvalidInputError("quantity", "quantity must be positive")
	withLine := base.WithDetail("line", 2)

	assert.Equal(t, 2, withLine.Details["line"])
	assert.Equal(t, "quantity", withLine.Details["field"])
	_, ok := base.Details["line"]
	assert.False(t, ok, "original details must not be mutated")
}
