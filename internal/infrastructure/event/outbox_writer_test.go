package event

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxWriter_InsertsOneStatementPerBatch(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	writer := NewOutboxWriter(newTestSerializer(), 0)

	mockDB.Mock.ExpectBegin()
	mockDB.Mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mockDB.Mock.ExpectCommit()

	err := mockDB.DB.Transaction(func(tx *gorm.DB) error {
		return writer.Record(context.Background(), tx, newReservedEvent(1, 4), newReleasedEvent(1, 5))
	})
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestOutboxWriter_NoEventsTouchesNothing(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	writer := NewOutboxWriter(newTestSerializer(), 0)

	require.NoError(t, writer.Record(context.Background(), mockDB.DB))
	mockDB.ExpectationsWereMet(t)
}

func TestOutboxWriter_RejectsForeignTransaction(t *testing.T) {
	writer := NewOutboxWriter(newTestSerializer(), 0)

	err := writer.Record(context.Background(), "not a tx", newReservedEvent(1, 1))
	assert.ErrorContains(t, err, "got string")
}

func TestOutboxWriter_RowsFollowTransaction(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	writer := NewOutboxWriter(newTestSerializer(), 3)
	ctx := context.Background()

	errAbort := errors.New("insufficient stock")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := writer.Record(ctx, tx, newReservedEvent(2, 0)); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	pending, err := repo.ListByStatus(ctx, shared.OutboxStatusPending, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "rolled back with the transaction")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return writer.Record(ctx, tx, newReservedEvent(2, 6))
	}))
	pending, err = repo.ListByStatus(ctx, shared.OutboxStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, inventory.EventTypeStockReserved, pending[0].EventType)
	assert.Equal(t, 3, pending[0].MaxAttempts)
}
