package handler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appcart "github.com/pharmanet/backend/internal/application/cart"
	appevent "github.com/pharmanet/backend/internal/application/event"
	appidentity "github.com/pharmanet/backend/internal/application/identity"
	appinv "github.com/pharmanet/backend/internal/application/inventory"
	apptrade "github.com/pharmanet/backend/internal/application/trade"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/infrastructure/auth"
	"github.com/pharmanet/backend/internal/infrastructure/config"
	"github.com/pharmanet/backend/internal/infrastructure/event"
	"github.com/pharmanet/backend/internal/infrastructure/persistence"
	"github.com/pharmanet/backend/internal/interfaces/http/middleware"
	"github.com/pharmanet/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	middleware.SetupValidator()
}

// env wires every handler to real services over a private SQLite database
type env struct {
	db       *gorm.DB
	items    *persistence.GormStockItemRepository
	accounts *persistence.GormAccountRepository
	jwt      *auth.JWTService

	auth      *AuthHandler
	inventory *InventoryHandler
	trade     *TradeHandler
	cart      *CartHandler
	outbox    *appevent.OutboxService

	buyer  identity.Caller
	seller identity.Caller
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	txScope := persistence.NewGormTransactionScope(db, event.NewOutboxWriter(serializer, 0))

	e := &env{
		db:       db,
		items:    persistence.NewGormStockItemRepository(db),
		accounts: persistence.NewGormAccountRepository(db),
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "handler-test-secret-0123456789abcdef",
			RefreshSecret:          "handler-test-refresh-0123456789abcdef",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: 24 * time.Hour,
			Issuer:                 "pharmanet-test",
			MaxRefreshCount:        3,
		}),
	}
	orders := persistence.NewGormOrderRepository(db)
	orderLines := persistence.NewGormOrderLineRepository(db)

	accountService := appidentity.NewAccountService(e.accounts, e.jwt, auth.NewInMemoryTokenBlacklist(), nil, nil)
	e.auth = NewAuthHandler(accountService)
	e.inventory = NewInventoryHandler(
		appinv.NewStockItemService(e.items, txScope, nil),
		appinv.NewAlertService(persistence.NewGormStockAlertRepository(db), e.items),
	)
	e.trade = NewTradeHandler(apptrade.NewOrderService(e.accounts, orders, orderLines, txScope, nil), nil)
	e.cart = NewCartHandler(appcart.NewCartService(
		persistence.NewGormCartRepository(db),
		persistence.NewGormCartLineRepository(db),
		txScope,
		nil,
	))
	e.outbox = appevent.NewOutboxService(event.NewGormOutboxRepository(db), nil)

	e.buyer = e.account(t, "Farmacia Centro", "centro@example.com", identity.RoleBuyer)
	e.seller = e.account(t, "Distribuidora Norte", "norte@example.com", identity.RoleSeller)
	return e
}

func (e *env) account(t *testing.T, name, email string, role identity.Role) identity.Caller {
	t.Helper()
	acc, err := identity.NewAccount(name, email, "correct-horse", role)
	require.NoError(t, err)
	require.NoError(t, e.accounts.Save(context.Background(), acc))
	return identity.NewCaller(acc.ID, role)
}

func (e *env) stock(t *testing.T, owner uuid.UUID, name string, qty int) *inventory.StockItem {
	t.Helper()
	item, err := inventory.NewStockItem(owner, name, qty, inventory.StockItemDetails{
		Presentation: "Box of 20",
		PublicPrice:  decimal.RequireFromString("2.50"),
	})
	require.NoError(t, err)
	require.NoError(t, e.items.Save(context.Background(), item))
	return item
}

func (e *env) onHand(t *testing.T, id uuid.UUID) int {
	t.Helper()
	item, err := e.items.FindByID(context.Background(), id)
	require.NoError(t, err)
	return item.QuantityOnHand
}

func callerPtr(c identity.Caller) *identity.Caller {
	return &c
}
