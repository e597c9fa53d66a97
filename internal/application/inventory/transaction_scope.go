package inventory

import (
	"context"

	"github.com/pharmanet/backend/internal/domain/cart"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/domain/trade"
)

// TransactionScope runs a unit of work in one database transaction. Every
// operation that moves stock goes through it, so the ledger movement, the
// document rows and the outbox entries commit or roll back together.
type TransactionScope interface {
	// Execute runs fn in a transaction. A non-nil error from fn rolls back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to the current
// transaction. Orders and carts are stored as separate line tables, so
// each table has its own repository.
type TransactionalRepositories interface {
	StockItems() inventory.StockItemRepository
	Alerts() inventory.StockAlertRepository
	Orders() trade.OrderRepository
	OrderLines() trade.OrderLineRepository
	Carts() cart.CartRepository
	CartLines() cart.CartLineRepository

	// RecordEvents writes events to the outbox in the same transaction
	RecordEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// Ledger returns a stock ledger bound to the transaction
func Ledger(repos TransactionalRepositories) *inventory.Ledger {
	return inventory.NewLedger(repos.StockItems())
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Events are handed to the publisher, if any, instead of an outbox. It is
// meant for tests.
type NoOpTransactionScope struct {
	stockItems inventory.StockItemRepository
	alerts     inventory.StockAlertRepository
	orders     trade.OrderRepository
	orderLines trade.OrderLineRepository
	carts      cart.CartRepository
	cartLines  cart.CartLineRepository
	publisher  shared.EventPublisher
	recorded   []shared.DomainEvent
}

// NoOpRepositories bundles the repositories for a NoOpTransactionScope
type NoOpRepositories struct {
	StockItems inventory.StockItemRepository
	Alerts     inventory.StockAlertRepository
	Orders     trade.OrderRepository
	OrderLines trade.OrderLineRepository
	Carts      cart.CartRepository
	CartLines  cart.CartLineRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(r NoOpRepositories, publisher shared.EventPublisher) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		stockItems: r.StockItems,
		alerts:     r.Alerts,
		orders:     r.Orders,
		orderLines: r.OrderLines,
		carts:      r.Carts,
		cartLines:  r.CartLines,
		publisher:  publisher,
	}
}

func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) StockItems() inventory.StockItemRepository { return s.stockItems }
func (s *NoOpTransactionScope) Alerts() inventory.StockAlertRepository    { return s.alerts }
func (s *NoOpTransactionScope) Orders() trade.OrderRepository             { return s.orders }
func (s *NoOpTransactionScope) OrderLines() trade.OrderLineRepository     { return s.orderLines }
func (s *NoOpTransactionScope) Carts() cart.CartRepository                { return s.carts }
func (s *NoOpTransactionScope) CartLines() cart.CartLineRepository        { return s.cartLines }

func (s *NoOpTransactionScope) RecordEvents(ctx context.Context, events ...shared.DomainEvent) error {
	s.recorded = append(s.recorded, events...)
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, events...)
}

// Recorded returns every event recorded so far
func (s *NoOpTransactionScope) Recorded() []shared.DomainEvent {
	return s.recorded
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
