package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appinv "github.com/pharmanet/backend/internal/application/inventory"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/domain/trade"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/pharmanet/backend/internal/application/trade")

// OrderService runs the order workflow: placement, the status machine and
// the stock movements tied to shipping and delivery
type OrderService struct {
	accounts identity.AccountRepository
	orders   trade.OrderRepository
	lines    trade.OrderLineRepository
	txScope  appinv.TransactionScope
	logger   *zap.Logger
	recorder appinv.WorkflowRecorder
}

// NewOrderService creates a new OrderService
func NewOrderService(
	accounts identity.AccountRepository,
	orders trade.OrderRepository,
	lines trade.OrderLineRepository,
	txScope appinv.TransactionScope,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		accounts: accounts,
		orders:   orders,
		lines:    lines,
		txScope:  txScope,
		logger:   logger,
		recorder: appinv.NoopRecorder{},
	}
}

// SetRecorder sets the business metrics recorder
func (s *OrderService) SetRecorder(recorder appinv.WorkflowRecorder) {
	if recorder != nil {
		s.recorder = recorder
	}
}

// Create places a DRAFTING order. Every line must reference an item owned by
// the seller with enough quantity on hand; nothing is reserved yet.
func (s *OrderService) Create(ctx context.Context, caller identity.Caller, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if err := caller.RequireRole(identity.RoleBuyer, "create order"); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, shared.NewInvalidInputError("lines", "Order must have at least one line")
	}

	seller, err := s.accounts.FindByID(ctx, req.SellerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("seller", req.SellerID)
		}
		return nil, err
	}
	if seller.Role != identity.RoleSeller {
		return nil, shared.NewNotFoundError("seller", req.SellerID)
	}

	order, err := trade.NewOrder(caller.ID, seller.ID, req.Note)
	if err != nil {
		return nil, err
	}
	lines := make([]trade.OrderLine, 0, len(req.Lines))
	for i, in := range req.Lines {
		line, err := order.NewLine(in.StockItemID, in.Quantity)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return nil, de.WithDetail("line", i)
			}
			return nil, err
		}
		lines = append(lines, *line)
	}

	err = s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if err := checkLines(ctx, repos.StockItems(), seller.ID, lines); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		if err := repos.OrderLines().SaveBatch(ctx, lines); err != nil {
			return err
		}
		order.Place(lines)
		return repos.RecordEvents(ctx, order.PendingEvents()...)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	order.ClearEvents()

	span.SetAttributes(attribute.String("order.id", order.ID.String()), attribute.Int("order.lines", len(lines)))
	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID.String()),
		zap.String("seller_id", order.SellerID.String()),
		zap.Int("lines", len(lines)),
	)
	resp := ToOrderResponse(order, lines)
	return &resp, nil
}

// AdvanceStatus moves the order one step forward. Shipping reserves every line
// from the seller's stock and delivery merges every line into the buyer's
// stock; either happens entirely or not at all.
func (s *OrderService) AdvanceStatus(ctx context.Context, caller identity.Caller, orderID uuid.UUID, target string) (*OrderResponse, error) {
	ctx, span := tracer.Start(ctx, "OrderService.AdvanceStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()), attribute.String("order.target_status", target))

	var (
		order       *trade.Order
		lines       []trade.OrderLine
		from        trade.OrderStatus
		stockEvents []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		order, err = repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if err := order.RequireParty(caller, "move order to "+target); err != nil {
			return err
		}
		to, err := trade.ParseOrderStatus(target)
		if err != nil {
			return shared.NewInvalidTransitionError(order.Status.String(), target)
		}
		if err := order.CheckTransition(caller, to); err != nil {
			return err
		}
		if lines, err = repos.OrderLines().FindByOrder(ctx, order.ID); err != nil {
			return err
		}

		stockEvents = nil
		switch to {
		case trade.OrderStatusPending:
			if len(lines) == 0 {
				return shared.NewInvalidInputError("lines", "Order has no lines")
			}
		case trade.OrderStatusInDelivery:
			if stockEvents, err = s.reserveLines(ctx, repos, order, lines, caller.ID); err != nil {
				return err
			}
		case trade.OrderStatusDelivered:
			if stockEvents, err = s.mergeLines(ctx, repos, order, lines, caller.ID); err != nil {
				return err
			}
		}

		if err := order.TransitionTo(caller, to, lines); err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, order); err != nil {
			return err
		}
		events := append(stockEvents, order.PendingEvents()...)
		return repos.RecordEvents(ctx, events...)
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) {
			s.recorder.RecordStockRejection(ctx, string(inventory.SourceOrder))
			s.logger.Warn("order shipment rejected",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	order.ClearEvents()

	appinv.RecordLedgerEvents(ctx, s.recorder, stockEvents)
	s.recorder.RecordOrderTransition(ctx, from.String(), order.Status.String())
	s.logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", from.String()),
		zap.String("to", order.Status.String()),
		zap.String("actor_id", caller.ID.String()),
	)
	resp := ToOrderResponse(order, lines)
	return &resp, nil
}

func (s *OrderService) reserveLines(ctx context.Context, repos appinv.TransactionalRepositories, order *trade.Order, lines []trade.OrderLine, actorID uuid.UUID) ([]shared.DomainEvent, error) {
	ledger := appinv.Ledger(repos)
	src := inventory.Source{Type: inventory.SourceOrder, ID: order.ID, ActorID: actorID}
	events := make([]shared.DomainEvent, 0, len(lines))
	for _, line := range lines {
		ev, err := ledger.Reserve(ctx, line.StockItemID, line.Quantity, src)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *OrderService) mergeLines(ctx context.Context, repos appinv.TransactionalRepositories, order *trade.Order, lines []trade.OrderLine, actorID uuid.UUID) ([]shared.DomainEvent, error) {
	ledger := appinv.Ledger(repos)
	src := inventory.Source{Type: inventory.SourceOrder, ID: order.ID, ActorID: actorID}
	events := make([]shared.DomainEvent, 0, len(lines))
	for _, line := range lines {
		source, err := repos.StockItems().FindByID(ctx, line.StockItemID)
		if err != nil {
			return nil, err
		}
		_, ev, err := ledger.MergeIncoming(ctx, order.BuyerID, source, line.Quantity, src)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Get returns an order and its lines to either party
func (s *OrderService) Get(ctx context.Context, caller identity.Caller, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.RequireParty(caller, "view order"); err != nil {
		return nil, err
	}
	lines, err := s.lines.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order, lines)
	return &resp, nil
}

// ListForBuyer lists the caller's purchases
func (s *OrderService) ListForBuyer(ctx context.Context, caller identity.Caller, filter OrderListFilter) (shared.Paginated[OrderResponse], error) {
	if err := caller.RequireRole(identity.RoleBuyer, "list purchases"); err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	return s.list(ctx, filter, func(f shared.Filter) ([]trade.Order, int64, error) {
		orders, err := s.orders.FindByBuyer(ctx, caller.ID, f)
		if err != nil {
			return nil, 0, err
		}
		total, err := s.orders.CountByBuyer(ctx, caller.ID, f)
		return orders, total, err
	})
}

// ListForSeller lists the caller's sales
func (s *OrderService) ListForSeller(ctx context.Context, caller identity.Caller, filter OrderListFilter) (shared.Paginated[OrderResponse], error) {
	if err := caller.RequireRole(identity.RoleSeller, "list sales"); err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	return s.list(ctx, filter, func(f shared.Filter) ([]trade.Order, int64, error) {
		orders, err := s.orders.FindBySeller(ctx, caller.ID, f)
		if err != nil {
			return nil, 0, err
		}
		total, err := s.orders.CountBySeller(ctx, caller.ID, f)
		return orders, total, err
	})
}

func (s *OrderService) list(ctx context.Context, filter OrderListFilter, query func(shared.Filter) ([]trade.Order, int64, error)) (shared.Paginated[OrderResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}.Normalize()
	if filter.Status != "" {
		status, err := trade.ParseOrderStatus(filter.Status)
		if err != nil {
			return shared.Paginated[OrderResponse]{}, err
		}
		f.Filters["status"] = status
	}

	orders, total, err := query(f)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	linesByOrder, err := s.lines.FindByOrders(ctx, ids)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}

	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i], linesByOrder[orders[i].ID])
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// checkLines verifies ownership and a read-only availability check against
// the summed quantity per item
func checkLines(ctx context.Context, items inventory.StockItemRepository, sellerID uuid.UUID, lines []trade.OrderLine) error {
	totals := trade.QuantitiesByItem(lines)
	ids := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	found, err := items.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*inventory.StockItem, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	for _, line := range lines {
		item, ok := byID[line.StockItemID]
		if !ok {
			return shared.NewNotFoundError("stock item", line.StockItemID)
		}
		if err := item.RequireOwner(sellerID); err != nil {
			return err
		}
		if err := item.RequireAvailable(totals[item.ID]); err != nil {
			return err
		}
	}
	return nil
}
