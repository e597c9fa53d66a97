package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appinv "github.com/pharmanet/backend/internal/application/inventory"
	"github.com/pharmanet/backend/internal/domain/cart"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/pharmanet/backend/internal/application/cart")

// CartService reserves a buyer's own stock into carts. Every line holds its
// quantity debited from the ledger until the line is released or the cart
// is checked out.
type CartService struct {
	carts    cart.CartRepository
	lines    cart.CartLineRepository
	txScope  appinv.TransactionScope
	logger   *zap.Logger
	recorder appinv.WorkflowRecorder
}

// NewCartService creates a new CartService
func NewCartService(
	carts cart.CartRepository,
	lines cart.CartLineRepository,
	txScope appinv.TransactionScope,
	logger *zap.Logger,
) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		carts:    carts,
		lines:    lines,
		txScope:  txScope,
		logger:   logger,
		recorder: appinv.NoopRecorder{},
	}
}

// SetRecorder sets the business metrics recorder
func (s *CartService) SetRecorder(recorder appinv.WorkflowRecorder) {
	if recorder != nil {
		s.recorder = recorder
	}
}

// AddLine reserves quantity of one of the caller's items into their open
// cart, opening the cart if needed. An item already in the cart grows its
// existing line.
func (s *CartService) AddLine(ctx context.Context, caller identity.Caller, req CartLineInput) (*CartLineResponse, error) {
	ctx, span := tracer.Start(ctx, "CartService.AddLine")
	defer span.End()

	if err := caller.RequireRole(identity.RoleBuyer, "add cart line"); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, shared.NewInvalidInputError("quantity", "Quantity must be positive")
	}

	var (
		line   *cart.CartLine
		events []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		item, err := repos.StockItems().FindByID(ctx, req.StockItemID)
		if err != nil {
			return err
		}
		if err := item.RequireOwner(caller.ID); err != nil {
			return err
		}
		c, err := repos.Carts().GetOrCreateOpen(ctx, caller.ID)
		if err != nil {
			return err
		}
		if c, err = repos.Carts().FindByIDForUpdate(ctx, c.ID); err != nil {
			return err
		}
		if err := c.RequireOpen(); err != nil {
			return err
		}

		ev, err := appinv.Ledger(repos).Reserve(ctx, item.ID, req.Quantity, cartSource(c, caller))
		if err != nil {
			return err
		}
		events = []shared.DomainEvent{ev}

		line, err = repos.CartLines().FindByCartAndItem(ctx, c.ID, item.ID)
		switch {
		case err == nil:
			if _, err := line.Resize(line.Quantity + req.Quantity); err != nil {
				return err
			}
		case errors.Is(err, shared.ErrNotFound):
			if line, err = cart.NewCartLine(c.ID, item.ID, req.Quantity); err != nil {
				return err
			}
		default:
			return err
		}
		if err := repos.CartLines().Save(ctx, line); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, events...)
	})
	if err != nil {
		s.fail(ctx, span, err)
		return nil, err
	}

	appinv.RecordLedgerEvents(ctx, s.recorder, events)
	s.logger.Info("cart line reserved",
		zap.String("cart_id", line.CartID.String()),
		zap.String("stock_item_id", line.StockItemID.String()),
		zap.Int("quantity", req.Quantity),
		zap.Int("line_quantity", line.Quantity),
	)
	resp := ToCartLineResponse(line)
	return &resp, nil
}

// UpdateLine sets a line's quantity, reserving or releasing the difference
func (s *CartService) UpdateLine(ctx context.Context, caller identity.Caller, lineID uuid.UUID, quantity int) (*CartLineResponse, error) {
	ctx, span := tracer.Start(ctx, "CartService.UpdateLine")
	defer span.End()

	var (
		line   *cart.CartLine
		events []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var (
			c   *cart.Cart
			err error
		)
		if c, line, err = s.openLine(ctx, repos, caller, lineID, "update cart line"); err != nil {
			return err
		}
		delta, err := line.Resize(quantity)
		if err != nil {
			return err
		}

		events = nil
		ledger := appinv.Ledger(repos)
		switch {
		case delta > 0:
			ev, err := ledger.Reserve(ctx, line.StockItemID, delta, cartSource(c, caller))
			if err != nil {
				return err
			}
			events = append(events, ev)
		case delta < 0:
			ev, err := ledger.Release(ctx, line.StockItemID, -delta, cartSource(c, caller))
			if err != nil {
				return err
			}
			events = append(events, ev)
		default:
			return nil
		}
		if err := repos.CartLines().Save(ctx, line); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, events...)
	})
	if err != nil {
		s.fail(ctx, span, err)
		return nil, err
	}

	appinv.RecordLedgerEvents(ctx, s.recorder, events)
	resp := ToCartLineResponse(line)
	return &resp, nil
}

// DeleteLine releases a line's full quantity and removes it. The cart stays
// open even when it becomes empty.
func (s *CartService) DeleteLine(ctx context.Context, caller identity.Caller, lineID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "CartService.DeleteLine")
	defer span.End()

	var events []shared.DomainEvent
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		c, line, err := s.openLine(ctx, repos, caller, lineID, "delete cart line")
		if err != nil {
			return err
		}
		ev, err := appinv.Ledger(repos).Release(ctx, line.StockItemID, line.Quantity, cartSource(c, caller))
		if err != nil {
			return err
		}
		events = []shared.DomainEvent{ev}
		if err := repos.CartLines().Delete(ctx, line.ID); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, events...)
	})
	if err != nil {
		s.fail(ctx, span, err)
		return err
	}

	appinv.RecordLedgerEvents(ctx, s.recorder, events)
	return nil
}

// Submit reserves every requested item in one transaction and stores the
// result as a closed BATCH cart. The caller's open cart is not touched.
func (s *CartService) Submit(ctx context.Context, caller identity.Caller, req SubmitCartRequest) (*CartResponse, error) {
	ctx, span := tracer.Start(ctx, "CartService.Submit")
	defer span.End()

	if err := caller.RequireRole(identity.RoleBuyer, "submit cart"); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, shared.NewInvalidInputError("items", "At least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	for i, in := range req.Items {
		if _, dup := seen[in.StockItemID]; dup {
			return nil, shared.NewInvalidInputError("items", "Duplicate stock item").
				WithDetail("line", i).
				WithDetail("stock_item_id", in.StockItemID.String())
		}
		seen[in.StockItemID] = struct{}{}
		if in.Quantity <= 0 {
			return nil, shared.NewInvalidInputError("quantity", "Quantity must be positive").WithDetail("line", i)
		}
	}

	var (
		c           *cart.Cart
		lines       []cart.CartLine
		stockEvents []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		ids := make([]uuid.UUID, len(req.Items))
		for i, in := range req.Items {
			ids[i] = in.StockItemID
		}
		items, err := ownedItems(ctx, repos, caller, ids)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, in := range req.Items {
			total = total.Add(items[in.StockItemID].Details.PublicPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))
		}
		if c, err = cart.NewBatchCart(caller.ID, total); err != nil {
			return err
		}

		ledger := appinv.Ledger(repos)
		src := cartSource(c, caller)
		stockEvents = make([]shared.DomainEvent, 0, len(req.Items))
		lines = make([]cart.CartLine, 0, len(req.Items))
		for _, in := range req.Items {
			ev, err := ledger.Reserve(ctx, in.StockItemID, in.Quantity, src)
			if err != nil {
				return err
			}
			stockEvents = append(stockEvents, ev)
			line, err := cart.NewCartLine(c.ID, in.StockItemID, in.Quantity)
			if err != nil {
				return err
			}
			lines = append(lines, *line)
		}

		if err := repos.Carts().Save(ctx, c); err != nil {
			return err
		}
		if err := repos.CartLines().SaveBatch(ctx, lines); err != nil {
			return err
		}
		c.Submitted(caller.ID, lines)
		return repos.RecordEvents(ctx, append(stockEvents, c.PendingEvents()...)...)
	})
	if err != nil {
		s.fail(ctx, span, err)
		return nil, err
	}
	c.ClearEvents()

	appinv.RecordLedgerEvents(ctx, s.recorder, stockEvents)
	span.SetAttributes(attribute.String("cart.id", c.ID.String()), attribute.Int("cart.lines", len(lines)))
	s.logger.Info("cart submitted",
		zap.String("cart_id", c.ID.String()),
		zap.String("owner_id", c.OwnerID.String()),
		zap.Int("lines", len(lines)),
		zap.String("total_amount", c.TotalAmount.String()),
	)
	resp := ToCartResponse(c, lines)
	return &resp, nil
}

// ListOpenLines returns the lines of the caller's open cart, or none
func (s *CartService) ListOpenLines(ctx context.Context, caller identity.Caller) ([]CartLineResponse, error) {
	if err := caller.RequireRole(identity.RoleBuyer, "list cart lines"); err != nil {
		return nil, err
	}
	c, err := s.carts.FindOpenByOwner(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return []CartLineResponse{}, nil
		}
		return nil, err
	}
	lines, err := s.lines.FindByCart(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return ToCartLineResponses(lines), nil
}

// Checkout closes the caller's open cart at the current public prices. The
// reserved stock stays debited.
func (s *CartService) Checkout(ctx context.Context, caller identity.Caller) (*CartResponse, error) {
	ctx, span := tracer.Start(ctx, "CartService.Checkout")
	defer span.End()

	if err := caller.RequireRole(identity.RoleBuyer, "checkout cart"); err != nil {
		return nil, err
	}

	var (
		c     *cart.Cart
		lines []cart.CartLine
	)
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		if c, err = repos.Carts().FindOpenByOwnerForUpdate(ctx, caller.ID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewInvalidTransitionError("NONE", "CLOSED")
			}
			return err
		}
		if lines, err = repos.CartLines().FindByCart(ctx, c.ID); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(lines))
		for i := range lines {
			ids[i] = lines[i].StockItemID
		}
		items, err := ownedItems(ctx, repos, caller, ids)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, l := range lines {
			total = total.Add(items[l.StockItemID].Details.PublicPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}

		if err := c.Checkout(caller.ID, lines, total); err != nil {
			return err
		}
		if err := repos.Carts().SaveWithLock(ctx, c); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, c.PendingEvents()...)
	})
	if err != nil {
		s.fail(ctx, span, err)
		return nil, err
	}
	c.ClearEvents()

	s.logger.Info("cart checked out",
		zap.String("cart_id", c.ID.String()),
		zap.Int("lines", len(lines)),
		zap.String("total_amount", c.TotalAmount.String()),
	)
	resp := ToCartResponse(c, lines)
	return &resp, nil
}

// Cancel releases every line of the caller's open cart and deletes it
func (s *CartService) Cancel(ctx context.Context, caller identity.Caller) error {
	ctx, span := tracer.Start(ctx, "CartService.Cancel")
	defer span.End()

	if err := caller.RequireRole(identity.RoleBuyer, "cancel cart"); err != nil {
		return err
	}

	var events []shared.DomainEvent
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		c, err := repos.Carts().FindOpenByOwnerForUpdate(ctx, caller.ID)
		if err != nil {
			return err
		}
		lines, err := repos.CartLines().FindByCart(ctx, c.ID)
		if err != nil {
			return err
		}

		ledger := appinv.Ledger(repos)
		src := cartSource(c, caller)
		events = make([]shared.DomainEvent, 0, len(lines)+1)
		for _, l := range lines {
			ev, err := ledger.Release(ctx, l.StockItemID, l.Quantity, src)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		if err := repos.CartLines().DeleteByCart(ctx, c.ID); err != nil {
			return err
		}
		if err := repos.Carts().Delete(ctx, c.ID); err != nil {
			return err
		}
		c.Cancelled(caller.ID, lines)
		return repos.RecordEvents(ctx, append(events, c.PendingEvents()...)...)
	})
	if err != nil {
		s.fail(ctx, span, err)
		return err
	}

	appinv.RecordLedgerEvents(ctx, s.recorder, events)
	s.logger.Info("cart cancelled", zap.String("owner_id", caller.ID.String()))
	return nil
}

// List returns the caller's carts of both modes, newest first
func (s *CartService) List(ctx context.Context, caller identity.Caller, filter CartListFilter) (shared.Paginated[CartResponse], error) {
	if err := caller.RequireRole(identity.RoleBuyer, "list carts"); err != nil {
		return shared.Paginated[CartResponse]{}, err
	}
	f := shared.Filter{Page: filter.Page, PageSize: filter.PageSize, OrderBy: "created_at"}.Normalize()
	if filter.Mode != "" {
		mode := cart.Mode(filter.Mode)
		if !mode.IsValid() {
			return shared.Paginated[CartResponse]{}, shared.NewInvalidInputError("mode", "Unknown cart mode")
		}
		f.Filters["mode"] = mode
	}

	carts, err := s.carts.FindByOwner(ctx, caller.ID, f)
	if err != nil {
		return shared.Paginated[CartResponse]{}, err
	}
	total, err := s.carts.CountByOwner(ctx, caller.ID, f)
	if err != nil {
		return shared.Paginated[CartResponse]{}, err
	}
	ids := make([]uuid.UUID, len(carts))
	for i := range carts {
		ids[i] = carts[i].ID
	}
	linesByCart, err := s.lines.FindByCarts(ctx, ids)
	if err != nil {
		return shared.Paginated[CartResponse]{}, err
	}

	items := make([]CartResponse, len(carts))
	for i := range carts {
		items[i] = ToCartResponse(&carts[i], linesByCart[carts[i].ID])
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// openLine locks a line's cart, which must be the caller's and open, then
// reloads the line under that lock. Checkout and Cancel lock the same cart
// row, so the line read here cannot change until the transaction ends.
func (s *CartService) openLine(ctx context.Context, repos appinv.TransactionalRepositories, caller identity.Caller, lineID uuid.UUID, action string) (*cart.Cart, *cart.CartLine, error) {
	if err := caller.RequireRole(identity.RoleBuyer, action); err != nil {
		return nil, nil, err
	}
	line, err := repos.CartLines().FindByID(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	c, err := repos.Carts().FindByIDForUpdate(ctx, line.CartID)
	if err != nil {
		return nil, nil, err
	}
	if err := c.RequireOwner(caller, action); err != nil {
		return nil, nil, err
	}
	if err := c.RequireOpen(); err != nil {
		return nil, nil, err
	}
	if line, err = repos.CartLines().FindByIDForUpdate(ctx, lineID); err != nil {
		return nil, nil, err
	}
	return c, line, nil
}

func (s *CartService) fail(ctx context.Context, span trace.Span, err error) {
	if errors.Is(err, shared.ErrInsufficientStock) {
		s.recorder.RecordStockRejection(ctx, string(inventory.SourceCart))
		s.logger.Warn("cart reservation rejected", zap.Error(err))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// ownedItems loads the items by ID and checks the caller owns every one
func ownedItems(ctx context.Context, repos appinv.TransactionalRepositories, caller identity.Caller, ids []uuid.UUID) (map[uuid.UUID]*inventory.StockItem, error) {
	items, err := repos.StockItems().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.StockItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, shared.NewNotFoundError("stock item", id)
		}
		if err := item.RequireOwner(caller.ID); err != nil {
			return nil, err
		}
	}
	return byID, nil
}

func cartSource(c *cart.Cart, caller identity.Caller) inventory.Source {
	return inventory.Source{Type: inventory.SourceCart, ID: c.ID, ActorID: caller.ID}
}
