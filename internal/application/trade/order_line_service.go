package trade

import (
	"context"

	"github.com/google/uuid"
	appinv "github.com/pharmanet/backend/internal/application/inventory"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// AddLine appends a line to a DRAFTING order owned by the caller. The summed
// quantity of the added item across the order is checked against what the
// seller has on hand. Stock for every line is taken when the order ships.
func (s *OrderService) AddLine(ctx context.Context, caller identity.Caller, orderID uuid.UUID, in OrderLineInput) (*OrderLineResponse, error) {
	ctx, span := tracer.Start(ctx, "OrderService.AddLine")
	defer span.End()

	var line *trade.OrderLine
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		order, err := s.lockEditable(ctx, repos, caller, orderID)
		if err != nil {
			return err
		}
		if line, err = order.NewLine(in.StockItemID, in.Quantity); err != nil {
			return err
		}
		existing, err := repos.OrderLines().FindByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := checkLines(ctx, repos.StockItems(), order.SellerID, linesOfItem(append(existing, *line), line.StockItemID)); err != nil {
			return err
		}
		if err := repos.OrderLines().Save(ctx, line); err != nil {
			return err
		}
		return s.bump(ctx, repos, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order line added",
		zap.String("order_id", orderID.String()),
		zap.String("line_id", line.ID.String()),
		zap.String("stock_item_id", line.StockItemID.String()),
		zap.Int("quantity", line.Quantity),
	)
	resp := ToOrderLineResponse(line)
	return &resp, nil
}

// UpdateLine changes the item and/or quantity of a line on a DRAFTING order.
// Only the line's resulting item is checked, summed over the order.
func (s *OrderService) UpdateLine(ctx context.Context, caller identity.Caller, lineID uuid.UUID, req UpdateOrderLineRequest) (*OrderLineResponse, error) {
	ctx, span := tracer.Start(ctx, "OrderService.UpdateLine")
	defer span.End()

	var line *trade.OrderLine
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		if line, err = repos.OrderLines().FindByID(ctx, lineID); err != nil {
			return err
		}
		order, err := s.lockEditable(ctx, repos, caller, line.OrderID)
		if err != nil {
			return err
		}
		if err := line.Change(req.StockItemID, req.Quantity); err != nil {
			return err
		}
		lines, err := repos.OrderLines().FindByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		for i := range lines {
			if lines[i].ID == line.ID {
				lines[i] = *line
			}
		}
		if err := checkLines(ctx, repos.StockItems(), order.SellerID, linesOfItem(lines, line.StockItemID)); err != nil {
			return err
		}
		if err := repos.OrderLines().Save(ctx, line); err != nil {
			return err
		}
		return s.bump(ctx, repos, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order line updated",
		zap.String("order_id", line.OrderID.String()),
		zap.String("line_id", line.ID.String()),
		zap.Int("quantity", line.Quantity),
	)
	resp := ToOrderLineResponse(line)
	return &resp, nil
}

// DeleteLine removes a line from a DRAFTING order
func (s *OrderService) DeleteLine(ctx context.Context, caller identity.Caller, lineID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "OrderService.DeleteLine")
	defer span.End()

	var orderID uuid.UUID
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		line, err := repos.OrderLines().FindByID(ctx, lineID)
		if err != nil {
			return err
		}
		order, err := s.lockEditable(ctx, repos, caller, line.OrderID)
		if err != nil {
			return err
		}
		orderID = order.ID
		if err := repos.OrderLines().Delete(ctx, line.ID); err != nil {
			return err
		}
		return s.bump(ctx, repos, order)
	})
	if err != nil {
		return err
	}

	s.logger.Info("order line deleted",
		zap.String("order_id", orderID.String()),
		zap.String("line_id", lineID.String()),
	)
	return nil
}

// lockEditable loads the order under a row lock so line edits cannot race a
// concurrent submit
func (s *OrderService) lockEditable(ctx context.Context, repos appinv.TransactionalRepositories, caller identity.Caller, orderID uuid.UUID) (*trade.Order, error) {
	order, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.RequireEditableBy(caller); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) bump(ctx context.Context, repos appinv.TransactionalRepositories, order *trade.Order) error {
	order.IncrementVersion()
	return repos.Orders().SaveWithLock(ctx, order)
}

// linesOfItem keeps the lines that draw on one stock item
func linesOfItem(lines []trade.OrderLine, stockItemID uuid.UUID) []trade.OrderLine {
	out := make([]trade.OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.StockItemID == stockItemID {
			out = append(out, l)
		}
	}
	return out
}
