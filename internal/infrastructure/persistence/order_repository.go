package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/domain/trade"
	"github.com/pharmanet/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an order and locks its row
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormOrderRepository) find(query *gorm.DB, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBuyer lists a buyer's orders
func (r *GormOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]trade.Order, error) {
	return r.list(ctx, "buyer_id", buyerID, filter)
}

// CountByBuyer counts a buyer's orders
func (r *GormOrderRepository) CountByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (int64, error) {
	return r.count(ctx, "buyer_id", buyerID, filter)
}

// FindBySeller lists a seller's orders
func (r *GormOrderRepository) FindBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) ([]trade.Order, error) {
	return r.list(ctx, "seller_id", sellerID, filter)
}

// CountBySeller counts a seller's orders
func (r *GormOrderRepository) CountBySeller(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (int64, error) {
	return r.count(ctx, "seller_id", sellerID, filter)
}

func (r *GormOrderRepository) list(ctx context.Context, column string, accountID uuid.UUID, filter shared.Filter) ([]trade.Order, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}).Where(column+" = ?", accountID), filter)
	query = orderSort.list(query, filter)

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]trade.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

func (r *GormOrderRepository) count(ctx context.Context, column string, accountID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}).Where(column+" = ?", accountID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	return query
}

// Save inserts a new order
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Create(models.OrderModelFromDomain(order)).Error
}

// SaveWithLock updates an order whose version was already incremented
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	expectedVersion := order.GetVersion() - 1

	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Select("status", "note", "submitted_at", "shipped_at", "delivered_at", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Order has been modified by another request")
	}
	return nil
}

// GormOrderLineRepository implements OrderLineRepository using GORM
type GormOrderLineRepository struct {
	db *gorm.DB
}

// NewGormOrderLineRepository creates a new GormOrderLineRepository
func NewGormOrderLineRepository(db *gorm.DB) *GormOrderLineRepository {
	return &GormOrderLineRepository{db: db}
}

// FindByID finds an order line by its ID
func (r *GormOrderLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.OrderLine, error) {
	var model models.OrderLineModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order line", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrder lists an order's lines in insertion order
func (r *GormOrderLineRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]trade.OrderLine, error) {
	var rows []models.OrderLineModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]trade.OrderLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return lines, nil
}

// FindByOrders loads the lines of several orders in one query
func (r *GormOrderLineRepository) FindByOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]trade.OrderLine, error) {
	result := make(map[uuid.UUID][]trade.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}
	var rows []models.OrderLineModel
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].OrderID] = append(result[rows[i].OrderID], *rows[i].ToDomain())
	}
	return result, nil
}

// Save creates or updates a line
func (r *GormOrderLineRepository) Save(ctx context.Context, line *trade.OrderLine) error {
	return r.db.WithContext(ctx).Save(models.OrderLineModelFromDomain(line)).Error
}

// SaveBatch inserts several lines
func (r *GormOrderLineRepository) SaveBatch(ctx context.Context, lines []trade.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.OrderLineModel, len(lines))
	for i := range lines {
		rows[i] = models.OrderLineModelFromDomain(&lines[i])
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// Delete removes a line
func (r *GormOrderLineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.OrderLineModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("order line", id)
	}
	return nil
}

// Ensure the repositories implement their interfaces
var (
	_ trade.OrderRepository     = (*GormOrderRepository)(nil)
	_ trade.OrderLineRepository = (*GormOrderLineRepository)(nil)
)
