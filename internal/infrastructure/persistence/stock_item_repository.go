package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockItemRepository implements StockItemRepository using GORM.
// Quantity moves are single conditional UPDATE statements so that concurrent
// reservations against the same row can never overdraw it.
type GormStockItemRepository struct {
	db *gorm.DB
}

// NewGormStockItemRepository creates a new GormStockItemRepository
func NewGormStockItemRepository(db *gorm.DB) *GormStockItemRepository {
	return &GormStockItemRepository{db: db}
}

// FindByID finds a stock item by its ID
func (r *GormStockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("stock item", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple stock items by their IDs. Missing IDs are skipped.
func (r *GormStockItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.StockItem, error) {
	if len(ids) == 0 {
		return []inventory.StockItem{}, nil
	}
	var rows []models.StockItemModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStockItems(rows), nil
}

// FindByOwner lists an owner's items
func (r *GormStockItemRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]inventory.StockItem, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.StockItemModel{}).Where("owner_id = ?", ownerID), filter)
	query = stockItemSort.list(query, filter)

	var rows []models.StockItemModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStockItems(rows), nil
}

// CountByOwner counts an owner's items matching the filter
func (r *GormStockItemRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.StockItemModel{}).Where("owner_id = ?", ownerID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByOwnerAndNameForUpdate returns the oldest exact-name match, row locked
func (r *GormStockItemRepository) FindByOwnerAndNameForUpdate(ctx context.Context, ownerID uuid.UUID, name string) (*inventory.StockItem, error) {
	var model models.StockItemModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ? AND name = ?", ownerID, name).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or fully updates a stock item
func (r *GormStockItemRepository) Save(ctx context.Context, item *inventory.StockItem) error {
	return r.db.WithContext(ctx).Save(models.StockItemModelFromDomain(item)).Error
}

// SaveWithLock updates descriptive fields with an optimistic version check.
// QuantityOnHand is left to the ledger statements below.
func (r *GormStockItemRepository) SaveWithLock(ctx context.Context, item *inventory.StockItem) error {
	model := models.StockItemModelFromDomain(item)
	expectedVersion := item.GetVersion() - 1

	result := r.db.WithContext(ctx).
		Model(&models.StockItemModel{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Select("name", "composition", "dosage", "presentation", "atc_code", "therapeutic_class",
			"indications", "hospital_price", "public_price", "expiry_date", "for_sale", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Stock item has been modified by another request")
	}
	return nil
}

// DecrementIfAvailable subtracts quantity only if enough is on hand
func (r *GormStockItemRepository) DecrementIfAvailable(ctx context.Context, id uuid.UUID, quantity int) (*inventory.StockItem, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockItemModel{}).
		Where("id = ? AND quantity_on_hand >= ?", id, quantity).
		Updates(map[string]any{
			"quantity_on_hand": gorm.Expr("quantity_on_hand - ?", quantity),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		item, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, shared.NewInsufficientStockError(id, item.QuantityOnHand, quantity)
	}
	return r.FindByID(ctx, id)
}

// Increment adds quantity
func (r *GormStockItemRepository) Increment(ctx context.Context, id uuid.UUID, quantity int) (*inventory.StockItem, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity_on_hand": gorm.Expr("quantity_on_hand + ?", quantity),
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.NewNotFoundError("stock item", id)
	}
	return r.FindByID(ctx, id)
}

func (r *GormStockItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	for key, value := range filter.Filters {
		switch key {
		case "for_sale":
			query = query.Where("for_sale = ?", value)
		case "in_stock":
			if value == true {
				query = query.Where("quantity_on_hand > 0")
			}
		}
	}
	return query
}

func toStockItems(rows []models.StockItemModel) []inventory.StockItem {
	items := make([]inventory.StockItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items
}

// Ensure GormStockItemRepository implements StockItemRepository
var _ inventory.StockItemRepository = (*GormStockItemRepository)(nil)
