package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockAlertRepository implements StockAlertRepository using GORM
type GormStockAlertRepository struct {
	db *gorm.DB
}

// NewGormStockAlertRepository creates a new GormStockAlertRepository
func NewGormStockAlertRepository(db *gorm.DB) *GormStockAlertRepository {
	return &GormStockAlertRepository{db: db}
}

// FindByID finds an alert with its watched items
func (r *GormStockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockAlert, error) {
	var model models.StockAlertModel
	if err := r.db.WithContext(ctx).Preload("Items").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("stock alert", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOwner lists an owner's alerts, newest first
func (r *GormStockAlertRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]inventory.StockAlert, error) {
	var rows []models.StockAlertModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStockAlerts(rows), nil
}

// FindByStockItem lists the alerts watching an item
func (r *GormStockAlertRepository) FindByStockItem(ctx context.Context, stockItemID uuid.UUID) ([]inventory.StockAlert, error) {
	var rows []models.StockAlertModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id IN (?)", r.db.Model(&models.StockAlertItemModel{}).Select("alert_id").Where("stock_item_id = ?", stockItemID)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStockAlerts(rows), nil
}

// Save creates or updates an alert and replaces its watched items
func (r *GormStockAlertRepository) Save(ctx context.Context, alert *inventory.StockAlert) error {
	model := models.StockAlertModelFromDomain(alert)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("alert_id = ?", alert.ID).Delete(&models.StockAlertItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
}

// Delete removes an alert and its item links
func (r *GormStockAlertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("alert_id = ?", id).Delete(&models.StockAlertItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.StockAlertModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("stock alert", id)
		}
		return nil
	})
}

func toStockAlerts(rows []models.StockAlertModel) []inventory.StockAlert {
	alerts := make([]inventory.StockAlert, len(rows))
	for i := range rows {
		alerts[i] = *rows[i].ToDomain()
	}
	return alerts
}

// Ensure GormStockAlertRepository implements StockAlertRepository
var _ inventory.StockAlertRepository = (*GormStockAlertRepository)(nil)
