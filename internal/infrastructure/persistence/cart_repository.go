package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/cart"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByID finds a cart by its ID
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a cart by its ID with SELECT ... FOR UPDATE
func (r *GormCartRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCartRepository) find(db *gorm.DB, id uuid.UUID) (*cart.Cart, error) {
	var model models.CartModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("cart", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByOwner finds the owner's open incremental cart
func (r *GormCartRepository) FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error) {
	return r.findOpen(r.db.WithContext(ctx), ownerID)
}

// FindOpenByOwnerForUpdate finds the owner's open cart and locks its row
func (r *GormCartRepository) FindOpenByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error) {
	return r.findOpen(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ownerID)
}

func (r *GormCartRepository) findOpen(db *gorm.DB, ownerID uuid.UUID) (*cart.Cart, error) {
	var model models.CartModel
	if err := db.
		Where("owner_id = ? AND closed = ? AND mode = ?", ownerID, false, cart.ModeIncremental).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("open cart", ownerID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetOrCreateOpen returns the owner's open cart, inserting one if needed.
// A concurrent insert for the same owner hits idx_carts_open_owner and the
// winner's row is returned instead.
func (r *GormCartRepository) GetOrCreateOpen(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error) {
	existing, err := r.FindOpenByOwner(ctx, ownerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	c, err := cart.NewIncrementalCart(ownerID)
	if err != nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "owner_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "closed = false"}}},
			DoNothing:   true,
		}).
		Create(models.CartModelFromDomain(c))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return r.FindOpenByOwner(ctx, ownerID)
	}
	return c, nil
}

// FindByOwner lists the owner's carts of both modes
func (r *GormCartRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]cart.Cart, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CartModel{}).Where("owner_id = ?", ownerID), filter)
	query = cartSort.list(query, filter)

	var rows []models.CartModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	carts := make([]cart.Cart, len(rows))
	for i := range rows {
		carts[i] = *rows[i].ToDomain()
	}
	return carts, nil
}

// CountByOwner counts the owner's carts
func (r *GormCartRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CartModel{}).Where("owner_id = ?", ownerID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormCartRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "mode":
			query = query.Where("mode = ?", value)
		case "closed":
			query = query.Where("closed = ?", value)
		}
	}
	return query
}

// Save inserts a new cart
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Create(models.CartModelFromDomain(c)).Error
}

// SaveWithLock updates a cart whose version was already incremented
func (r *GormCartRepository) SaveWithLock(ctx context.Context, c *cart.Cart) error {
	model := models.CartModelFromDomain(c)
	expectedVersion := c.GetVersion() - 1

	result := r.db.WithContext(ctx).
		Model(&models.CartModel{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Select("closed", "closed_at", "total_amount", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Cart has been modified by another request")
	}
	return nil
}

// Delete removes a cart row. Lines are removed separately.
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CartModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("cart", id)
	}
	return nil
}

// GormCartLineRepository implements CartLineRepository using GORM
type GormCartLineRepository struct {
	db *gorm.DB
}

// NewGormCartLineRepository creates a new GormCartLineRepository
func NewGormCartLineRepository(db *gorm.DB) *GormCartLineRepository {
	return &GormCartLineRepository{db: db}
}

// FindByID finds a cart line by its ID
func (r *GormCartLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.CartLine, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a cart line by its ID and locks its row
func (r *GormCartLineRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*cart.CartLine, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCartLineRepository) find(db *gorm.DB, id uuid.UUID) (*cart.CartLine, error) {
	var model models.CartLineModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("cart line", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCart lists a cart's lines in insertion order
func (r *GormCartLineRepository) FindByCart(ctx context.Context, cartID uuid.UUID) ([]cart.CartLine, error) {
	var rows []models.CartLineModel
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]cart.CartLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return lines, nil
}

// FindByCarts loads the lines of several carts in one query
func (r *GormCartLineRepository) FindByCarts(ctx context.Context, cartIDs []uuid.UUID) (map[uuid.UUID][]cart.CartLine, error) {
	result := make(map[uuid.UUID][]cart.CartLine, len(cartIDs))
	if len(cartIDs) == 0 {
		return result, nil
	}
	var rows []models.CartLineModel
	if err := r.db.WithContext(ctx).
		Where("cart_id IN ?", cartIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].CartID] = append(result[rows[i].CartID], *rows[i].ToDomain())
	}
	return result, nil
}

// FindByCartAndItem finds the line of a cart for one stock item
func (r *GormCartLineRepository) FindByCartAndItem(ctx context.Context, cartID, stockItemID uuid.UUID) (*cart.CartLine, error) {
	var model models.CartLineModel
	if err := r.db.WithContext(ctx).
		Where("cart_id = ? AND stock_item_id = ?", cartID, stockItemID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a line
func (r *GormCartLineRepository) Save(ctx context.Context, line *cart.CartLine) error {
	return r.db.WithContext(ctx).Save(models.CartLineModelFromDomain(line)).Error
}

// SaveBatch inserts several lines
func (r *GormCartLineRepository) SaveBatch(ctx context.Context, lines []cart.CartLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.CartLineModel, len(lines))
	for i := range lines {
		rows[i] = models.CartLineModelFromDomain(&lines[i])
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// Delete removes a line
func (r *GormCartLineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CartLineModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("cart line", id)
	}
	return nil
}

// DeleteByCart removes every line of a cart
func (r *GormCartLineRepository) DeleteByCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartLineModel{}).Error
}

// Ensure the repositories implement their interfaces
var (
	_ cart.CartRepository     = (*GormCartRepository)(nil)
	_ cart.CartLineRepository = (*GormCartLineRepository)(nil)
)
