package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// Row carries the identity and timestamps shared by every table
type Row struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *Row) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r *Row) setEntity(e shared.BaseEntity) {
	*r = Row{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// VersionedRow adds the optimistic-lock counter of aggregate roots. Repositories
// update with "WHERE version = ?" and treat zero affected rows as a conflict.
type VersionedRow struct {
	Row
	Version int `gorm:"not null;default:1"`
}

func (r *VersionedRow) aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: r.entity(), Version: r.Version}
}

func (r *VersionedRow) setAggregate(a shared.BaseAggregateRoot) {
	r.setEntity(a.BaseEntity)
	r.Version = a.Version
}

// All lists the tables in foreign-key order for AutoMigrate
func All() []any {
	return []any{
		&AccountModel{},
		&StockItemModel{},
		&StockAlertModel{},
		&StockAlertItemModel{},
		&OrderModel{},
		&OrderLineModel{},
		&CartModel{},
		&CartLineModel{},
		&OutboxEntryModel{},
	}
}
