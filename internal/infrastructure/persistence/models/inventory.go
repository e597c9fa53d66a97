package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// StockItemModel is the persistence model for the StockItem aggregate
type StockItemModel struct {
	VersionedRow
	OwnerID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_items_owner_name,priority:1"`
	Name             string          `gorm:"type:varchar(200);not null;index:idx_stock_items_owner_name,priority:2"`
	QuantityOnHand   int             `gorm:"not null;default:0;check:chk_stock_items_quantity,quantity_on_hand >= 0"`
	Composition      string          `gorm:"type:text"`
	Dosage           string          `gorm:"type:varchar(100)"`
	Presentation     string          `gorm:"type:varchar(100)"`
	ATCCode          string          `gorm:"column:atc_code;type:varchar(20)"`
	TherapeuticClass string          `gorm:"type:varchar(200)"`
	Indications      string          `gorm:"type:text"`
	HospitalPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PublicPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ExpiryDate       *time.Time
	ForSale          bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (StockItemModel) TableName() string {
	return "stock_items"
}

// ToDomain converts the persistence model to a domain StockItem
func (m *StockItemModel) ToDomain() *inventory.StockItem {
	return &inventory.StockItem{
		BaseAggregateRoot: m.aggregate(),
		OwnerID:           m.OwnerID,
		Name:              m.Name,
		QuantityOnHand:    m.QuantityOnHand,
		Details: inventory.StockItemDetails{
			Composition:      m.Composition,
			Dosage:           m.Dosage,
			Presentation:     m.Presentation,
			ATCCode:          m.ATCCode,
			TherapeuticClass: m.TherapeuticClass,
			Indications:      m.Indications,
			HospitalPrice:    m.HospitalPrice,
			PublicPrice:      m.PublicPrice,
		},
		ExpiryDate: m.ExpiryDate,
		ForSale:    m.ForSale,
	}
}

// FromDomain populates the persistence model from a domain StockItem
func (m *StockItemModel) FromDomain(i *inventory.StockItem) {
	m.setAggregate(i.BaseAggregateRoot)
	m.OwnerID = i.OwnerID
	m.Name = i.Name
	m.QuantityOnHand = i.QuantityOnHand
	m.Composition = i.Details.Composition
	m.Dosage = i.Details.Dosage
	m.Presentation = i.Details.Presentation
	m.ATCCode = i.Details.ATCCode
	m.TherapeuticClass = i.Details.TherapeuticClass
	m.Indications = i.Details.Indications
	m.HospitalPrice = i.Details.HospitalPrice
	m.PublicPrice = i.Details.PublicPrice
	m.ExpiryDate = i.ExpiryDate
	m.ForSale = i.ForSale
}

// StockItemModelFromDomain creates a new persistence model from a domain StockItem
func StockItemModelFromDomain(i *inventory.StockItem) *StockItemModel {
	m := &StockItemModel{}
	m.FromDomain(i)
	return m
}

// StockAlertModel is the persistence model for the StockAlert aggregate.
// Watched items are stored in stock_alert_items.
type StockAlertModel struct {
	VersionedRow
	OwnerID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	Message         string                `gorm:"type:varchar(500);not null"`
	MinimumQuantity int                   `gorm:"not null"`
	Items           []StockAlertItemModel `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (StockAlertModel) TableName() string {
	return "stock_alerts"
}

// StockAlertItemModel links an alert to one watched stock item
type StockAlertItemModel struct {
	AlertID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	StockItemID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (StockAlertItemModel) TableName() string {
	return "stock_alert_items"
}

// ToDomain converts the persistence model to a domain StockAlert
func (m *StockAlertModel) ToDomain() *inventory.StockAlert {
	ids := make([]uuid.UUID, len(m.Items))
	for i, it := range m.Items {
		ids[i] = it.StockItemID
	}
	return &inventory.StockAlert{
		BaseAggregateRoot: m.aggregate(),
		OwnerID:           m.OwnerID,
		Message:           m.Message,
		MinimumQuantity:   m.MinimumQuantity,
		StockItemIDs:      ids,
	}
}

// FromDomain populates the persistence model from a domain StockAlert
func (m *StockAlertModel) FromDomain(a *inventory.StockAlert) {
	m.setAggregate(a.BaseAggregateRoot)
	m.OwnerID = a.OwnerID
	m.Message = a.Message
	m.MinimumQuantity = a.MinimumQuantity
	m.Items = make([]StockAlertItemModel, len(a.StockItemIDs))
	for i, id := range a.StockItemIDs {
		m.Items[i] = StockAlertItemModel{AlertID: a.ID, StockItemID: id}
	}
}

// StockAlertModelFromDomain creates a new persistence model from a domain StockAlert
func StockAlertModelFromDomain(a *inventory.StockAlert) *StockAlertModel {
	m := &StockAlertModel{}
	m.FromDomain(a)
	return m
}
