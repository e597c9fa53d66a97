package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// StockItemDetailsInput carries the descriptive and pricing fields of an item
type StockItemDetailsInput struct {
	Composition      string          `json:"composition"`
	Dosage           string          `json:"dosage"`
	Presentation     string          `json:"presentation"`
	ATCCode          string          `json:"atc_code"`
	TherapeuticClass string          `json:"therapeutic_class"`
	Indications      string          `json:"indications"`
	HospitalPrice    decimal.Decimal `json:"hospital_price"`
	PublicPrice      decimal.Decimal `json:"public_price"`
}

func (d StockItemDetailsInput) toDomain() inventory.StockItemDetails {
	return inventory.StockItemDetails{
		Composition:      d.Composition,
		Dosage:           d.Dosage,
		Presentation:     d.Presentation,
		ATCCode:          d.ATCCode,
		TherapeuticClass: d.TherapeuticClass,
		Indications:      d.Indications,
		HospitalPrice:    d.HospitalPrice,
		PublicPrice:      d.PublicPrice,
	}
}

// CreateStockItemRequest creates an item in the caller's own stock
type CreateStockItemRequest struct {
	Name       string                `json:"name"`
	Quantity   int                   `json:"quantity"`
	ExpiryDate *time.Time            `json:"expiry_date,omitempty"`
	Details    StockItemDetailsInput `json:"details"`
}

// UpdateStockItemRequest replaces descriptive fields. Quantity is not editable here.
type UpdateStockItemRequest struct {
	Name       string                `json:"name"`
	ExpiryDate *time.Time            `json:"expiry_date,omitempty"`
	ForSale    bool                  `json:"for_sale"`
	Details    StockItemDetailsInput `json:"details"`
}

// StockItemListFilter represents filter options for stock item lists
type StockItemListFilter struct {
	Search   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// StockItemResponse represents a stock item in API responses
type StockItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	Name             string          `json:"name"`
	QuantityOnHand   int             `json:"quantity_on_hand"`
	Composition      string          `json:"composition"`
	Dosage           string          `json:"dosage"`
	Presentation     string          `json:"presentation"`
	ATCCode          string          `json:"atc_code"`
	TherapeuticClass string          `json:"therapeutic_class"`
	Indications      string          `json:"indications"`
	HospitalPrice    decimal.Decimal `json:"hospital_price"`
	PublicPrice      decimal.Decimal `json:"public_price"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
	ForSale          bool            `json:"for_sale"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ToStockItemResponse converts a domain item to a response
func ToStockItemResponse(item *inventory.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:               item.ID,
		OwnerID:          item.OwnerID,
		Name:             item.Name,
		QuantityOnHand:   item.QuantityOnHand,
		Composition:      item.Details.Composition,
		Dosage:           item.Details.Dosage,
		Presentation:     item.Details.Presentation,
		ATCCode:          item.Details.ATCCode,
		TherapeuticClass: item.Details.TherapeuticClass,
		Indications:      item.Details.Indications,
		HospitalPrice:    item.Details.HospitalPrice,
		PublicPrice:      item.Details.PublicPrice,
		ExpiryDate:       item.ExpiryDate,
		ForSale:          item.ForSale,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
		Version:          item.Version,
	}
}

// ToStockItemResponses converts a slice of domain items
func ToStockItemResponses(items []inventory.StockItem) []StockItemResponse {
	out := make([]StockItemResponse, len(items))
	for i := range items {
		out[i] = ToStockItemResponse(&items[i])
	}
	return out
}

// StockAlertRequest creates or replaces an alert
type StockAlertRequest struct {
	Message         string      `json:"message"`
	MinimumQuantity int         `json:"minimum_quantity"`
	StockItemIDs    []uuid.UUID `json:"stock_item_ids"`
}

// StockAlertResponse represents an alert in API responses
type StockAlertResponse struct {
	ID              uuid.UUID           `json:"id"`
	OwnerID         uuid.UUID           `json:"owner_id"`
	Message         string              `json:"message"`
	MinimumQuantity int                 `json:"minimum_quantity"`
	StockItemIDs    []uuid.UUID         `json:"stock_item_ids"`
	LowItems        []StockItemResponse `json:"low_items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// ToStockAlertResponse converts a domain alert to a response
func ToStockAlertResponse(a *inventory.StockAlert) StockAlertResponse {
	return StockAlertResponse{
		ID:              a.ID,
		OwnerID:         a.OwnerID,
		Message:         a.Message,
		MinimumQuantity: a.MinimumQuantity,
		StockItemIDs:    a.StockItemIDs,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
