package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockItem is a medicine lot held by exactly one account. QuantityOnHand is
// the authoritative ledger balance and never goes negative.
type StockItem struct {
	shared.BaseAggregateRoot
	OwnerID        uuid.UUID
	Name           string
	QuantityOnHand int
	Details        StockItemDetails
	ExpiryDate     *time.Time
	ForSale        bool
}

// StockItemDetails are the descriptive and pricing fields copied when goods
// are received into another owner's stock
type StockItemDetails struct {
	Composition      string
	Dosage           string
	Presentation     string
	ATCCode          string
	TherapeuticClass string
	Indications      string
	HospitalPrice    decimal.Decimal
	PublicPrice      decimal.Decimal
}

// Validate checks prices and field lengths
func (d StockItemDetails) Validate() error {
	if d.HospitalPrice.IsNegative() {
		return shared.NewInvalidInputError("hospital_price", "Hospital price cannot be negative")
	}
	if d.PublicPrice.IsNegative() {
		return shared.NewInvalidInputError("public_price", "Public price cannot be negative")
	}
	if len(d.ATCCode) > 20 {
		return shared.NewInvalidInputError("atc_code", "ATC code cannot exceed 20 characters")
	}
	return nil
}

// NewStockItem creates a stock item for owner with an opening quantity
func NewStockItem(ownerID uuid.UUID, name string, quantity int, details StockItemDetails) (*StockItem, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewInvalidInputError("owner_id", "Owner ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewInvalidInputError("name", "Name cannot be empty")
	}
	if len(name) > 255 {
		return nil, shared.NewInvalidInputError("name", "Name cannot exceed 255 characters")
	}
	if quantity < 0 {
		return nil, shared.NewInvalidInputError("quantity", "Quantity cannot be negative")
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	item := &StockItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		Name:              name,
		QuantityOnHand:    quantity,
		Details:           details,
		ForSale:           true,
	}
	item.Raise(NewStockItemCreatedEvent(item, ownerID))

	return item, nil
}

// CloneFor builds a new item for owner carrying this item's name, description
// and prices. Expiry and sale flag are not carried over.
func (i *StockItem) CloneFor(ownerID uuid.UUID, quantity int) (*StockItem, error) {
	return NewStockItem(ownerID, i.Name, quantity, i.Details)
}

// IsOwnedBy reports whether the account owns this item
func (i *StockItem) IsOwnedBy(accountID uuid.UUID) bool {
	return i.OwnerID == accountID
}

// RequireOwner fails with OWNERSHIP_MISMATCH unless expectedOwnerID owns the item
func (i *StockItem) RequireOwner(expectedOwnerID uuid.UUID) error {
	if !i.IsOwnedBy(expectedOwnerID) {
		return shared.NewOwnershipMismatchError(i.ID, expectedOwnerID, i.OwnerID)
	}
	return nil
}

// CanFulfill reports whether quantity is positive and available
func (i *StockItem) CanFulfill(quantity int) bool {
	return quantity > 0 && i.QuantityOnHand >= quantity
}

// RequireAvailable is a read-only availability check. It does not reserve.
func (i *StockItem) RequireAvailable(quantity int) error {
	if quantity <= 0 {
		return shared.NewInvalidInputError("quantity", "Quantity must be positive")
	}
	if i.QuantityOnHand < quantity {
		return shared.NewInsufficientStockError(i.ID, i.QuantityOnHand, quantity)
	}
	return nil
}

// UpdateDetails replaces the descriptive fields and prices. Quantity only moves
// through the ledger.
func (i *StockItem) UpdateDetails(name string, details StockItemDetails, expiry *time.Time, forSale bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewInvalidInputError("name", "Name cannot be empty")
	}
	if err := details.Validate(); err != nil {
		return err
	}
	i.Name = name
	i.Details = details
	i.ExpiryDate = expiry
	i.ForSale = forSale
	i.IncrementVersion()
	return nil
}

// IsExpired reports whether the item is past its expiry date
func (i *StockItem) IsExpired(now time.Time) bool {
	return i.ExpiryDate != nil && now.After(*i.ExpiryDate)
}

// LineValue is quantity times the public price
func (i *StockItem) LineValue(quantity int) decimal.Decimal {
	return i.Details.PublicPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
