package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeliveryNoteLine is one printed row
type DeliveryNoteLine struct {
	Name         string
	Dosage       string
	Presentation string
	Quantity     int
	UnitPrice    decimal.Decimal
	Amount       decimal.Decimal
}

// DeliveryNote is everything the renderer needs
type DeliveryNote struct {
	OrderID     uuid.UUID
	Status      string
	BuyerName   string
	BuyerAddr   string
	SellerName  string
	SellerAddr  string
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	Note        string
	Lines       []DeliveryNoteLine
	Total       decimal.Decimal
	PrintedAt   time.Time
}

// DocumentRenderer turns a delivery note into a PDF
type DocumentRenderer interface {
	RenderDeliveryNote(ctx context.Context, note *DeliveryNote) ([]byte, error)
}

// DocumentStorage keeps rendered documents and hands out download links
type DocumentStorage interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DeliveryNoteService renders and stores delivery notes for shipped orders
type DeliveryNoteService struct {
	accounts identity.AccountRepository
	orders   trade.OrderRepository
	lines    trade.OrderLineRepository
	items    inventory.StockItemRepository
	renderer DocumentRenderer
	storage  DocumentStorage
	linkTTL  time.Duration
	logger   *zap.Logger
}

// NewDeliveryNoteService creates a DeliveryNoteService. A nil renderer or
// storage leaves the feature disabled.
func NewDeliveryNoteService(
	accounts identity.AccountRepository,
	orders trade.OrderRepository,
	lines trade.OrderLineRepository,
	items inventory.StockItemRepository,
	renderer DocumentRenderer,
	storage DocumentStorage,
	linkTTL time.Duration,
	logger *zap.Logger,
) *DeliveryNoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &DeliveryNoteService{
		accounts: accounts,
		orders:   orders,
		lines:    lines,
		items:    items,
		renderer: renderer,
		storage:  storage,
		linkTTL:  linkTTL,
		logger:   logger,
	}
}

// Enabled reports whether rendering and storage are configured
func (s *DeliveryNoteService) Enabled() bool {
	return s.renderer != nil && s.storage != nil
}

// Generate renders the delivery note of a shipped or delivered order, stores
// the PDF and returns a presigned link to it
func (s *DeliveryNoteService) Generate(ctx context.Context, caller identity.Caller, orderID uuid.UUID) (*DeliveryNoteResponse, error) {
	if !s.Enabled() {
		return nil, shared.ErrFeatureDisabled
	}
	ctx, span := tracer.Start(ctx, "DeliveryNoteService.Generate")
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.RequireParty(caller, "print delivery note"); err != nil {
		return nil, err
	}
	if order.Status != trade.OrderStatusInDelivery && order.Status != trade.OrderStatusDelivered {
		return nil, shared.NewInvalidTransitionError(order.Status.String(), "PRINT_DELIVERY_NOTE")
	}

	note, err := s.build(ctx, order)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.RenderDeliveryNote(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("render delivery note: %w", err)
	}

	key := fmt.Sprintf("delivery-notes/%s/%s-v%d.pdf", order.SellerID, order.ID, order.Version)
	if err := s.storage.Put(ctx, key, "application/pdf", pdf); err != nil {
		return nil, fmt.Errorf("store delivery note: %w", err)
	}
	url, err := s.storage.PresignGet(ctx, key, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("presign delivery note: %w", err)
	}

	s.logger.Info("delivery note generated",
		zap.String("order_id", order.ID.String()),
		zap.String("object_key", key),
		zap.Int("bytes", len(pdf)),
	)
	return &DeliveryNoteResponse{
		OrderID:   order.ID,
		ObjectKey: key,
		URL:       url,
		ExpiresAt: time.Now().Add(s.linkTTL),
	}, nil
}

func (s *DeliveryNoteService) build(ctx context.Context, order *trade.Order) (*DeliveryNote, error) {
	buyer, err := s.accounts.FindByID(ctx, order.BuyerID)
	if err != nil {
		return nil, err
	}
	seller, err := s.accounts.FindByID(ctx, order.SellerID)
	if err != nil {
		return nil, err
	}
	lines, err := s.lines.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.StockItemID
	}
	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.StockItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	note := &DeliveryNote{
		OrderID:     order.ID,
		Status:      order.Status.String(),
		BuyerName:   buyer.Name,
		BuyerAddr:   buyer.Address,
		SellerName:  seller.Name,
		SellerAddr:  seller.Address,
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
		Note:        order.Note,
		Lines:       make([]DeliveryNoteLine, 0, len(lines)),
		Total:       decimal.Zero,
		PrintedAt:   time.Now(),
	}
	for _, l := range lines {
		item, ok := byID[l.StockItemID]
		if !ok {
			return nil, shared.NewNotFoundError("stock item", l.StockItemID)
		}
		amount := item.LineValue(l.Quantity)
		note.Lines = append(note.Lines, DeliveryNoteLine{
			Name:         item.Name,
			Dosage:       item.Details.Dosage,
			Presentation: item.Details.Presentation,
			Quantity:     l.Quantity,
			UnitPrice:    item.Details.PublicPrice,
			Amount:       amount,
		})
		note.Total = note.Total.Add(amount)
	}
	return note, nil
}
