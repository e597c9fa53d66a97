package event

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
)

func testItem(remaining int) *inventory.StockItem {
	item := &inventory.StockItem{Name: "Paracetamol 500mg", QuantityOnHand: remaining}
	item.ID = uuid.New()
	item.OwnerID = uuid.New()
	return item
}

func newReservedEvent(quantity, remaining int) *inventory.StockReservedEvent {
	src := inventory.Source{Type: inventory.SourceOrder, ID: uuid.New(), ActorID: uuid.New()}
	return inventory.NewStockReservedEvent(testItem(remaining), quantity, src)
}

func newReleasedEvent(quantity, balance int) *inventory.StockReleasedEvent {
	src := inventory.Source{Type: inventory.SourceCart, ID: uuid.New(), ActorID: uuid.New()}
	return inventory.NewStockReleasedEvent(testItem(balance), quantity, src)
}

func newTestSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterAllEvents(s)
	return s
}

// recordingHandler remembers every event it is handed
type recordingHandler struct {
	mu    sync.Mutex
	types []string
	seen  []shared.DomainEvent
	err   error
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types}
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	return h.err
}

func (h *recordingHandler) failWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *recordingHandler) events() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.seen...)
}
