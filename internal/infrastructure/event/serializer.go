package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/pharmanet/backend/internal/domain/cart"
	"github.com/pharmanet/backend/internal/domain/identity"
	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/pharmanet/backend/internal/domain/trade"
)

// ErrUnknownEventType is returned when an outbox row names a type that was
// never registered
var ErrUnknownEventType = errors.New("unknown event type")

// EventSerializer writes events as JSON and turns outbox payloads back into
// their concrete types
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// Register binds an event type to a constructor of its empty payload.
// Registering a type again replaces the constructor.
func (s *EventSerializer) Register(eventType string, factory func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = factory
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes a payload into the type registered for eventType. A
// payload that names a different type is rejected.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	if got := event.EventType(); got != "" && got != eventType {
		return nil, fmt.Errorf("decode %s: payload is a %s", eventType, got)
	}
	return event, nil
}

// Types lists the registered event types, sorted
func (s *EventSerializer) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.factories))
	for t := range s.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// domainEvents maps every event the services record to its payload type.
// The outbox processor dead-letters rows whose type is missing here.
var domainEvents = map[string]func() shared.DomainEvent{
	identity.EventTypeAccountRegistered: func() shared.DomainEvent { return new(identity.AccountRegisteredEvent) },

	inventory.EventTypeStockItemCreated: func() shared.DomainEvent { return new(inventory.StockItemCreatedEvent) },
	inventory.EventTypeStockReserved:    func() shared.DomainEvent { return new(inventory.StockReservedEvent) },
	inventory.EventTypeStockReleased:    func() shared.DomainEvent { return new(inventory.StockReleasedEvent) },
	inventory.EventTypeStockMerged:      func() shared.DomainEvent { return new(inventory.StockMergedEvent) },

	trade.EventTypeOrderCreated:   func() shared.DomainEvent { return new(trade.OrderCreatedEvent) },
	trade.EventTypeOrderSubmitted: func() shared.DomainEvent { return new(trade.OrderSubmittedEvent) },
	trade.EventTypeOrderShipped:   func() shared.DomainEvent { return new(trade.OrderShippedEvent) },
	trade.EventTypeOrderDelivered: func() shared.DomainEvent { return new(trade.OrderDeliveredEvent) },

	// one payload shape for all three cart closings
	cart.EventTypeCartCheckedOut: func() shared.DomainEvent { return new(cart.CartClosedEvent) },
	cart.EventTypeCartSubmitted:  func() shared.DomainEvent { return new(cart.CartClosedEvent) },
	cart.EventTypeCartCancelled:  func() shared.DomainEvent { return new(cart.CartClosedEvent) },
}

// RegisterAllEvents registers every domain event with the serializer
func RegisterAllEvents(s *EventSerializer) {
	for eventType, factory := range domainEvents {
		s.Register(eventType, factory)
	}
}
