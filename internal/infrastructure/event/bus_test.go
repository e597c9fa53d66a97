package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pharmanet/backend/internal/domain/inventory"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type panickingHandler struct{}

func (panickingHandler) EventTypes() []string { return nil }

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error {
	panic("ledger exploded")
}

// orderedHandler appends its name to a shared log
type orderedHandler struct {
	name string
	mu   *sync.Mutex
	log  *[]string
}

func (h orderedHandler) EventTypes() []string { return nil }

func (h orderedHandler) Handle(context.Context, shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.log = append(*h.log, h.name)
	return nil
}

func TestInMemoryEventBus_RoutesByEventType(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	reserved := newRecordingHandler(inventory.EventTypeStockReserved)
	released := newRecordingHandler(inventory.EventTypeStockReleased)
	bus.Subscribe(reserved)
	bus.Subscribe(released)

	ev := newReservedEvent(2, 3)
	require.NoError(t, bus.Publish(context.Background(), ev))

	require.Len(t, reserved.events(), 1)
	assert.Same(t, ev, reserved.events()[0])
	assert.Empty(t, released.events())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newRecordingHandler(inventory.EventTypeStockReserved)
	bus.Subscribe(h, inventory.EventTypeStockReleased)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, newReservedEvent(1, 1), newReleasedEvent(1, 2)))

	require.Len(t, h.events(), 1)
	assert.Equal(t, inventory.EventTypeStockReleased, h.events()[0].EventType())
}

func TestInMemoryEventBus_WildcardReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	all := newRecordingHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newReservedEvent(1, 9), newReleasedEvent(4, 13)))
	assert.Len(t, all.events(), 2)
}

func TestInMemoryEventBus_SubscribeTwiceWidens(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	h := newRecordingHandler()
	bus.Subscribe(h, inventory.EventTypeStockReserved)
	bus.Subscribe(h, inventory.EventTypeStockReleased)

	require.NoError(t, bus.Publish(context.Background(), newReservedEvent(1, 9), newReleasedEvent(1, 10)))
	assert.Len(t, h.events(), 2, "one subscription, two types, no duplicate delivery")

	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), newReservedEvent(1, 8)))
	assert.Len(t, h.events(), 2)
}

func TestInMemoryEventBus_HandlersRunInSubscriptionOrder(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	var (
		mu  sync.Mutex
		log []string
	)
	for _, name := range []string{"alerts", "kafka", "audit"} {
		bus.Subscribe(orderedHandler{name: name, mu: &mu, log: &log})
	}

	require.NoError(t, bus.Publish(context.Background(), newReservedEvent(1, 0)))
	assert.Equal(t, []string{"alerts", "kafka", "audit"}, log)
}

func TestInMemoryEventBus_JoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	errAlert := errors.New("alert store down")
	errKafka := errors.New("broker unreachable")

	first := newRecordingHandler()
	first.failWith(errAlert)
	healthy := newRecordingHandler()
	last := newRecordingHandler()
	last.failWith(errKafka)
	bus.Subscribe(first)
	bus.Subscribe(healthy)
	bus.Subscribe(last)

	err := bus.Publish(context.Background(), newReservedEvent(5, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, errAlert)
	assert.ErrorIs(t, err, errKafka)
	assert.Len(t, healthy.events(), 1, "a failing handler does not stop the others")
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	after := newRecordingHandler()
	bus.Subscribe(panickingHandler{})
	bus.Subscribe(after)

	err := bus.Publish(context.Background(), newReservedEvent(1, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked: ledger exploded")
	assert.Len(t, after.events(), 1)
}

func TestInMemoryEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	h := newRecordingHandler(inventory.EventTypeStockReserved)
	bus.Subscribe(h)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), newReservedEvent(1, 1))
		}()
	}
	wg.Wait()
	assert.Len(t, h.events(), 50)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	assert.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Stop(context.Background()))
}
