package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

// EventRecorder is a shared.EventHandler that keeps what it receives. Tests
// subscribe it to a bus and then wait on or inspect the recorded events.
type EventRecorder struct {
	types []string

	mu     sync.Mutex
	events []shared.DomainEvent
	fail   error
}

func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{types: eventTypes}
}

func (r *EventRecorder) EventTypes() []string { return r.types }

func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.fail
}

// FailWith makes later Handle calls return err after recording the event.
// A nil err restores success.
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

// Events returns a snapshot in arrival order
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.DomainEvent(nil), r.events...)
}

func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// OfType returns the recorded events with the given type
func (r *EventRecorder) OfType(eventType string) []shared.DomainEvent {
	var out []shared.DomainEvent
	for _, e := range r.Events() {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor fails the test unless at least n events arrive within timeout
func (r *EventRecorder) WaitFor(t *testing.T, n int, timeout time.Duration) []shared.DomainEvent {
	t.Helper()
	RequireEventually(t, func() bool { return r.Count() >= n }, timeout, 10*time.Millisecond,
		"expected %d events", n)
	return r.Events()
}

// StubEvent is a bare event for exercising infrastructure that never looks
// past the envelope.
type StubEvent struct {
	shared.BaseDomainEvent
	Note string `json:"note"`
}

// NewStubEvent builds an event of eventType on a fresh aggregate
func NewStubEvent(eventType, aggregateType string, actorID uuid.UUID) *StubEvent {
	return &StubEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        uuid.New(),
			Type:      eventType,
			ActorID:   actorID,
			Timestamp: time.Now().UTC(),
			AggID:     uuid.New(),
			AggType:   aggregateType,
		},
	}
}

// RequireNoEvents fails if anything is recorded during window
func (r *EventRecorder) RequireNoEvents(t *testing.T, window time.Duration) {
	t.Helper()
	AssertNever(t, func() bool { return r.Count() > 0 }, window, 10*time.Millisecond,
		"unexpected events recorded")
	require.Zero(t, r.Count())
}
