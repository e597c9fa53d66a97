package shared

import "context"

// EventHandler reacts to delivered events. An empty EventTypes subscribes
// the handler to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher hands events to their handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus routes published events to subscribed handlers. Explicit event
// types passed to Subscribe take precedence over handler.EventTypes().
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxRecorder appends events to the outbox inside the caller's open
// transaction, so they commit or roll back with the state change. tx is the
// storage-specific handle.
type OutboxRecorder interface {
	Record(ctx context.Context, tx any, events ...DomainEvent) error
}
