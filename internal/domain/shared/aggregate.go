package shared

// BaseAggregateRoot is embedded by the consistency boundaries (accounts, stock
// items, carts, orders). Version is the optimistic lock: each mutation bumps
// it and repositories update WHERE version = Version-1. Raised events wait
// here until the application layer writes them to the outbox in the same
// transaction as the row.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

// IncrementVersion records a mutation
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *BaseAggregateRoot) PendingEvents() []DomainEvent { return a.pending }

// ClearEvents is called once the pending events are committed
func (a *BaseAggregateRoot) ClearEvents() { a.pending = nil }
