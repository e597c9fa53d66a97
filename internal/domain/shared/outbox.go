package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// RetryPolicy spaces out redelivery of an entry whose handlers keep failing
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy allows five attempts, doubling from one second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Minute,
	}
}

// Delay returns how long to wait after the given number of failed attempts
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// OutboxEntry is a serialized domain event written in the same transaction as
// the stock or workflow change that produced it. An entry may be claimed
// once AvailableAt has passed.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	AvailableAt   time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps a serialized event, available immediately
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxAttempts:   DefaultRetryPolicy().MaxAttempts,
		AvailableAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Due reports whether a processor may claim the entry at now
func (e *OutboxEntry) Due(now time.Time) bool {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return false
	}
	return !e.AvailableAt.After(now)
}

// Claim moves a due entry to PROCESSING
func (e *OutboxEntry) Claim(now time.Time) error {
	if !e.Due(now) {
		return fmt.Errorf("outbox entry %s is %s and not due", e.ID, e.Status)
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = now
	return nil
}

// Delivered records a successful publish
func (e *OutboxEntry) Delivered(now time.Time) {
	e.Status = OutboxStatusSent
	e.DeliveredAt = &now
	e.LastError = ""
	e.UpdatedAt = now
}

// Failed records a failed attempt. The entry becomes available again after
// the policy delay, or DEAD once its attempts are used up.
func (e *OutboxEntry) Failed(cause error, policy RetryPolicy, now time.Time) {
	e.Attempts++
	e.LastError = cause.Error()
	e.UpdatedAt = now

	limit := e.MaxAttempts
	if limit <= 0 {
		limit = policy.MaxAttempts
	}
	if e.Attempts >= limit {
		e.Status = OutboxStatusDead
		return
	}
	e.Status = OutboxStatusFailed
	e.AvailableAt = now.Add(policy.Delay(e.Attempts))
}

// Requeue gives a dead entry a fresh set of attempts
func (e *OutboxEntry) Requeue(now time.Time) error {
	if e.Status != OutboxStatusDead {
		return fmt.Errorf("outbox entry %s is %s, only DEAD entries can be requeued", e.ID, e.Status)
	}
	e.Status = OutboxStatusPending
	e.Attempts = 0
	e.LastError = ""
	e.AvailableAt = now
	e.UpdatedAt = now
	return nil
}

// OutboxRepository persists outbox entries. ClaimDue must claim rows
// atomically so that concurrent processors never deliver the same entry twice.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// ClaimDue moves up to limit due entries to PROCESSING and returns them,
	// oldest AvailableAt first
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	ListByStatus(ctx context.Context, status OutboxStatus, limit int) ([]*OutboxEntry, error)
	// DeleteDeliveredBefore removes SENT entries delivered before the instant
	DeleteDeliveredBefore(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
