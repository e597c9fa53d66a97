package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeEvent struct {
	BaseDomainEvent
}

func newProbeEvent() *probeEvent {
	return &probeEvent{BaseDomainEvent: NewBaseDomainEvent("StockReserved", "StockItem", uuid.New(), uuid.New())}
}

func TestNewOutboxEntry(t *testing.T) {
	ev := newProbeEvent()
	entry := NewOutboxEntry(ev, []byte(`{"quantity":3}`))

	assert.Equal(t, ev.EventID(), entry.EventID)
	assert.Equal(t, "StockReserved", entry.EventType)
	assert.Equal(t, ev.AggregateID(), entry.AggregateID)
	assert.Equal(t, "StockItem", entry.AggregateType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultRetryPolicy().MaxAttempts, entry.MaxAttempts)
	assert.True(t, entry.Due(time.Now()))
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Zero(t, policy.Delay(0))
	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 8*time.Second, policy.Delay(4))
	assert.Equal(t, 10*time.Second, policy.Delay(5), "capped")
	assert.Equal(t, 10*time.Second, policy.Delay(40))

	uncapped := RetryPolicy{BaseDelay: time.Millisecond}
	assert.Equal(t, 16*time.Millisecond, uncapped.Delay(5))
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute}

	t.Run("claim then deliver", func(t *testing.T) {
		entry := NewOutboxEntry(newProbeEvent(), nil)
		entry.AvailableAt = now

		require.NoError(t, entry.Claim(now))
		assert.Equal(t, OutboxStatusProcessing, entry.Status)
		assert.False(t, entry.Due(now), "claimed entries are not due")

		entry.Delivered(now)
		assert.Equal(t, OutboxStatusSent, entry.Status)
		require.NotNil(t, entry.DeliveredAt)
		assert.Equal(t, now, *entry.DeliveredAt)
		assert.Error(t, entry.Claim(now))
	})

	t.Run("entries are not due before they are available", func(t *testing.T) {
		entry := NewOutboxEntry(newProbeEvent(), nil)
		entry.AvailableAt = now.Add(time.Second)

		assert.False(t, entry.Due(now))
		assert.Error(t, entry.Claim(now))
		assert.True(t, entry.Due(now.Add(time.Second)))
	})

	t.Run("failures back off then go dead", func(t *testing.T) {
		entry := NewOutboxEntry(newProbeEvent(), nil)
		entry.MaxAttempts = 3
		boom := errors.New("kafka: leader not available")

		require.NoError(t, entry.Claim(now))
		entry.Failed(boom, policy, now)
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, now.Add(time.Second), entry.AvailableAt)
		assert.False(t, entry.Due(now))
		assert.True(t, entry.Due(now.Add(time.Second)))

		require.NoError(t, entry.Claim(now.Add(time.Second)))
		entry.Failed(boom, policy, now)
		assert.Equal(t, now.Add(2*time.Second), entry.AvailableAt)

		entry.Failed(boom, policy, now)
		assert.Equal(t, OutboxStatusDead, entry.Status)
		assert.Equal(t, 3, entry.Attempts)
		assert.Equal(t, boom.Error(), entry.LastError)
		assert.False(t, entry.Due(now.Add(time.Hour)))
	})

	t.Run("zero max attempts falls back to the policy", func(t *testing.T) {
		entry := NewOutboxEntry(newProbeEvent(), nil)
		entry.MaxAttempts = 0
		for i := 0; i < policy.MaxAttempts; i++ {
			entry.Failed(errors.New("boom"), policy, now)
		}
		assert.Equal(t, OutboxStatusDead, entry.Status)
	})

	t.Run("dead entries requeue with fresh attempts", func(t *testing.T) {
		entry := NewOutboxEntry(newProbeEvent(), nil)
		entry.MaxAttempts = 1
		entry.Failed(errors.New("boom"), policy, now)
		require.Equal(t, OutboxStatusDead, entry.Status)

		later := now.Add(time.Hour)
		require.NoError(t, entry.Requeue(later))
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.Attempts)
		assert.Empty(t, entry.LastError)
		assert.True(t, entry.Due(later))
	})

	t.Run("only dead entries requeue", func(t *testing.T) {
		entry := NewOutboxEntry(newProbeEvent(), nil)
		assert.Error(t, entry.Requeue(now))
	})
}
