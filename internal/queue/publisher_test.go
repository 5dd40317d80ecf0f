package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBus fails the first failures publishes, then succeeds, recording
// every routing key and payload it sees.
type fakeBus struct {
	failures int
	calls    int
	keys     []string
	payloads []any
}

func (f *fakeBus) Publish(ctx context.Context, routingKey string, payload any) error {
	f.calls++
	f.keys = append(f.keys, routingKey)
	f.payloads = append(f.payloads, payload)
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func newTestOrderEvents(bus Publisher, sleeps *[]time.Duration) *OrderEvents {
	p := NewOrderEvents(bus)
	p.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return p
}

func TestPublishOrderEventFirstAttempt(t *testing.T) {
	bus := &fakeBus{}
	var sleeps []time.Duration
	p := newTestOrderEvents(bus, &sleeps)

	err := p.PublishOrderEvent(context.Background(), "created", map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, bus.calls)
	assert.Empty(t, sleeps)
	assert.Equal(t, []string{"order.created"}, bus.keys)

	env, ok := bus.payloads[0].(Envelope)
	require.True(t, ok)
	assert.Equal(t, "order.created", env.Event)
	assert.NotZero(t, env.Ts)
}

func TestPublishOrderEventRetriesWithBackoff(t *testing.T) {
	bus := &fakeBus{failures: 2}
	var sleeps []time.Duration
	p := newTestOrderEvents(bus, &sleeps)

	err := p.PublishOrderEvent(context.Background(), "promoted", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, bus.calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, sleeps)
}

func TestPublishOrderEventExhaustsRetries(t *testing.T) {
	bus := &fakeBus{failures: 10}
	var sleeps []time.Duration
	p := newTestOrderEvents(bus, &sleeps)

	err := p.PublishOrderEvent(context.Background(), "cancelled", CancelledData{OrderID: 42, CancelledBy: "7"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order.cancelled")
	assert.Equal(t, 4, bus.calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}, sleeps)
}
