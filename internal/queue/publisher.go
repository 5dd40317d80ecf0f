package queue

import (
	"context"
	"fmt"
	"log"
	"time"
)

// OrderEvents publishes the order event family with a bounded retry
// policy on top of the bus. A publish that exhausts its retries
// surfaces the error to the caller — by then the booking transaction
// has already committed, so callers only log it; the booking's success
// is authoritative even if its event is never delivered.
type OrderEvents struct {
	bus       Publisher
	retries   int
	baseDelay time.Duration
	sleep     func(time.Duration)
}

// NewOrderEvents wraps the bus with the default policy of 3 retry
// attempts backing off exponentially from 200ms.
func NewOrderEvents(bus Publisher) *OrderEvents {
	return &OrderEvents{bus: bus, retries: 3, baseDelay: 200 * time.Millisecond, sleep: time.Sleep}
}

// PublishOrderEvent wraps data in the standard envelope and publishes
// it under order.<eventType>, retrying with exponential backoff.
func (p *OrderEvents) PublishOrderEvent(ctx context.Context, eventType string, data any) error {
	routingKey := "order." + eventType
	env := Envelope{Event: routingKey, Data: data, Ts: time.Now().UnixMilli()}
	delay := p.baseDelay
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			p.sleep(delay)
			delay *= 2
		}
		if err := p.bus.Publish(ctx, routingKey, env); err != nil {
			lastErr = err
			log.Printf("queue: publish attempt %d/%d failed for %s: %v", attempt+1, p.retries+1, routingKey, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("publish %s after %d attempts: %w", routingKey, p.retries+1, lastErr)
}
