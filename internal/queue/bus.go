package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the narrow publish surface services depend on, so tests
// can substitute a fake bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BusConfig carries the broker settings for a Bus.
type BusConfig struct {
	URL              string        // amqp:// connection string
	ConnectRetries   int           // dial attempts beyond the first
	ConnectBaseDelay time.Duration // backoff base, doubled per attempt
}

// Bus is the process-wide event bus client. It is constructed once at
// startup and passed by reference to everything that publishes or
// subscribes. The broker connection is established lazily on first
// use; when the bounded connect retries are exhausted the bus disables
// itself for the process lifetime and every later publish or subscribe
// becomes a logged no-op. Booking must keep working with the broker
// down, so the bus fails open rather than surfacing connection errors.
type Bus struct {
	cfg BusConfig

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	confirmCh *amqp.Channel // nil when the broker rejects confirm mode
	disabled  bool
}

// NewBus returns an unconnected Bus. Zero retry/delay values fall back
// to 10 attempts from a one second base, matching the connect policy
// the service has always shipped with.
func NewBus(cfg BusConfig) *Bus {
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = 10
	}
	if cfg.ConnectBaseDelay <= 0 {
		cfg.ConnectBaseDelay = time.Second
	}
	return &Bus{cfg: cfg}
}

// Disabled reports whether the bus has given up on the broker.
func (b *Bus) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

// connectLocked establishes the connection, channels and exchange. The
// caller must hold b.mu. After exhausting retries it flips the bus into
// its disabled state and returns nil; callers check b.disabled.
func (b *Bus) connectLocked(ctx context.Context) error {
	if b.disabled || b.ch != nil {
		return nil
	}
	delay := b.cfg.ConnectBaseDelay
	for attempt := 0; attempt <= b.cfg.ConnectRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
		conn, err := amqp.Dial(b.cfg.URL)
		if err != nil {
			log.Printf("queue: connect attempt %d/%d failed: %v", attempt+1, b.cfg.ConnectRetries+1, err)
			continue
		}
		ch, err := conn.Channel()
		if err != nil {
			log.Printf("queue: channel open failed: %v", err)
			_ = conn.Close()
			continue
		}
		if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
			log.Printf("queue: exchange declare failed: %v", err)
			_ = ch.Close()
			_ = conn.Close()
			continue
		}
		// Second channel in confirm mode for acknowledged publishes.
		// Brokers without publisher confirms leave confirmCh nil and
		// publishes degrade to fire-and-forget.
		confirmCh, err := conn.Channel()
		if err == nil {
			if err := confirmCh.Confirm(false); err != nil {
				log.Printf("queue: confirm mode unavailable, falling back to plain channel: %v", err)
				_ = confirmCh.Close()
				confirmCh = nil
			}
		} else {
			log.Printf("queue: confirm channel open failed, falling back to plain channel: %v", err)
			confirmCh = nil
		}
		b.conn = conn
		b.ch = ch
		b.confirmCh = confirmCh
		log.Printf("queue: connected to %s", b.cfg.URL)
		return nil
	}
	log.Printf("queue: connection failed after %d attempts, disabling event publishing for this process", b.cfg.ConnectRetries+1)
	b.disabled = true
	b.conn = nil
	b.ch = nil
	b.confirmCh = nil
	return nil
}

// Publish serializes the payload to JSON and publishes it persistently
// under the routing key. With a confirm channel available it waits for
// the broker's acknowledgment and returns an error when the message is
// rejected; without one the publish is fire-and-forget. On a disabled
// bus the call logs and succeeds silently.
func (b *Bus) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.connectLocked(ctx); err != nil {
		return err
	}
	if b.disabled {
		log.Printf("queue: publish skipped (bus disabled) routing_key=%s", routingKey)
		return nil
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if b.confirmCh != nil {
		dc, err := b.confirmCh.PublishWithDeferredConfirmWithContext(ctx, Exchange, routingKey, false, false, pub)
		if err != nil {
			return fmt.Errorf("publish %s: %w", routingKey, err)
		}
		acked, err := dc.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("confirm %s: %w", routingKey, err)
		}
		if !acked {
			return fmt.Errorf("broker rejected publish for %s", routingKey)
		}
		return nil
	}
	// No delivery guarantee on this path.
	if err := b.ch.PublishWithContext(ctx, Exchange, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Subscribe binds an exclusive auto-named queue to the topic exchange
// with the given pattern (wildcard segments supported) and consumes it
// with manual acknowledgment on a background goroutine. Handler success
// acks the delivery; handler failure rejects it without requeue — with
// no dead-letter exchange configured the message is dropped, a known
// gap. On a disabled bus the call logs and does nothing.
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	b.mu.Lock()
	if err := b.connectLocked(ctx); err != nil {
		b.mu.Unlock()
		return err
	}
	if b.disabled {
		b.mu.Unlock()
		log.Printf("queue: subscribe skipped (bus disabled) pattern=%s", pattern)
		return nil
	}
	ch := b.ch
	b.mu.Unlock()

	q, err := ch.QueueDeclare("", false, false, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, pattern, Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", pattern, err)
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	go func() {
		for d := range msgs {
			if err := handler(d.Body, Meta{RoutingKey: d.RoutingKey}); err != nil {
				log.Printf("queue: handler failed for %s: %v", d.RoutingKey, err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
		log.Printf("queue: deliveries channel closed for pattern=%s", pattern)
	}()
	log.Printf("queue: subscribed queue=%s pattern=%s", q.Name, pattern)
	return nil
}

// Close tears down the channels and connection. Safe to call on a bus
// that never connected.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.confirmCh != nil {
		_ = b.confirmCh.Close()
		b.confirmCh = nil
	}
	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}
	if b.conn != nil {
		err := b.conn.Close()
		b.conn = nil
		return err
	}
	return nil
}
