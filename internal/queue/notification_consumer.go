package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/iliyamo/hospital-registration/internal/model"
	"github.com/iliyamo/hospital-registration/internal/repository"
)

// NotificationConsumer projects order events into the notifications
// table. It is a downstream subscriber like any other: it binds
// "order.#" on the shared bus and consumes independently of booking.
type NotificationConsumer struct {
	notifications *repository.NotificationRepo
}

// NewNotificationConsumer constructs the consumer over its repository.
func NewNotificationConsumer(notifications *repository.NotificationRepo) *NotificationConsumer {
	if notifications == nil {
		panic("nil repository passed to NewNotificationConsumer")
	}
	return &NotificationConsumer{notifications: notifications}
}

// notificationType maps a routing key to the persisted notification
// type. Unknown keys under order.* fall back to the generic order_event.
func notificationType(routingKey string) string {
	switch routingKey {
	case OrderCreated:
		return "appointment_created"
	case OrderWaiting:
		return "waitlist_entered"
	case OrderPromoted:
		return "waitlist_promoted"
	case OrderCancelled:
		return "appointment_cancelled"
	}
	return "order_event"
}

// Handle processes one order event. Events whose data carries no
// account_id have no recipient to notify; they are logged and dropped
// without an error so the delivery is still acknowledged. Database
// failures propagate so the bus rejects the message.
func (c *NotificationConsumer) Handle(body []byte, meta Meta) error {
	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	routingKey := meta.RoutingKey
	if routingKey == "" {
		routingKey = env.Event
	}
	var data struct {
		AccountID uint64 `json:"account_id"`
	}
	if len(env.Data) > 0 {
		// Tolerate payloads that are not objects (ignored below).
		_ = json.Unmarshal(env.Data, &data)
	}
	if data.AccountID == 0 {
		log.Printf("queue: order event %s carries no account_id, skipping notification", routingKey)
		return nil
	}
	n := model.Notification{
		AccountID: data.AccountID,
		EventType: notificationType(routingKey),
		Payload:   body,
	}
	if err := c.notifications.Insert(context.Background(), n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Run subscribes the consumer to the order event family.
func (c *NotificationConsumer) Run(ctx context.Context, bus *Bus) error {
	return bus.Subscribe(ctx, "order.#", c.Handle)
}
