package model

import "time"

// Notification is a write-only projection of an order event. Rows are
// inserted by the event consumer for delivery tooling to pick up; the
// booking core never reads them back.
type Notification struct {
	ID        uint64    // notifications.id
	AccountID uint64    // notifications.account_id
	EventType string    // notifications.event_type
	Payload   []byte    // notifications.payload (raw event JSON)
	CreatedAt time.Time // notifications.created_at
}
