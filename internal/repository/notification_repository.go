package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hospital-registration/internal/model"
)

// NotificationRepo appends rows to the write-only notifications
// projection. The booking core never reads these back; delivery
// tooling consumes the table on its own schedule.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert stores one notification carrying the mapped event type and the
// raw event payload.
func (r *NotificationRepo) Insert(ctx context.Context, n model.Notification) error {
	const q = `INSERT INTO notifications (account_id, event_type, payload) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, n.AccountID, n.EventType, n.Payload)
	return err
}
