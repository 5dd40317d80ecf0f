package queue

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hospital-registration/internal/repository"
)

func newConsumerFixture(t *testing.T) (*NotificationConsumer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNotificationConsumer(repository.NewNotificationRepo(db)), mock
}

func TestNotificationTypeMapping(t *testing.T) {
	assert.Equal(t, "appointment_created", notificationType(OrderCreated))
	assert.Equal(t, "waitlist_entered", notificationType(OrderWaiting))
	assert.Equal(t, "waitlist_promoted", notificationType(OrderPromoted))
	assert.Equal(t, "appointment_cancelled", notificationType(OrderCancelled))
	assert.Equal(t, "order_event", notificationType("order.rescheduled"))
}

func TestHandlePersistsNotification(t *testing.T) {
	c, mock := newConsumerFixture(t)
	body := []byte(`{"event":"order.created","data":{"id":42,"account_id":7},"ts":1700000000000}`)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(uint64(7), "appointment_created", body).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := c.Handle(body, Meta{RoutingKey: OrderCreated})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleFallsBackToEnvelopeEvent(t *testing.T) {
	c, mock := newConsumerFixture(t)
	body := []byte(`{"event":"order.promoted","data":{"id":11,"account_id":8},"ts":1700000000000}`)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(uint64(8), "waitlist_promoted", body).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := c.Handle(body, Meta{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleDropsEventsWithoutRecipient(t *testing.T) {
	c, mock := newConsumerFixture(t)

	// Cancellation payloads carry no account_id; the event is
	// acknowledged without writing a notification.
	body := []byte(`{"event":"order.cancelled","data":{"orderId":42,"cancelledBy":"7"},"ts":1700000000000}`)
	err := c.Handle(body, Meta{RoutingKey: OrderCancelled})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	c, _ := newConsumerFixture(t)
	err := c.Handle([]byte("not json"), Meta{RoutingKey: OrderCreated})
	assert.Error(t, err)
}

func TestHandlePropagatesInsertFailure(t *testing.T) {
	c, mock := newConsumerFixture(t)
	body := []byte(`{"event":"order.waiting","data":{"id":43,"account_id":7},"ts":1700000000000}`)

	mock.ExpectExec("INSERT INTO notifications").
		WillReturnError(errors.New("connection lost"))

	err := c.Handle(body, Meta{RoutingKey: OrderWaiting})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
