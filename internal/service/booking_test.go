package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hospital-registration/internal/model"
	"github.com/iliyamo/hospital-registration/internal/queue"
	"github.com/iliyamo/hospital-registration/internal/repository"
)

// publishRecorder captures published order events in order. A non-nil
// err makes every publish fail, exercising the fail-open path.
type publishRecorder struct {
	events []string
	data   []any
	err    error
}

func (p *publishRecorder) PublishOrderEvent(ctx context.Context, eventType string, data any) error {
	p.events = append(p.events, eventType)
	p.data = append(p.data, data)
	return p.err
}

var availabilityCols = []string{"id", "doctor_id", "date", "slot", "capacity", "booked", "extra", "created_at", "updated_at"}

var orderCols = []string{"id", "account_id", "department_id", "doctor_id", "availability_id", "date", "slot", "status", "is_waitlist", "note", "payment_id", "created_at", "updated_at"}

func poolRow(rows *sqlmock.Rows, id, doctorID uint64, day time.Time, slot string, capacity, booked int) *sqlmock.Rows {
	return rows.AddRow(id, doctorID, day, slot, capacity, booked, []byte(`{}`), day, day)
}

func orderRow(rows *sqlmock.Rows, id, accountID, doctorID uint64, day time.Time, slot string, status model.OrderStatus, waitlist bool) *sqlmock.Rows {
	return rows.AddRow(id, accountID, 1, doctorID, nil, day, slot, string(status), waitlist, nil, nil, day, day)
}

func newBookingFixture(t *testing.T, events OrderEventPublisher) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewBookingService(db, repository.NewAvailabilityRepo(db), repository.NewOrderRepo(db), events)
	return svc, mock
}

func TestCreateConfirmsWhileSeatsRemain(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM doctor_availability").
		WillReturnRows(poolRow(sqlmock.NewRows(availabilityCols), 3, 9, day, "8-10", 3, 1))
	mock.ExpectExec(`booked = booked \+ 1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery("FROM orders WHERE id").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 42, 7, 9, day, "8-10", model.OrderConfirmed, false))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), CreateOrderInput{
		AccountID: 7, DepartmentID: 1, DoctorID: 9, Date: "2026-09-01", Slot: "8-10",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), order.ID)
	assert.Equal(t, model.OrderConfirmed, order.Status)
	assert.False(t, order.IsWaitlist)
	assert.Equal(t, []string{"created"}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWaitlistsWhenPoolFull(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Full pool: booked == capacity, no counter mutation may happen.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM doctor_availability").
		WillReturnRows(poolRow(sqlmock.NewRows(availabilityCols), 3, 9, day, "8-10", 2, 2))
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectQuery("FROM orders WHERE id").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 43, 7, 9, day, "8-10", model.OrderWaiting, true))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), CreateOrderInput{
		AccountID: 7, DepartmentID: 1, DoctorID: 9, Date: "2026-09-01", Slot: "8-10",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderWaiting, order.Status)
	assert.True(t, order.IsWaitlist)
	assert.Equal(t, []string{"waiting"}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateForceWaitlistNeverTouchesBooked(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Plenty of free seats, yet the order must queue and the booked
	// counter must stay untouched.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM doctor_availability").
		WillReturnRows(poolRow(sqlmock.NewRows(availabilityCols), 3, 9, day, "8-10", 5, 0))
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(44, 1))
	mock.ExpectQuery("FROM orders WHERE id").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 44, 7, 9, day, "8-10", model.OrderWaiting, true))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), CreateOrderInput{
		AccountID: 7, DepartmentID: 1, DoctorID: 9, Date: "2026-09-01", Slot: "8-10", ForceWaitlist: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderWaiting, order.Status)
	assert.True(t, order.IsWaitlist)
	assert.Equal(t, []string{"waiting"}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBootstrapsMissingPool(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM doctor_availability").
		WillReturnRows(sqlmock.NewRows(availabilityCols))
	mock.ExpectExec("INSERT INTO doctor_availability").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM doctor_availability WHERE id").
		WillReturnRows(poolRow(sqlmock.NewRows(availabilityCols), 5, 9, day, "8-10", 1, 0))
	mock.ExpectExec(`booked = booked \+ 1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(45, 1))
	mock.ExpectQuery("FROM orders WHERE id").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 45, 7, 9, day, "8-10", model.OrderConfirmed, false))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), CreateOrderInput{
		AccountID: 7, DepartmentID: 1, DoctorID: 9, Date: "2026-09-01", Slot: "8-10",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, order.Status)
	assert.Equal(t, []string{"created"}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSucceedsWhenPublishFails(t *testing.T) {
	rec := &publishRecorder{err: errors.New("broker down")}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM doctor_availability").
		WillReturnRows(poolRow(sqlmock.NewRows(availabilityCols), 3, 9, day, "8-10", 3, 0))
	mock.ExpectExec(`booked = booked \+ 1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(46, 1))
	mock.ExpectQuery("FROM orders WHERE id").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 46, 7, 9, day, "8-10", model.OrderConfirmed, false))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), CreateOrderInput{
		AccountID: 7, DepartmentID: 1, DoctorID: 9, Date: "2026-09-01", Slot: "8-10",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, order.Status)
	assert.Equal(t, []string{"created"}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsBadDate(t *testing.T) {
	svc, mock := newBookingFixture(t, &publishRecorder{})
	_, err := svc.Create(context.Background(), CreateOrderInput{
		AccountID: 7, DepartmentID: 1, DoctorID: 9, Date: "soon", Slot: "8-10",
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelPromotesEarliestWaiting(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id (.+) FOR UPDATE").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 42, 7, 9, day, "8-10", model.OrderConfirmed, false))
	mock.ExpectExec("UPDATE orders SET status = 'cancelled'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM doctor_availability").
		WillReturnRows(poolRow(sqlmock.NewRows(availabilityCols), 3, 9, day, "8-10", 2, 2))
	mock.ExpectExec("booked = booked - 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("ORDER BY created_at ASC, id ASC LIMIT 1 FOR UPDATE").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 11, 8, 9, day, "10-12", model.OrderWaiting, true))
	mock.ExpectExec("UPDATE orders SET status = 'confirmed'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM orders WHERE id").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 11, 8, 9, day, "10-12", model.OrderConfirmed, false))
	mock.ExpectExec(`booked = booked \+ 1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Cancel(context.Background(), 42, "7")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)
	assert.Equal(t, []string{"promoted", "cancelled"}, rec.events)

	promoted, ok := rec.data[0].(*model.Order)
	require.True(t, ok)
	assert.Equal(t, uint64(11), promoted.ID)
	assert.Equal(t, model.OrderConfirmed, promoted.Status)

	cancelled, ok := rec.data[1].(queue.CancelledData)
	require.True(t, ok)
	assert.Equal(t, queue.CancelledData{OrderID: 42, CancelledBy: "7"}, cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithoutWaitlistLeavesSeatFree(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id (.+) FOR UPDATE").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 42, 7, 9, day, "8-10", model.OrderConfirmed, false))
	mock.ExpectExec("UPDATE orders SET status = 'cancelled'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM doctor_availability").
		WillReturnRows(poolRow(sqlmock.NewRows(availabilityCols), 3, 9, day, "8-10", 2, 1))
	mock.ExpectExec("booked = booked - 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("ORDER BY created_at ASC, id ASC LIMIT 1 FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectCommit()

	_, err := svc.Cancel(context.Background(), 42, "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"cancelled"}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWaitingOrderSkipsPool(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// A waitlisted order never held a seat, so the pool is untouched.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id (.+) FOR UPDATE").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 43, 7, 9, day, "8-10", model.OrderWaiting, true))
	mock.ExpectExec("UPDATE orders SET status = 'cancelled'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Cancel(context.Background(), 43, "7")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)
	assert.False(t, order.IsWaitlist)
	assert.Equal(t, []string{"cancelled"}, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelIsIdempotent(t *testing.T) {
	rec := &publishRecorder{}
	svc, mock := newBookingFixture(t, rec)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id (.+) FOR UPDATE").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), 42, 7, 9, day, "8-10", model.OrderCancelled, false))
	mock.ExpectRollback()

	order, err := svc.Cancel(context.Background(), 42, "7")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)
	assert.Empty(t, rec.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelUnknownOrder(t *testing.T) {
	svc, mock := newBookingFixture(t, &publishRecorder{})

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id (.+) FOR UPDATE").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), 999, "7")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
