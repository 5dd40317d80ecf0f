package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hospital-registration/internal/model"
)

// OrderRepo provides persistence for registration orders. Orders move
// through their lifecycle via status updates only and are never
// physically deleted. Locking variants (…ForUpdateTx, NextWaitingTx)
// exist for the booking transaction, which serializes all activity on
// one (doctor, date) pool through row locks.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, account_id, department_id, doctor_id, availability_id, date, slot, status, is_waitlist, note, payment_id, created_at, updated_at`

func scanOrder(scan func(dest ...any) error) (*model.Order, error) {
	var o model.Order
	var availabilityID, paymentID sql.NullInt64
	var date time.Time
	var note sql.NullString
	if err := scan(&o.ID, &o.AccountID, &o.DepartmentID, &o.DoctorID, &availabilityID, &date, &o.Slot, &o.Status, &o.IsWaitlist, &note, &paymentID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Date = date.Format("2006-01-02")
	if availabilityID.Valid {
		id := uint64(availabilityID.Int64)
		o.AvailabilityID = &id
	}
	if paymentID.Valid {
		id := uint64(paymentID.Int64)
		o.PaymentID = &id
	}
	if note.Valid {
		n := note.String
		o.Note = &n
	}
	return &o, nil
}

// CreateTx inserts a new order within the scope of an existing
// transaction and reads the full row back so generated id and
// timestamps are populated. The caller must commit or rollback.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (account_id, department_id, doctor_id, availability_id, date, slot, status, is_waitlist, note)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var availabilityID any
	if o.AvailabilityID != nil {
		availabilityID = *o.AvailabilityID
	}
	var note any
	if o.Note != nil {
		note = *o.Note
	}
	res, err := tx.ExecContext(ctx, q, o.AccountID, o.DepartmentID, o.DoctorID, availabilityID, o.Date, o.Slot, o.Status, o.IsWaitlist, note)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.getTx(ctx, tx, uint64(id))
	if err != nil {
		return err
	}
	*o = *created
	return nil
}

// GetForUpdateTx locks the target order row for the remainder of the
// transaction. Returns ErrOrderNotFound for unresolvable ids.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	o, err := scanOrder(tx.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (r *OrderRepo) getTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	return scanOrder(tx.QueryRowContext(ctx, q, id).Scan)
}

// MarkCancelledTx flips the order to cancelled and unconditionally
// clears the waitlist flag so downstream views never misreport a
// cancelled order as still queued.
func (r *OrderRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE orders SET status = 'cancelled', is_waitlist = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

// NextWaitingTx locks and returns the earliest waiting waitlist order
// for the (doctor, date) pool — FIFO by creation time, ties broken by
// insertion order, irrespective of slot. Returns (nil, nil) when the
// waitlist is empty.
func (r *OrderRepo) NextWaitingTx(ctx context.Context, tx *sql.Tx, doctorID uint64, date string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders
	           WHERE doctor_id = ? AND date = ? AND status = 'waiting' AND is_waitlist = 1
	           ORDER BY created_at ASC, id ASC LIMIT 1 FOR UPDATE`
	o, err := scanOrder(tx.QueryRowContext(ctx, q, doctorID, date).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// PromoteTx confirms a waiting order in place and reads the updated row
// back for the promotion event payload.
func (r *OrderRepo) PromoteTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Order, error) {
	const q = `UPDATE orders SET status = 'confirmed', is_waitlist = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, id); err != nil {
		return nil, err
	}
	return r.getTx(ctx, tx, id)
}

// GetByID returns a single order outside any transaction. Returns
// ErrOrderNotFound for unresolvable ids.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// SetPaymentID links a payment raised for a confirmed order. This runs
// outside the booking transaction; the payment trigger is best-effort.
func (r *OrderRepo) SetPaymentID(ctx context.Context, orderID, paymentID uint64) error {
	const q = `UPDATE orders SET payment_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, paymentID, orderID)
	return err
}

// ConfirmPaid transitions a pending or waiting order to confirmed after
// its linked payment settles, clearing any stale waitlist flag.
func (r *OrderRepo) ConfirmPaid(ctx context.Context, orderID uint64) error {
	const q = `UPDATE orders SET status = 'confirmed', is_waitlist = 0, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status IN ('pending', 'waiting')`
	_, err := r.db.ExecContext(ctx, q, orderID)
	return err
}

// OrderListItem is an order enriched with payment info and, for
// waitlist entries, the patient's position in the FIFO queue. It is
// returned by ListByAccount for the patient-facing order views.
type OrderListItem struct {
	model.Order
	PaymentAmount *float64   `json:"payment_amount,omitempty"`
	PaymentStatus *string    `json:"payment_status,omitempty"`
	PaymentPaidAt *time.Time `json:"payment_paid_at,omitempty"`
	WaitPosition  int        `json:"wait_position"`
	WaitTotal     int        `json:"wait_total"`
}

// ListByAccount returns an account's orders newest first, each joined
// with its payment. Waitlist entries carry their queue position (orders
// ahead of them) and the day's total queue length. When waitlist is
// false, queued appointment requests are filtered out so the "orders"
// view shows only real bookings.
func (r *OrderRepo) ListByAccount(ctx context.Context, accountID uint64, waitlist bool) ([]OrderListItem, error) {
	q := `SELECT o.id, o.account_id, o.department_id, o.doctor_id, o.availability_id, o.date, o.slot,
	             o.status, o.is_waitlist, o.note, o.payment_id, o.created_at, o.updated_at,
	             p.amount, p.status, p.paid_at,
	             CASE WHEN o.is_waitlist = 1 THEN (
	               SELECT COUNT(1) FROM orders w
	               WHERE w.doctor_id = o.doctor_id AND w.date = o.date AND w.status = 'waiting'
	                 AND w.is_waitlist = 1 AND (w.created_at < o.created_at OR (w.created_at = o.created_at AND w.id < o.id))
	             ) ELSE 0 END,
	             CASE WHEN o.is_waitlist = 1 THEN (
	               SELECT COUNT(1) FROM orders w
	               WHERE w.doctor_id = o.doctor_id AND w.date = o.date AND w.status = 'waiting' AND w.is_waitlist = 1
	             ) ELSE 0 END
	      FROM orders o
	      LEFT JOIN payments p ON o.payment_id = p.id
	      WHERE o.account_id = ?`
	if !waitlist {
		q += ` AND NOT (o.is_waitlist = 1 OR o.status = 'waiting')`
	}
	q += ` ORDER BY o.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]OrderListItem, 0)
	for rows.Next() {
		var item OrderListItem
		var availabilityID, paymentID sql.NullInt64
		var date time.Time
		var note sql.NullString
		var amount sql.NullFloat64
		var payStatus sql.NullString
		var paidAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.AccountID, &item.DepartmentID, &item.DoctorID, &availabilityID,
			&date, &item.Slot, &item.Status, &item.IsWaitlist, &note, &paymentID, &item.CreatedAt, &item.UpdatedAt,
			&amount, &payStatus, &paidAt, &item.WaitPosition, &item.WaitTotal); err != nil {
			return nil, err
		}
		item.Date = date.Format("2006-01-02")
		if availabilityID.Valid {
			id := uint64(availabilityID.Int64)
			item.AvailabilityID = &id
		}
		if paymentID.Valid {
			id := uint64(paymentID.Int64)
			item.PaymentID = &id
		}
		if note.Valid {
			n := note.String
			item.Note = &n
		}
		if amount.Valid {
			a := amount.Float64
			item.PaymentAmount = &a
		}
		if payStatus.Valid {
			s := payStatus.String
			item.PaymentStatus = &s
		}
		if paidAt.Valid {
			t := paidAt.Time
			item.PaymentPaidAt = &t
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListByDoctorDate returns a doctor's orders, optionally filtered to a
// calendar day, newest first. Consumed by the doctor's day view.
func (r *OrderRepo) ListByDoctorDate(ctx context.Context, doctorID uint64, date string) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE doctor_id = ?`
	args := []any{doctorID}
	if date != "" {
		q += ` AND date = ?`
		args = append(args, date)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
