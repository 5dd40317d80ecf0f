package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hospital-registration/internal/model"
)

// PaymentRepo persists registration payments. A payment is raised when
// a confirmed order carries a non-zero fee; settlement is simulated by
// MarkPaid (real provider integration lives outside this service).
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, account_id, order_id, amount, currency, status, paid_at, created_at, updated_at`

func scanPayment(scan func(dest ...any) error) (*model.Payment, error) {
	var p model.Payment
	var orderID sql.NullInt64
	var paidAt sql.NullTime
	if err := scan(&p.ID, &p.AccountID, &orderID, &p.Amount, &p.Currency, &p.Status, &paidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if orderID.Valid {
		id := uint64(orderID.Int64)
		p.OrderID = &id
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return &p, nil
}

// Create inserts a payment in status "created" and reads the full row
// back. Currency defaults to CNY when empty.
func (r *PaymentRepo) Create(ctx context.Context, accountID uint64, orderID *uint64, amount float64, currency string) (*model.Payment, error) {
	if currency == "" {
		currency = "CNY"
	}
	var oid any
	if orderID != nil {
		oid = *orderID
	}
	const q = `INSERT INTO payments (account_id, order_id, amount, currency, status) VALUES (?, ?, ?, ?, 'created')`
	res, err := r.db.ExecContext(ctx, q, accountID, oid, amount, currency)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns a single payment. Returns ErrPaymentNotFound for
// unresolvable ids.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

// MarkPaid settles a payment and returns the updated row.
func (r *PaymentRepo) MarkPaid(ctx context.Context, id uint64, paidAt time.Time) (*model.Payment, error) {
	const q = `UPDATE payments SET status = 'paid', paid_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, paidAt.UTC(), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrPaymentNotFound
	}
	return r.GetByID(ctx, id)
}

// ListByAccount returns an account's payments newest first.
func (r *PaymentRepo) ListByAccount(ctx context.Context, accountID uint64) ([]model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE account_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
