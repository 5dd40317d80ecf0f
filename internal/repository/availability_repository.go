package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/hospital-registration/internal/model"
)

// AvailabilityRepo manages the doctor_availability table: the shared
// per-doctor-per-date capacity/booked pool, replicated across one row
// per slot for calendar display. The shared-pool invariant — every row
// of one (doctor_id, date) carries identical capacity and booked — is
// maintained here: counter mutations always address the whole day, and
// Upsert re-synchronizes sibling rows after every write.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a new AvailabilityRepo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// DB exposes the underlying handle so services can begin transactions.
func (r *AvailabilityRepo) DB() *sql.DB { return r.db }

const availabilityColumns = `id, doctor_id, date, slot, capacity, booked, extra, created_at, updated_at`

// scanAvailability reads one doctor_availability row from any scanner
// (sql.Row or sql.Rows share the Scan signature).
func scanAvailability(scan func(dest ...any) error) (*model.Availability, error) {
	var a model.Availability
	var date time.Time
	var extra []byte
	if err := scan(&a.ID, &a.DoctorID, &date, &a.Slot, &a.Capacity, &a.Booked, &extra, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Date = date.Format("2006-01-02")
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &a.Extra); err != nil {
			return nil, err
		}
	}
	a.Available = a.Extra.AvailableByTier()
	return &a, nil
}

// LockPoolTx acquires exclusive row locks on every slot row of the
// (doctor, date) pool inside the caller's transaction and returns them
// ordered by slot. Because the rows are kept identical, the first row
// serves as the representative capacity/booked reading. An empty slice
// means the doctor has no pool for that day yet.
func (r *AvailabilityRepo) LockPoolTx(ctx context.Context, tx *sql.Tx, doctorID uint64, date string) ([]model.Availability, error) {
	const q = `SELECT ` + availabilityColumns + ` FROM doctor_availability
	           WHERE doctor_id = ? AND date = ? ORDER BY slot FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pool := make([]model.Availability, 0, 4)
	for rows.Next() {
		a, err := scanAvailability(rows.Scan)
		if err != nil {
			return nil, err
		}
		pool = append(pool, *a)
	}
	return pool, rows.Err()
}

// EnsureTx inserts the default one-seat row for a (doctor, date, slot)
// that has no pool yet. Booking against a doctor with no published
// availability silently creates this pool instead of failing.
func (r *AvailabilityRepo) EnsureTx(ctx context.Context, tx *sql.Tx, doctorID uint64, date, slot string) (*model.Availability, error) {
	const ins = `INSERT INTO doctor_availability (doctor_id, date, slot, capacity, booked) VALUES (?, ?, ?, 1, 0)`
	res, err := tx.ExecContext(ctx, ins, doctorID, date, slot)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	const sel = `SELECT ` + availabilityColumns + ` FROM doctor_availability WHERE id = ?`
	return scanAvailability(tx.QueryRowContext(ctx, sel, id).Scan)
}

// IncrementBookedTx adds one unit to the shared booked counter across
// all rows of the pool. Callers must hold the pool lock.
func (r *AvailabilityRepo) IncrementBookedTx(ctx context.Context, tx *sql.Tx, doctorID uint64, date string) error {
	const q = `UPDATE doctor_availability SET booked = booked + 1 WHERE doctor_id = ? AND date = ?`
	_, err := tx.ExecContext(ctx, q, doctorID, date)
	return err
}

// DecrementBookedTx subtracts one unit from the shared booked counter
// across all rows of the pool, never dropping below zero. Callers must
// hold the pool lock.
func (r *AvailabilityRepo) DecrementBookedTx(ctx context.Context, tx *sql.Tx, doctorID uint64, date string) error {
	const q = `UPDATE doctor_availability SET booked = booked - 1 WHERE doctor_id = ? AND date = ? AND booked > 0`
	_, err := tx.ExecContext(ctx, q, doctorID, date)
	return err
}

// Upsert is the admin-facing pool write. It locks the day's rows,
// updates or inserts the addressed slot, then propagates the resulting
// capacity and extra to every sibling row so the shared-pool invariant
// holds. It returns all rows for the doctor/date after the write.
func (r *AvailabilityRepo) Upsert(ctx context.Context, doctorID uint64, date, slot string, capacity int, extra model.Extra) ([]model.Availability, error) {
	if err := extra.Validate(); err != nil {
		return nil, err
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	pool, err := r.LockPoolTx(ctx, tx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		// First slot of the day: insert with the requested capacity.
		if capacity < 1 {
			capacity = 1
		}
		const ins = `INSERT INTO doctor_availability (doctor_id, date, slot, capacity, booked, extra) VALUES (?, ?, ?, ?, 0, ?)`
		if _, err := tx.ExecContext(ctx, ins, doctorID, date, slot, capacity, extraJSON); err != nil {
			return nil, err
		}
	} else {
		dayCapacity := capacity
		if dayCapacity < 1 {
			dayCapacity = pool[0].Capacity
		}
		exists := false
		for _, a := range pool {
			if a.Slot == slot {
				exists = true
				break
			}
		}
		if !exists {
			// New slot inherits the day-level booked counter so the
			// rows stay interchangeable.
			const ins = `INSERT INTO doctor_availability (doctor_id, date, slot, capacity, booked, extra) VALUES (?, ?, ?, ?, ?, ?)`
			if _, err := tx.ExecContext(ctx, ins, doctorID, date, slot, dayCapacity, pool[0].Booked, extraJSON); err != nil {
				return nil, err
			}
		}
		// Sync capacity and extra to every row of the day, the
		// addressed slot included.
		const sync = `UPDATE doctor_availability SET capacity = ?, extra = ?, updated_at = CURRENT_TIMESTAMP WHERE doctor_id = ? AND date = ?`
		if _, err := tx.ExecContext(ctx, sync, dayCapacity, extraJSON, doctorID, date); err != nil {
			return nil, err
		}
	}

	const sel = `SELECT ` + availabilityColumns + ` FROM doctor_availability WHERE doctor_id = ? AND date = ? ORDER BY slot`
	rows, err := tx.QueryContext(ctx, sel, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Availability, 0, len(pool)+1)
	for rows.Next() {
		a, err := scanAvailability(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// GetByDoctor returns a doctor's availability rows, optionally filtered
// to one calendar day. Pass an empty date for the full calendar.
func (r *AvailabilityRepo) GetByDoctor(ctx context.Context, doctorID uint64, date string) ([]model.Availability, error) {
	q := `SELECT ` + availabilityColumns + ` FROM doctor_availability WHERE doctor_id = ?`
	args := []any{doctorID}
	if date != "" {
		q += ` AND date = ?`
		args = append(args, date)
	}
	q += ` ORDER BY date, slot`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Availability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListAll returns every availability row, newest day first. Consumed by
// admin tooling only.
func (r *AvailabilityRepo) ListAll(ctx context.Context) ([]model.Availability, error) {
	const q = `SELECT ` + availabilityColumns + ` FROM doctor_availability ORDER BY date DESC, doctor_id, slot`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Availability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
