package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hospital-registration/internal/model"
)

// DoctorRepo reads the doctor catalog. Doctors are reference data
// managed by admin tooling outside this service; the booking core only
// ever reads them for browsing and display.
type DoctorRepo struct {
	db *sql.DB
}

// NewDoctorRepo returns a new DoctorRepo bound to the given database.
func NewDoctorRepo(db *sql.DB) *DoctorRepo { return &DoctorRepo{db: db} }

const doctorColumns = `id, account_id, department_id, name, title, created_at, updated_at`

func scanDoctor(scan func(dest ...any) error) (*model.Doctor, error) {
	var d model.Doctor
	var accountID sql.NullInt64
	var title sql.NullString
	if err := scan(&d.ID, &accountID, &d.DepartmentID, &d.Name, &title, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if accountID.Valid {
		id := uint64(accountID.Int64)
		d.AccountID = &id
	}
	if title.Valid {
		t := title.String
		d.Title = &t
	}
	return &d, nil
}

// GetByID returns a single doctor. Returns ErrDoctorNotFound for
// unresolvable ids.
func (r *DoctorRepo) GetByID(ctx context.Context, id uint64) (*model.Doctor, error) {
	const q = `SELECT ` + doctorColumns + ` FROM doctors WHERE id = ?`
	d, err := scanDoctor(r.db.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

// List returns the doctor catalog, optionally filtered to one
// department. Pass 0 for the whole catalog.
func (r *DoctorRepo) List(ctx context.Context, departmentID uint64) ([]model.Doctor, error) {
	q := `SELECT ` + doctorColumns + ` FROM doctors`
	args := []any{}
	if departmentID != 0 {
		q += ` WHERE department_id = ?`
		args = append(args, departmentID)
	}
	q += ` ORDER BY department_id, name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Doctor, 0)
	for rows.Next() {
		d, err := scanDoctor(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
