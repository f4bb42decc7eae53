package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ucampus/lab-reservation/internal/model"
)

// LabRepo provides CRUD access to the labs table.  Timestamps are stored in
// UTC; the caller receives them as time.Time via the driver's parseTime
// support.
type LabRepo struct {
	db *sql.DB
}

// NewLabRepo returns a LabRepo bound to the given database.
func NewLabRepo(db *sql.DB) *LabRepo { return &LabRepo{db: db} }

const labColumns = `id, department_id, code, name, location, capacity, contact_email, is_active, created_at, updated_at`

func scanLab(row interface{ Scan(...any) error }) (model.Lab, error) {
	var l model.Lab
	err := row.Scan(&l.ID, &l.DepartmentID, &l.Code, &l.Name, &l.Location,
		&l.Capacity, &l.ContactEmail, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// Create inserts a lab after verifying its department exists.  A duplicate
// internal code surfaces as a MySQL 1062 error which is passed through so
// the handler can report the conflict.
func (r *LabRepo) Create(ctx context.Context, l *model.Lab) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM departments WHERE id = ?`, l.DepartmentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDepartmentNotFound
	}
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO labs (department_id, code, name, location, capacity, contact_email, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.DepartmentID, l.Code, l.Name, l.Location, l.Capacity, l.ContactEmail, l.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	got, err := r.GetByID(ctx, l.ID)
	if err != nil {
		return err
	}
	*l = got
	return nil
}

// GetByID fetches a single lab.  Returns ErrLabNotFound when no row exists.
func (r *LabRepo) GetByID(ctx context.Context, id uint64) (model.Lab, error) {
	l, err := scanLab(r.db.QueryRowContext(ctx,
		`SELECT `+labColumns+` FROM labs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lab{}, ErrLabNotFound
	}
	return l, err
}

// List returns all labs ordered by code.  When activeOnly is true, inactive
// labs are filtered out (the public browse endpoints use this).
func (r *LabRepo) List(ctx context.Context, activeOnly bool) ([]model.Lab, error) {
	q := `SELECT ` + labColumns + ` FROM labs`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY code`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labs := make([]model.Lab, 0)
	for rows.Next() {
		l, err := scanLab(rows)
		if err != nil {
			return nil, err
		}
		labs = append(labs, l)
	}
	return labs, rows.Err()
}

// Update applies the non-zero fields of the patch to an existing lab and
// returns the updated row.  An unknown id yields ErrLabNotFound.
func (r *LabRepo) Update(ctx context.Context, id uint64, patch map[string]any) (model.Lab, error) {
	if len(patch) == 0 {
		return r.GetByID(ctx, id)
	}
	sets := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch)+1)
	for _, col := range []string{"department_id", "code", "name", "location", "capacity", "contact_email", "is_active"} {
		if v, ok := patch[col]; ok {
			sets = append(sets, col+" = ?")
			args = append(args, v)
		}
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE labs SET `+strings.Join(sets, ", ")+`, updated_at = UTC_TIMESTAMP() WHERE id = ?`, args...)
	if err != nil {
		return model.Lab{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op update,
		// so confirm existence explicitly.
		if _, err := r.GetByID(ctx, id); err != nil {
			return model.Lab{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a lab.  Dependent resources, requirements and history rows
// are removed by the schema's ON DELETE CASCADE constraints.
func (r *LabRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM labs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLabNotFound
	}
	return nil
}

// lockLabTx takes a row lock on the lab inside the supplied transaction.
// The admission workflow acquires this lock before re-checking availability
// so two concurrent admissions for the same lab serialize instead of both
// passing the overlap check.
func lockLabTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM labs WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLabNotFound
	}
	return err
}
