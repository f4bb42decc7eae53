package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ucampus/lab-reservation/internal/model"
)

// ResourceRepo provides access to the resources table and the optional
// consumable stock sub-records.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

const resourceColumns = `id, lab_id, type, name, inventory_code, state, created_at, updated_at`

func scanResource(row interface{ Scan(...any) error }) (model.Resource, error) {
	var res model.Resource
	err := row.Scan(&res.ID, &res.LabID, &res.Type, &res.Name,
		&res.InventoryCode, &res.State, &res.CreatedAt, &res.UpdatedAt)
	return res, err
}

// Create inserts a resource under a lab.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	out, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (lab_id, type, name, inventory_code, state)
		 VALUES (?, ?, ?, ?, ?)`,
		res.LabID, res.Type, res.Name, res.InventoryCode, res.State)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	got, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = got
	return nil
}

// GetByID fetches one resource.  Returns ErrResourceNotFound when absent.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Resource{}, ErrResourceNotFound
	}
	return res, err
}

// ListByLab returns all resources of a lab ordered by name.
func (r *ResourceRepo) ListByLab(ctx context.Context, labID uint64) ([]model.Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE lab_id = ? ORDER BY name`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ByIDs loads the given resources in one query.  The result may be shorter
// than ids when some do not exist; the admission workflow compares lengths
// to detect dangling references.
func (r *ResourceRepo) ByIDs(ctx context.Context, ids []uint64) ([]model.Resource, error) {
	if len(ids) == 0 {
		return []model.Resource{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Resource, 0, len(ids))
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// UpdateState changes a resource's state (maintenance actions, not the
// reservation workflow).  Returns ErrResourceNotFound for an unknown id.
func (r *ResourceRepo) UpdateState(ctx context.Context, id uint64, state string) (model.Resource, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return model.Resource{}, err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE resources SET state = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, state, id)
	if err != nil {
		return model.Resource{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a resource and (via FK cascade) its consumable stock row.
func (r *ResourceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// UpsertStock creates or replaces the consumable stock sub-record of a
// resource.
func (r *ResourceRepo) UpsertStock(ctx context.Context, s *model.ConsumableStock) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO consumable_stocks (resource_id, unit, qty_available, reorder_point)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE unit = VALUES(unit), qty_available = VALUES(qty_available),
		                         reorder_point = VALUES(reorder_point)`,
		s.ResourceID, s.Unit, s.QtyAvailable, s.ReorderPoint)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx,
		`SELECT id, resource_id, unit, qty_available, reorder_point
		 FROM consumable_stocks WHERE resource_id = ?`, s.ResourceID).
		Scan(&s.ID, &s.ResourceID, &s.Unit, &s.QtyAvailable, &s.ReorderPoint)
}

// GetStock loads the stock sub-record of a consumable resource, or
// sql.ErrNoRows when none exists.
func (r *ResourceRepo) GetStock(ctx context.Context, resourceID uint64) (model.ConsumableStock, error) {
	var s model.ConsumableStock
	err := r.db.QueryRowContext(ctx,
		`SELECT id, resource_id, unit, qty_available, reorder_point
		 FROM consumable_stocks WHERE resource_id = ?`, resourceID).
		Scan(&s.ID, &s.ResourceID, &s.Unit, &s.QtyAvailable, &s.ReorderPoint)
	return s, err
}
