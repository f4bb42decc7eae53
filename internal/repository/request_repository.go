package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ucampus/lab-reservation/internal/model"
)

// RequestRepo provides access to reservation requests and their items, and
// owns the transactional parts of the admission and status workflows.  It
// holds a CalendarRepo so the availability re-check and the slot inserts
// run inside the same transaction as the request mutation.
type RequestRepo struct {
	db    *sql.DB
	slots *CalendarRepo
}

// NewRequestRepo returns a RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB, slots *CalendarRepo) *RequestRepo {
	return &RequestRepo{db: db, slots: slots}
}

const requestColumns = `id, requester_id, role_snapshot, lab_id, objective, requirements_ok,
	status, reviewer_note, starts_at, ends_at, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (model.Request, error) {
	var req model.Request
	var note sql.NullString
	var status string
	err := row.Scan(&req.ID, &req.RequesterID, &req.RoleSnapshot, &req.LabID,
		&req.Objective, &req.RequirementsOk, &status, &note,
		&req.StartsAt, &req.EndsAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return model.Request{}, err
	}
	req.Status = model.RequestStatus(status)
	if note.Valid {
		n := note.String
		req.ReviewerNote = &n
	}
	return req, nil
}

// CreateWithSlots atomically admits a request: it locks the lab row,
// re-runs the overlap check against current committed state, and only then
// inserts the request, its items and its calendar holds.  The lock plus
// in-transaction re-check closes the window in which two concurrent
// admissions could both pass a prior standalone availability check.
//
// A non-empty conflict slice means the window was taken between the
// caller's pre-check and this commit; nothing is written in that case.
func (r *RequestRepo) CreateWithSlots(ctx context.Context, req *model.Request, items []model.RequestItem, slots []model.CalendarSlot) ([]model.SlotConflict, error) {
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

	// Serialize admissions per lab.
	if err := lockLabTx(ctx, tx, req.LabID); err != nil {
		return nil, err
	}

	resourceIDs := make([]uint64, 0, len(slots))
	for _, s := range slots {
		if s.ResourceID != nil {
			resourceIDs = append(resourceIDs, *s.ResourceID)
		}
	}
	conflicts, err := r.slots.FindOverlappingTx(ctx, tx, req.LabID, resourceIDs, req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO requests (requester_id, role_snapshot, lab_id, objective, requirements_ok, status, starts_at, ends_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.RequesterID, req.RoleSnapshot, req.LabID, req.Objective, req.RequirementsOk,
		string(model.StatusPendiente), req.StartsAt.UTC(), req.EndsAt.UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	req.ID = uint64(id)

	if err := insertItemsTx(ctx, tx, req.ID, items); err != nil {
		return nil, err
	}
	if err := r.slots.InsertSlotsTx(ctx, tx, slots); err != nil {
		return nil, err
	}

	// Read the row back to populate timestamps and defaults.
	got, err := scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, req.ID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	*req = got
	return nil, nil
}

func insertItemsTx(ctx context.Context, tx *sql.Tx, requestID uint64, items []model.RequestItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO request_items (request_id, resource_id, item_type, qty, use_start, use_end) VALUES `
	args := make([]any, 0, len(items)*6)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		var resID any
		if it.ResourceID != nil {
			resID = *it.ResourceID
		}
		args = append(args, requestID, resID, it.ItemType, it.Qty, it.UseStart.UTC(), it.UseEnd.UTC())
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a request and its items.  Returns ErrRequestNotFound
// when no row exists.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (model.Request, []model.RequestItem, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, nil, ErrRequestNotFound
	}
	if err != nil {
		return model.Request{}, nil, err
	}
	items, err := r.itemsByRequest(ctx, r.db, id)
	if err != nil {
		return model.Request{}, nil, err
	}
	return req, items, nil
}

func (r *RequestRepo) itemsByRequest(ctx context.Context, q querier, id uint64) ([]model.RequestItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, request_id, resource_id, item_type, qty, use_start, use_end
		 FROM request_items WHERE request_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.RequestItem, 0)
	for rows.Next() {
		var it model.RequestItem
		var resID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.RequestID, &resID, &it.ItemType, &it.Qty, &it.UseStart, &it.UseEnd); err != nil {
			return nil, err
		}
		if resID.Valid {
			v := uint64(resID.Int64)
			it.ResourceID = &v
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// RequestFilter narrows List results.  Zero values mean "no filter".
type RequestFilter struct {
	LabID       uint64
	RequesterID uint64
	Status      model.RequestStatus
	From        time.Time
	To          time.Time
}

// List returns requests matching the filter, newest first.
func (r *RequestRepo) List(ctx context.Context, f RequestFilter) ([]model.Request, error) {
	where := make([]string, 0, 5)
	args := make([]any, 0, 5)
	if f.LabID != 0 {
		where = append(where, "lab_id = ?")
		args = append(args, f.LabID)
	}
	if f.RequesterID != 0 {
		where = append(where, "requester_id = ?")
		args = append(args, f.RequesterID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where = append(where, "ends_at > ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "starts_at < ?")
		args = append(args, f.To.UTC())
	}
	q := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// SetStatus moves a request to the target status under a row lock so
// concurrent reviewer actions on the same request serialize.  When the
// target is APROBADA it materializes calendar holds for the lab and each
// resource item, re-deriving the window from the stored request.  Returns
// model.ErrInvalidTransition when the current status does not allow the
// move and ErrRequestNotFound for an unknown id.
func (r *RequestRepo) SetStatus(ctx context.Context, id uint64, target model.RequestStatus, note *string, reviewerID uint64) (model.Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Request{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	req, err := scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, ErrRequestNotFound
	}
	if err != nil {
		return model.Request{}, err
	}
	if !req.Status.CanTransition(target) {
		return model.Request{}, model.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE requests SET status = ?, reviewer_note = COALESCE(?, reviewer_note), updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`, string(target), noteArg(note), id)
	if err != nil {
		return model.Request{}, err
	}

	if target == model.StatusAprobada {
		items, err := r.itemsByRequest(ctx, tx, id)
		if err != nil {
			return model.Request{}, err
		}
		slots := make([]model.CalendarSlot, 0, 1+len(items))
		slots = append(slots, model.CalendarSlot{
			LabID:     req.LabID,
			StartsAt:  req.StartsAt,
			EndsAt:    req.EndsAt,
			Status:    model.SlotReservado,
			Reason:    fmt.Sprintf("Reserva #%d aprobada", id),
			CreatedBy: reviewerID,
		})
		for _, it := range items {
			if it.ResourceID == nil {
				continue
			}
			resID := *it.ResourceID
			slots = append(slots, model.CalendarSlot{
				LabID:      req.LabID,
				ResourceID: &resID,
				StartsAt:   req.StartsAt,
				EndsAt:     req.EndsAt,
				Status:     model.SlotReservado,
				Reason:     fmt.Sprintf("Reserva #%d aprobada", id),
				CreatedBy:  reviewerID,
			})
		}
		if err := r.slots.InsertSlotsTx(ctx, tx, slots); err != nil {
			return model.Request{}, err
		}
	}

	got, err := scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id))
	if err != nil {
		return model.Request{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Request{}, err
	}
	committed = true
	return got, nil
}

func noteArg(note *string) any {
	if note == nil {
		return nil
	}
	return *note
}

// Cancel withdraws a request on behalf of its requester.  Only the owner
// may cancel (ErrForbidden) and only from PENDIENTE, EN_REVISION or
// NECESITA_INFO (model.ErrInvalidTransition).  Previously written calendar
// slots are left in place as historical records.
func (r *RequestRepo) Cancel(ctx context.Context, id, actorID uint64) (model.Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Request{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	req, err := scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Request{}, ErrRequestNotFound
	}
	if err != nil {
		return model.Request{}, err
	}
	if req.RequesterID != actorID {
		return model.Request{}, ErrForbidden
	}
	if !req.Status.CanTransition(model.StatusCancelada) {
		return model.Request{}, model.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		string(model.StatusCancelada), id)
	if err != nil {
		return model.Request{}, err
	}
	got, err := scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id))
	if err != nil {
		return model.Request{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Request{}, err
	}
	committed = true
	return got, nil
}
