package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ucampus/lab-reservation/internal/model"
)

// CalendarRepo provides access to the calendar_slots table.  Slots are
// append-only: nothing in this repository updates or deletes a row.  All
// stored statuses are occupying, so the overlap queries never filter by
// status: a cancelled request keeps its slots and cancellation is visible
// on the request row only.
type CalendarRepo struct {
	db *sql.DB
}

// NewCalendarRepo returns a CalendarRepo bound to the given database.
func NewCalendarRepo(db *sql.DB) *CalendarRepo { return &CalendarRepo{db: db} }

// querier abstracts *sql.DB and *sql.Tx so the overlap query can run both
// as a standalone read and inside the admission transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FindOverlapping returns every slot for the lab (resource_id IS NULL) or
// for any of the given resources whose [starts_at, ends_at) window
// intersects [from, to).  Two intervals overlap iff a1 < b2 AND b1 < a2;
// windows that merely touch do not collide.
func (r *CalendarRepo) FindOverlapping(ctx context.Context, labID uint64, resourceIDs []uint64, from, to time.Time) ([]model.SlotConflict, error) {
	return findOverlapping(ctx, r.db, labID, resourceIDs, from, to)
}

// FindOverlappingTx is FindOverlapping scoped to a transaction.  The
// admission workflow runs it after taking the lab row lock so the answer
// stays authoritative until commit.
func (r *CalendarRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, labID uint64, resourceIDs []uint64, from, to time.Time) ([]model.SlotConflict, error) {
	return findOverlapping(ctx, tx, labID, resourceIDs, from, to)
}

func findOverlapping(ctx context.Context, q querier, labID uint64, resourceIDs []uint64, from, to time.Time) ([]model.SlotConflict, error) {
	query := `SELECT id, resource_id, starts_at, ends_at, status, reason
	          FROM calendar_slots
	          WHERE lab_id = ? AND starts_at < ? AND ? < ends_at
	            AND (resource_id IS NULL`
	args := []any{labID, to.UTC(), from.UTC()}
	if len(resourceIDs) > 0 {
		placeholders := make([]string, len(resourceIDs))
		for i, id := range resourceIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` OR resource_id IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += `) ORDER BY starts_at, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	conflicts := make([]model.SlotConflict, 0)
	for rows.Next() {
		var c model.SlotConflict
		var resID sql.NullInt64
		if err := rows.Scan(&c.SlotID, &resID, &c.StartsAt, &c.EndsAt, &c.Status, &c.Reason); err != nil {
			return nil, err
		}
		if resID.Valid {
			id := uint64(resID.Int64)
			c.ResourceID = &id
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// InsertSlotsTx inserts the given slots in a single statement within the
// provided transaction.  Passing an empty slice has no effect.  The caller
// must commit or roll back.
func (r *CalendarRepo) InsertSlotsTx(ctx context.Context, tx *sql.Tx, slots []model.CalendarSlot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO calendar_slots (lab_id, resource_id, starts_at, ends_at, status, reason, created_by) VALUES `
	args := make([]any, 0, len(slots)*7)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		var resID any
		if s.ResourceID != nil {
			resID = *s.ResourceID
		}
		args = append(args, s.LabID, resID, s.StartsAt.UTC(), s.EndsAt.UTC(), string(s.Status), s.Reason, s.CreatedBy)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListByLab returns every slot of a lab inside [from, to), newest first.
// Used by the calendar browse endpoint.
func (r *CalendarRepo) ListByLab(ctx context.Context, labID uint64, from, to time.Time) ([]model.CalendarSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lab_id, resource_id, starts_at, ends_at, status, reason, created_by, created_at
		 FROM calendar_slots
		 WHERE lab_id = ? AND starts_at < ? AND ? < ends_at
		 ORDER BY starts_at DESC, id DESC`,
		labID, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CalendarSlot, 0)
	for rows.Next() {
		var s model.CalendarSlot
		var resID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.LabID, &resID, &s.StartsAt, &s.EndsAt, &s.Status, &s.Reason, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, err
		}
		if resID.Valid {
			id := uint64(resID.Int64)
			s.ResourceID = &id
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
