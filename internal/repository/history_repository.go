package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/ucampus/lab-reservation/internal/model"
)

// HistoryRepo appends and lists per-lab audit records.  History rows are
// write-once; there is no update or delete path.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo returns a HistoryRepo bound to the given database.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// Add appends one history record.  Detail is marshalled to JSON; a nil
// detail stores an empty object so the column is always valid JSON.
func (r *HistoryRepo) Add(ctx context.Context, labID uint64, actorUserID *uint64, actionType string, detail any) error {
	payload := []byte("{}")
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		payload = b
	}
	var actor any
	if actorUserID != nil {
		actor = *actorUserID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lab_history (lab_id, actor_user_id, action_type, detail) VALUES (?, ?, ?, ?)`,
		labID, actor, actionType, string(payload))
	return err
}

// HistoryFilter narrows ListByLab results.  Zero values mean "no filter".
type HistoryFilter struct {
	From   time.Time
	To     time.Time
	Action string
}

// ListByLab returns a lab's history, newest first.
func (r *HistoryRepo) ListByLab(ctx context.Context, labID uint64, f HistoryFilter) ([]model.LabHistoryEntry, error) {
	where := []string{"lab_id = ?"}
	args := []any{labID}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.Action != "" {
		where = append(where, "action_type = ?")
		args = append(args, f.Action)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lab_id, actor_user_id, action_type, detail, created_at
		 FROM lab_history WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC, id DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.LabHistoryEntry, 0)
	for rows.Next() {
		var e model.LabHistoryEntry
		var actor sql.NullInt64
		if err := rows.Scan(&e.ID, &e.LabID, &actor, &e.ActionType, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			v := uint64(actor.Int64)
			e.ActorUserID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
