package repository

import (
	"context"
	"database/sql"

	"github.com/ucampus/lab-reservation/internal/model"
)

// MessageRepo stores the conversation thread attached to a request.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Add appends one message to a request's thread.  The request must exist;
// a dangling id surfaces as ErrRequestNotFound.
func (r *MessageRepo) Add(ctx context.Context, m *model.RequestMessage) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM requests WHERE id = ?`, m.RequestID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO request_messages (request_id, sender, message) VALUES (?, ?, ?)`,
		m.RequestID, m.Sender, m.Message)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// ListByRequest returns a request's messages in chronological order.
func (r *MessageRepo) ListByRequest(ctx context.Context, requestID uint64) ([]model.RequestMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, sender, message, created_at
		 FROM request_messages WHERE request_id = ? ORDER BY created_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.RequestMessage, 0)
	for rows.Next() {
		var m model.RequestMessage
		if err := rows.Scan(&m.ID, &m.RequestID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
