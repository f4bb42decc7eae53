package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ucampus/lab-reservation/internal/model"
)

// NotificationRepo stores in-app notifications.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Add inserts one notification for a user.
func (r *NotificationRepo) Add(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, subject, body, topic) VALUES (?, ?, ?, ?)`,
		n.UserID, n.Subject, n.Body, n.Topic)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByUser returns a user's notifications, newest first.  When since is
// non-zero only notifications sent at or after it are returned.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, since time.Time) ([]model.Notification, error) {
	q := `SELECT id, user_id, subject, body, topic, sent_at, read_at
	      FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		q += ` AND sent_at >= ?`
		args = append(args, since.UTC())
	}
	q += ` ORDER BY sent_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Subject, &n.Body, &n.Topic, &n.SentAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkSeen stamps read_at on one unread notification owned by the user.
// Returns sql.ErrNoRows when the notification does not exist, belongs to
// someone else, or was already read.
func (r *NotificationRepo) MarkSeen(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = UTC_TIMESTAMP()
		 WHERE id = ? AND user_id = ? AND read_at IS NULL`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllSeen stamps read_at on every unread notification of a user.
func (r *NotificationRepo) MarkAllSeen(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = UTC_TIMESTAMP()
		 WHERE user_id = ? AND read_at IS NULL`, userID)
	return err
}
