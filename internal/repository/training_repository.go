package repository

import (
	"context"
	"database/sql"

	"github.com/ucampus/lab-reservation/internal/model"
)

// TrainingRepo answers training-requirement questions for the requirements
// checker.  All queries are pure reads.
type TrainingRepo struct {
	db *sql.DB
}

// NewTrainingRepo returns a TrainingRepo bound to the given database.
func NewTrainingRepo(db *sql.DB) *TrainingRepo { return &TrainingRepo{db: db} }

// MissingForUser lists the trainings required by a lab for which the user
// has no valid completion.  A completion is valid when it is permanent
// (expires_at IS NULL) or not yet expired.  An empty slice means the user
// satisfies every requirement.
func (r *TrainingRepo) MissingForUser(ctx context.Context, labID, userID uint64) ([]model.MissingRequirement, error) {
	const q = `SELECT t.id, t.code, t.name
	           FROM lab_requirements lr
	           JOIN trainings t ON t.id = lr.training_id
	           WHERE lr.lab_id = ?
	             AND NOT EXISTS (
	               SELECT 1 FROM user_trainings ut
	               WHERE ut.user_id = ? AND ut.training_id = lr.training_id
	                 AND (ut.expires_at IS NULL OR ut.expires_at > UTC_TIMESTAMP())
	             )
	           ORDER BY t.code`
	rows, err := r.db.QueryContext(ctx, q, labID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	missing := make([]model.MissingRequirement, 0)
	for rows.Next() {
		var m model.MissingRequirement
		if err := rows.Scan(&m.TrainingID, &m.Code, &m.Name); err != nil {
			return nil, err
		}
		missing = append(missing, m)
	}
	return missing, rows.Err()
}

// RequiredByLab lists all trainings attached to a lab.
func (r *TrainingRepo) RequiredByLab(ctx context.Context, labID uint64) ([]model.Training, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.code, t.name
		 FROM lab_requirements lr
		 JOIN trainings t ON t.id = lr.training_id
		 WHERE lr.lab_id = ? ORDER BY t.code`, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Training, 0)
	for rows.Next() {
		var t model.Training
		if err := rows.Scan(&t.ID, &t.Code, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
