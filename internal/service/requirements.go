package service

import (
	"context"

	"github.com/ucampus/lab-reservation/internal/model"
)

// TrainingStore answers which of a lab's required trainings a user is
// missing.  *repository.TrainingRepo satisfies it.
type TrainingStore interface {
	MissingForUser(ctx context.Context, labID, userID uint64) ([]model.MissingRequirement, error)
}

// RequirementsResult is the answer of a requirements check.  The result is
// advisory: a failing check flags the request for the reviewer but never
// blocks admission.
type RequirementsResult struct {
	OK      bool                       `json:"ok"`
	Missing []model.MissingRequirement `json:"missing"`
}

// RequirementsChecker verifies a user holds every training a lab requires.
type RequirementsChecker struct {
	Trainings TrainingStore
}

// NewRequirementsChecker builds a checker over the given training store.
func NewRequirementsChecker(trainings TrainingStore) *RequirementsChecker {
	return &RequirementsChecker{Trainings: trainings}
}

// Check reports whether the user satisfies all of the lab's training
// requirements.  A completion counts while it is permanent or not yet
// expired.
func (c *RequirementsChecker) Check(ctx context.Context, labID, userID uint64) (RequirementsResult, error) {
	missing, err := c.Trainings.MissingForUser(ctx, labID, userID)
	if err != nil {
		return RequirementsResult{}, err
	}
	return RequirementsResult{OK: len(missing) == 0, Missing: missing}, nil
}
