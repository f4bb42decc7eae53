package service

import (
	"context"
	"time"

	"github.com/ucampus/lab-reservation/internal/model"
)

// SlotStore is the read side of the calendar used by the availability
// checker.  *repository.CalendarRepo satisfies it.
type SlotStore interface {
	FindOverlapping(ctx context.Context, labID uint64, resourceIDs []uint64, from, to time.Time) ([]model.SlotConflict, error)
}

// AvailabilityResult is the answer of a single availability check.
type AvailabilityResult struct {
	OK        bool                 `json:"ok"`
	Conflicts []model.SlotConflict `json:"conflicts"`
}

// AvailabilityChecker answers "is this window free?" questions.  It never
// mutates anything; the authoritative re-check happens again inside the
// admission transaction.
type AvailabilityChecker struct {
	Slots SlotStore
}

// NewAvailabilityChecker builds a checker over the given slot store.
func NewAvailabilityChecker(slots SlotStore) *AvailabilityChecker {
	return &AvailabilityChecker{Slots: slots}
}

// Check reports whether [from, to) is free for the lab and every listed
// resource.  Any occupying slot, regardless of its status, that overlaps
// the half-open window counts as a conflict.
func (c *AvailabilityChecker) Check(ctx context.Context, labID uint64, resourceIDs []uint64, from, to time.Time) (AvailabilityResult, error) {
	conflicts, err := c.Slots.FindOverlapping(ctx, labID, resourceIDs, from, to)
	if err != nil {
		return AvailabilityResult{}, err
	}
	return AvailabilityResult{OK: len(conflicts) == 0, Conflicts: conflicts}, nil
}
