package model

import "time"

// SlotStatus classifies a calendar slot.  Every stored status counts as
// occupying for conflict detection; a cancelled request does not free its
// slots, it is the request row that records the cancellation.
type SlotStatus string

const (
	SlotReservado     SlotStatus = "RESERVADO"     // committed or provisional reservation hold
	SlotBloqueado     SlotStatus = "BLOQUEADO"     // administratively blocked window
	SlotMantenimiento SlotStatus = "MANTENIMIENTO" // maintenance downtime
	SlotExclusivo     SlotStatus = "EXCLUSIVO"     // exclusive-use window (courses, exams)
)

// CalendarSlot is a time hold against a lab as a whole (ResourceID nil) or
// against one specific resource.  Slots are append-only: they are inserted by
// the admission and approval workflows and never updated or deleted.
type CalendarSlot struct {
	ID         uint64     `json:"id"`
	LabID      uint64     `json:"lab_id"`
	ResourceID *uint64    `json:"resource_id,omitempty"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     time.Time  `json:"ends_at"`
	Status     SlotStatus `json:"status"`
	Reason     string     `json:"reason"`
	CreatedBy  uint64     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SlotConflict is the projection of a colliding slot returned by the
// availability checker so clients can show what blocks the requested window.
type SlotConflict struct {
	SlotID     uint64     `json:"slot_id"`
	ResourceID *uint64    `json:"resource_id,omitempty"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     time.Time  `json:"ends_at"`
	Status     SlotStatus `json:"status"`
	Reason     string     `json:"reason"`
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.  Slots that merely touch at a boundary do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
