package model

import "time"

// Department is a school department that owns one or more labs.
type Department struct {
	ID   uint64 `json:"id"`   // departments.id
	Name string `json:"name"` // departments.name
}

// Lab is a physical laboratory space.  The internal code is unique across
// the platform.  Deleting a lab cascades to its resources, requirements and
// history at the storage layer.
//
// Fields:
//  ID           – primary key identifier.
//  DepartmentID – owning school department.
//  Code         – unique internal code (e.g. "QUIM-01").
//  Name         – display name.
//  Location     – building/room information.
//  Capacity     – maximum simultaneous occupants.
//  ContactEmail – address shown to requesters.
//  IsActive     – inactive labs cannot receive new requests.
type Lab struct {
	ID           uint64    `json:"id"`
	DepartmentID uint64    `json:"department_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	Capacity     uint32    `json:"capacity"`
	ContactEmail string    `json:"contact_email"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LabHistoryEntry is one append-only audit record for a lab.  Detail carries
// a JSON document describing the action.
type LabHistoryEntry struct {
	ID          uint64    `json:"id"`
	LabID       uint64    `json:"lab_id"`
	ActorUserID *uint64   `json:"actor_user_id,omitempty"`
	ActionType  string    `json:"action_type"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"created_at"`
}
