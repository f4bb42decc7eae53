package model

import (
	"errors"
	"strings"
	"time"
)

// RequestStatus is the closed set of states a reservation request can be in.
// The values are stored verbatim in the requests.status column.
type RequestStatus string

const (
	StatusPendiente    RequestStatus = "PENDIENTE"     // submitted, waiting for review
	StatusEnRevision   RequestStatus = "EN_REVISION"   // a reviewer picked it up
	StatusNecesitaInfo RequestStatus = "NECESITA_INFO" // reviewer asked the requester for details
	StatusAprobada     RequestStatus = "APROBADA"      // approved; calendar holds materialized
	StatusRechazada    RequestStatus = "RECHAZADA"     // rejected by a reviewer
	StatusCancelada    RequestStatus = "CANCELADA"     // withdrawn by the requester
)

// ErrInvalidTransition is returned when a status change is not an edge of
// the allowed transition graph.  Handlers translate it into HTTP 400.
var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions encodes the lifecycle graph.  APROBADA, RECHAZADA and
// CANCELADA are terminal: they have no outgoing edges and therefore no entry.
var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusPendiente:    {StatusEnRevision, StatusNecesitaInfo, StatusAprobada, StatusRechazada, StatusCancelada},
	StatusEnRevision:   {StatusNecesitaInfo, StatusAprobada, StatusRechazada, StatusCancelada},
	StatusNecesitaInfo: {StatusAprobada, StatusRechazada, StatusCancelada},
}

// CanTransition reports whether moving from one status to another is an
// allowed edge of the lifecycle graph.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s RequestStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// ParseRequestStatus normalizes a raw string into a RequestStatus.  It
// returns false for anything outside the closed set so callers never store
// free-form text in the status column.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	s := RequestStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPendiente, StatusEnRevision, StatusNecesitaInfo,
		StatusAprobada, StatusRechazada, StatusCancelada:
		return s, true
	}
	return "", false
}

// Request is a reservation application submitted by a user for a lab (and
// optionally specific resources) over a time window.  Requests are never
// deleted; cancellation and rejection are status changes so the row remains
// available for history and audit queries.
//
// RoleSnapshot records the requester's role at submission time so later role
// changes do not rewrite history.  RequirementsOk is the advisory result of
// the training-requirements check computed during admission.
type Request struct {
	ID             uint64        `json:"id"`
	RequesterID    uint64        `json:"requester_id"`
	RoleSnapshot   string        `json:"role_snapshot"`
	LabID          uint64        `json:"lab_id"`
	Objective      string        `json:"objective"`
	RequirementsOk bool          `json:"requirements_ok"`
	Status         RequestStatus `json:"status"`
	ReviewerNote   *string       `json:"reviewer_note,omitempty"`
	StartsAt       time.Time     `json:"starts_at"`
	EndsAt         time.Time     `json:"ends_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// RequestItem is one line of a request: either a specific resource or, when
// ResourceID is nil, the lab space itself.  Items are created atomically with
// their parent request and never independently.
type RequestItem struct {
	ID         uint64    `json:"id"`
	RequestID  uint64    `json:"request_id"`
	ResourceID *uint64   `json:"resource_id,omitempty"`
	ItemType   string    `json:"item_type"` // resource type, or LAB_SPACE when no resource
	Qty        uint32    `json:"qty"`
	UseStart   time.Time `json:"use_start"`
	UseEnd     time.Time `json:"use_end"`
}

// ItemTypeLabSpace is the item_type sentinel used when a request item does
// not reference a concrete resource.
const ItemTypeLabSpace = "LAB_SPACE"

// RequestMessage is one entry of the conversation thread attached to a
// request (requester asking questions, reviewer requesting details).
type RequestMessage struct {
	ID        uint64    `json:"id"`
	RequestID uint64    `json:"request_id"`
	Sender    string    `json:"sender"` // USUARIO | ENCARGADO
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
