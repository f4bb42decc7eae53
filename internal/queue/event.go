// Package queue defines message payloads exchanged over the message broker.
package queue

// RequestStatusEvent is published every time a reservation request is
// created or changes status.  It carries enough information for downstream
// consumers to log or notify without querying the primary database.
type RequestStatusEvent struct {
	RequestID   uint64 `json:"request_id"`
	RequesterID uint64 `json:"requester_id"`
	LabID       uint64 `json:"lab_id"`
	LabName     string `json:"lab_name"`
	Status      string `json:"status"`
	Objective   string `json:"objective"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	ActorID     uint64 `json:"actor_id"`
	OccurredAt  string `json:"occurred_at"`
}
