package model

import "time"

// Notification is an in-app message delivered to one user, typically after
// a request status change.  ReadAt stays nil until the user marks it seen.
type Notification struct {
	ID      uint64     `json:"id"`
	UserID  uint64     `json:"user_id"`
	Subject string     `json:"subject"`
	Body    string     `json:"body"`
	Topic   string     `json:"topic"`
	SentAt  time.Time  `json:"sent_at"`
	ReadAt  *time.Time `json:"read_at,omitempty"`
}
