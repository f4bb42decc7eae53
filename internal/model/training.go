package model

import "time"

// Training is a certification or safety course users complete before they
// may reserve certain labs.
type Training struct {
	ID   uint64 `json:"id"`   // trainings.id
	Code string `json:"code"` // trainings.code, unique
	Name string `json:"name"` // trainings.name
}

// UserTraining records one completion.  A nil ExpiresAt means the
// completion is permanent; otherwise it only satisfies requirements while
// ExpiresAt lies in the future.
type UserTraining struct {
	UserID      uint64     `json:"user_id"`
	TrainingID  uint64     `json:"training_id"`
	CompletedAt time.Time  `json:"completed_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// MissingRequirement names a training a user lacks for a lab, as reported
// by the requirements checker.
type MissingRequirement struct {
	TrainingID uint64 `json:"training_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
}
