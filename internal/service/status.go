package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/queue"
)

// ReviewRequestStore is the slice of the request repository the review
// workflow needs.  The transition validation and the approval-time slot
// materialization happen inside the store's transaction.
type ReviewRequestStore interface {
	GetByID(ctx context.Context, id uint64) (model.Request, []model.RequestItem, error)
	SetStatus(ctx context.Context, id uint64, target model.RequestStatus, note *string, reviewerID uint64) (model.Request, error)
	Cancel(ctx context.Context, id, actorID uint64) (model.Request, error)
}

// ReviewService moves requests through their lifecycle: reviewer decisions
// and requester cancellations.
type ReviewService struct {
	Requests      ReviewRequestStore
	Labs          LabStore
	History       HistoryStore
	Notifications NotificationStore
	Publish       EventPublisher
}

// NewReviewService wires a ReviewService from its dependencies.  History,
// Notifications and Publish may be nil; those side effects are skipped.
func NewReviewService(requests ReviewRequestStore, labs LabStore,
	history HistoryStore, notifications NotificationStore, publish EventPublisher) *ReviewService {
	return &ReviewService{
		Requests:      requests,
		Labs:          labs,
		History:       history,
		Notifications: notifications,
		Publish:       publish,
	}
}

// reviewTargets are the statuses a reviewer may set directly.  Cancellation
// has its own requester-only path and PENDIENTE/EN_REVISION are never
// reachable through the review endpoint.
func reviewTarget(raw string) (model.RequestStatus, error) {
	status, ok := model.ParseRequestStatus(raw)
	if !ok {
		return "", &ValidationError{Field: "status", Reason: "unknown status"}
	}
	switch status {
	case model.StatusAprobada, model.StatusRechazada, model.StatusNecesitaInfo:
		return status, nil
	}
	return "", &ValidationError{Field: "status", Reason: "status not allowed for review"}
}

// SetStatus applies a reviewer decision.  An edge the lifecycle graph does
// not allow surfaces as StateError; on APROBADA the store materializes the
// definitive calendar holds in the same transaction.
func (s *ReviewService) SetStatus(ctx context.Context, id uint64, rawStatus string, note *string, reviewerID uint64) (model.Request, error) {
	target, err := reviewTarget(rawStatus)
	if err != nil {
		return model.Request{}, err
	}
	req, err := s.Requests.SetStatus(ctx, id, target, note, reviewerID)
	if errors.Is(err, model.ErrInvalidTransition) {
		return model.Request{}, &StateError{Reason: err.Error()}
	}
	if err != nil {
		return model.Request{}, err
	}
	s.afterTransition(ctx, req, reviewerID, "REQUEST_STATUS")
	return req, nil
}

// Cancel withdraws a request on behalf of its requester.
func (s *ReviewService) Cancel(ctx context.Context, id, actorID uint64) (model.Request, error) {
	req, err := s.Requests.Cancel(ctx, id, actorID)
	if errors.Is(err, model.ErrInvalidTransition) {
		return model.Request{}, &StateError{Reason: "request can no longer be cancelled"}
	}
	if err != nil {
		return model.Request{}, err
	}
	s.afterTransition(ctx, req, actorID, "REQUEST_CANCEL")
	return req, nil
}

// afterTransition runs the post-commit side effects of a status change.
// Failures are logged and never surfaced: the transition is already
// committed.
func (s *ReviewService) afterTransition(ctx context.Context, req model.Request, actorID uint64, action string) {
	labName := fmt.Sprintf("lab %d", req.LabID)
	if s.Labs != nil {
		if lab, err := s.Labs.GetByID(ctx, req.LabID); err == nil {
			labName = lab.Name
		}
	}
	if s.History != nil {
		actor := actorID
		detail := map[string]any{
			"request_id": req.ID,
			"status":     string(req.Status),
		}
		if err := s.History.Add(ctx, req.LabID, &actor, action, detail); err != nil {
			log.Printf("review: history append failed for request %d: %v", req.ID, err)
		}
	}
	if s.Notifications != nil {
		n := model.Notification{
			UserID:  req.RequesterID,
			Subject: fmt.Sprintf("Solicitud #%d: %s", req.ID, req.Status),
			Body:    fmt.Sprintf("Tu solicitud para %s pasó a estado %s.", labName, req.Status),
			Topic:   "requests",
		}
		if err := s.Notifications.Add(ctx, &n); err != nil {
			log.Printf("review: notification insert failed for request %d: %v", req.ID, err)
		}
	}
	if s.Publish != nil {
		ev := queue.RequestStatusEvent{
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			LabID:       req.LabID,
			LabName:     labName,
			Status:      string(req.Status),
			Objective:   req.Objective,
			StartsAt:    req.StartsAt.Format(time.RFC3339),
			EndsAt:      req.EndsAt.Format(time.RFC3339),
			ActorID:     actorID,
			OccurredAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.Publish(ctx, ev); err != nil {
			log.Printf("review: event publish failed for request %d: %v", req.ID, err)
		}
	}
}
