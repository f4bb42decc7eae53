package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/queue"
)

// Admission validation limits.  StartsAt may sit slightly in the past to
// absorb clock skew between clients and the server.
const (
	clockSkewTolerance = 5 * time.Minute
	minDuration        = 30 * time.Minute
	maxDuration        = 720 * time.Hour
)

// LabStore is the slice of the lab repository the admission workflow needs.
type LabStore interface {
	GetByID(ctx context.Context, id uint64) (model.Lab, error)
}

// ResourceStore loads referenced resources for referential validation.
type ResourceStore interface {
	ByIDs(ctx context.Context, ids []uint64) ([]model.Resource, error)
}

// RequestStore owns the atomic admission commit.  A non-empty conflict
// slice means nothing was written.
type RequestStore interface {
	CreateWithSlots(ctx context.Context, req *model.Request, items []model.RequestItem, slots []model.CalendarSlot) ([]model.SlotConflict, error)
}

// HistoryStore appends audit records after a successful commit.
type HistoryStore interface {
	Add(ctx context.Context, labID uint64, actorUserID *uint64, actionType string, detail any) error
}

// NotificationStore delivers in-app notifications after a successful commit.
type NotificationStore interface {
	Add(ctx context.Context, n *model.Notification) error
}

// EventPublisher sends a request status event to the broker.  Admission and
// review treat publish failures as log-only; they never affect the response.
type EventPublisher func(ctx context.Context, ev queue.RequestStatusEvent) error

// RequestedItem is one line of the admission payload.  A zero ResourceID
// reserves the lab space itself; a zero Qty defaults to 1.
type RequestedItem struct {
	ResourceID uint64
	Qty        uint32
}

// CreateRequestInput is the raw admission payload.  Timestamps arrive as
// RFC3339 strings and are parsed during field validation so malformed input
// is rejected before any store is queried.  Reason, when present, becomes
// the text recorded on the provisional calendar holds; otherwise the
// purpose is used.
type CreateRequestInput struct {
	RequesterID uint64
	Role        string
	LabID       uint64
	Purpose     string
	Reason      string
	StartsAt    string
	EndsAt      string
	Items       []RequestedItem
}

// PreviewResult bundles the two read-only checks for the preview endpoint.
type PreviewResult struct {
	Availability AvailabilityResult `json:"availability"`
	Requirements RequirementsResult `json:"requirements"`
}

// CreateResult is the outcome of a successful admission.
type CreateResult struct {
	Request      model.Request       `json:"request"`
	Items        []model.RequestItem `json:"items"`
	Requirements RequirementsResult  `json:"requirements"`
}

// AdmissionService runs the request admission workflow: field validation,
// referential checks, the availability fast path and the atomic commit.
type AdmissionService struct {
	Labs          LabStore
	Resources     ResourceStore
	Requests      RequestStore
	Availability  *AvailabilityChecker
	Requirements  *RequirementsChecker
	History       HistoryStore
	Notifications NotificationStore
	Publish       EventPublisher

	// now is swappable for boundary tests.
	now func() time.Time
}

// NewAdmissionService wires an AdmissionService from its dependencies.
// History, Notifications and Publish may be nil; the corresponding side
// effects are then skipped.
func NewAdmissionService(labs LabStore, resources ResourceStore, requests RequestStore,
	availability *AvailabilityChecker, requirements *RequirementsChecker,
	history HistoryStore, notifications NotificationStore, publish EventPublisher) *AdmissionService {
	return &AdmissionService{
		Labs:          labs,
		Resources:     resources,
		Requests:      requests,
		Availability:  availability,
		Requirements:  requirements,
		History:       history,
		Notifications: notifications,
		Publish:       publish,
		now:           time.Now,
	}
}

// validate checks the input fields and parses the window.  It performs no
// I/O: a request that fails here never reaches a store.
func (s *AdmissionService) validate(in CreateRequestInput) (start, end time.Time, err error) {
	if in.RequesterID == 0 {
		return start, end, &ValidationError{Field: "requester_id", Reason: "required"}
	}
	switch in.Role {
	case model.RoleAdmin, model.RoleEncargado, model.RoleUsuario:
	case "":
		return start, end, &ValidationError{Field: "role", Reason: "required"}
	default:
		return start, end, &ValidationError{Field: "role", Reason: "unknown role"}
	}
	if in.LabID == 0 {
		return start, end, &ValidationError{Field: "lab_id", Reason: "required"}
	}
	if strings.TrimSpace(in.Purpose) == "" {
		return start, end, &ValidationError{Field: "purpose", Reason: "required"}
	}
	if in.StartsAt == "" {
		return start, end, &ValidationError{Field: "starts_at", Reason: "required"}
	}
	if in.EndsAt == "" {
		return start, end, &ValidationError{Field: "ends_at", Reason: "required"}
	}
	start, err = time.Parse(time.RFC3339, in.StartsAt)
	if err != nil {
		return start, end, &ValidationError{Field: "starts_at", Reason: "must be an RFC3339 timestamp"}
	}
	end, err = time.Parse(time.RFC3339, in.EndsAt)
	if err != nil {
		return start, end, &ValidationError{Field: "ends_at", Reason: "must be an RFC3339 timestamp"}
	}
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return start, end, &ValidationError{Field: "ends_at", Reason: "must be after starts_at"}
	}
	if start.Before(s.now().UTC().Add(-clockSkewTolerance)) {
		return start, end, &ValidationError{Field: "starts_at", Reason: "window starts in the past"}
	}
	if d := end.Sub(start); d < minDuration {
		return start, end, &ValidationError{Field: "ends_at", Reason: "window shorter than 30 minutes"}
	} else if d > maxDuration {
		return start, end, &ValidationError{Field: "ends_at", Reason: "window longer than 720 hours"}
	}
	return start, end, nil
}

// Preview runs the availability and requirements checks without writing
// anything.  Both checks run concurrently; the caller gets both answers.
func (s *AdmissionService) Preview(ctx context.Context, in CreateRequestInput) (PreviewResult, error) {
	start, end, err := s.validate(in)
	if err != nil {
		return PreviewResult{}, err
	}
	avail, reqs, err := s.runChecks(ctx, in.LabID, in.RequesterID, resourceIDsOf(in.Items), start, end)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Availability: avail, Requirements: reqs}, nil
}

// Create admits a request end to end.  The availability check here is a
// best-effort fast path; the authoritative overlap check runs again inside
// the commit transaction under the lab row lock, so two concurrent creates
// for the same window cannot both succeed.
func (s *AdmissionService) Create(ctx context.Context, in CreateRequestInput) (CreateResult, error) {
	start, end, err := s.validate(in)
	if err != nil {
		return CreateResult{}, err
	}

	lab, err := s.Labs.GetByID(ctx, in.LabID)
	if err != nil {
		return CreateResult{}, err
	}
	if !lab.IsActive {
		return CreateResult{}, &StateError{Reason: fmt.Sprintf("lab %q is not accepting requests", lab.Code)}
	}

	resourceIDs := resourceIDsOf(in.Items)
	resources, err := s.loadResources(ctx, lab, resourceIDs)
	if err != nil {
		return CreateResult{}, err
	}

	avail, reqs, err := s.runChecks(ctx, in.LabID, in.RequesterID, resourceIDs, start, end)
	if err != nil {
		return CreateResult{}, err
	}
	if !avail.OK {
		return CreateResult{}, &ConflictError{Conflicts: avail.Conflicts}
	}

	req := model.Request{
		RequesterID:    in.RequesterID,
		RoleSnapshot:   in.Role,
		LabID:          in.LabID,
		Objective:      strings.TrimSpace(in.Purpose),
		RequirementsOk: reqs.OK,
		Status:         model.StatusPendiente,
		StartsAt:       start,
		EndsAt:         end,
	}
	items, slots := buildItemsAndSlots(&req, resources, in.Items, slotReason(in))

	conflicts, err := s.Requests.CreateWithSlots(ctx, &req, items, slots)
	if err != nil {
		return CreateResult{}, err
	}
	if len(conflicts) > 0 {
		return CreateResult{}, &ConflictError{Conflicts: conflicts}
	}

	s.afterCreate(ctx, lab, req)
	return CreateResult{Request: req, Items: items, Requirements: reqs}, nil
}

// loadResources verifies every referenced resource exists, belongs to the
// lab and is available for reservation.
func (s *AdmissionService) loadResources(ctx context.Context, lab model.Lab, ids []uint64) ([]model.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	resources, err := s.Resources.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Resource, len(resources))
	for _, res := range resources {
		byID[res.ID] = res
	}
	unavailable := make([]string, 0)
	for _, id := range ids {
		res, ok := byID[id]
		if !ok || res.LabID != lab.ID {
			return nil, &ValidationError{Field: "items",
				Reason: fmt.Sprintf("resource %d not found in lab %q", id, lab.Code)}
		}
		if res.State != model.StateDisponible {
			unavailable = append(unavailable, fmt.Sprintf("%s (%s)", res.Name, res.State))
		}
	}
	if len(unavailable) > 0 {
		return nil, &StateError{Reason: "resources not available: " + strings.Join(unavailable, ", ")}
	}
	ordered := make([]model.Resource, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

// runChecks executes the availability and requirements checks concurrently
// and waits for both.
func (s *AdmissionService) runChecks(ctx context.Context, labID, userID uint64, resourceIDs []uint64, from, to time.Time) (AvailabilityResult, RequirementsResult, error) {
	type availOut struct {
		res AvailabilityResult
		err error
	}
	ch := make(chan availOut, 1)
	go func() {
		res, err := s.Availability.Check(ctx, labID, resourceIDs, from, to)
		ch <- availOut{res: res, err: err}
	}()
	reqs, reqErr := s.Requirements.Check(ctx, labID, userID)
	avail := <-ch
	if avail.err != nil {
		return AvailabilityResult{}, RequirementsResult{}, avail.err
	}
	if reqErr != nil {
		return AvailabilityResult{}, RequirementsResult{}, reqErr
	}
	return avail.res, reqs, nil
}

// buildItemsAndSlots derives the request items and the provisional calendar
// holds.  Each payload item becomes one request item with its qty; the
// holds are one whole-lab slot plus one per distinct resource, all
// RESERVADO over the request window.
func buildItemsAndSlots(req *model.Request, resources []model.Resource, requested []RequestedItem, reason string) ([]model.RequestItem, []model.CalendarSlot) {
	byID := make(map[uint64]model.Resource, len(resources))
	for _, res := range resources {
		byID[res.ID] = res
	}

	slots := make([]model.CalendarSlot, 0, len(resources)+1)
	slots = append(slots, model.CalendarSlot{
		LabID:     req.LabID,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Status:    model.SlotReservado,
		Reason:    reason,
		CreatedBy: req.RequesterID,
	})
	for _, res := range resources {
		id := res.ID
		slots = append(slots, model.CalendarSlot{
			LabID:      req.LabID,
			ResourceID: &id,
			StartsAt:   req.StartsAt,
			EndsAt:     req.EndsAt,
			Status:     model.SlotReservado,
			Reason:     reason,
			CreatedBy:  req.RequesterID,
		})
	}

	// An empty payload still reserves the lab space itself.
	if len(requested) == 0 {
		requested = []RequestedItem{{Qty: 1}}
	}
	items := make([]model.RequestItem, 0, len(requested))
	for _, it := range requested {
		qty := it.Qty
		if qty == 0 {
			qty = 1
		}
		item := model.RequestItem{
			ItemType: model.ItemTypeLabSpace,
			Qty:      qty,
			UseStart: req.StartsAt,
			UseEnd:   req.EndsAt,
		}
		if it.ResourceID != 0 {
			id := it.ResourceID
			item.ResourceID = &id
			item.ItemType = byID[id].Type
		}
		items = append(items, item)
	}
	return items, slots
}

// afterCreate runs the post-commit side effects.  Failures here are logged
// and never surfaced: the reservation is already committed.
func (s *AdmissionService) afterCreate(ctx context.Context, lab model.Lab, req model.Request) {
	if s.History != nil {
		actor := req.RequesterID
		detail := map[string]any{
			"request_id": req.ID,
			"starts_at":  req.StartsAt.Format(time.RFC3339),
			"ends_at":    req.EndsAt.Format(time.RFC3339),
		}
		if err := s.History.Add(ctx, lab.ID, &actor, "REQUEST_CREATE", detail); err != nil {
			log.Printf("admission: history append failed for request %d: %v", req.ID, err)
		}
	}
	if s.Notifications != nil {
		n := model.Notification{
			UserID:  req.RequesterID,
			Subject: fmt.Sprintf("Solicitud #%d recibida", req.ID),
			Body:    fmt.Sprintf("Tu solicitud para %s quedó en estado %s.", lab.Name, req.Status),
			Topic:   "requests",
		}
		if err := s.Notifications.Add(ctx, &n); err != nil {
			log.Printf("admission: notification insert failed for request %d: %v", req.ID, err)
		}
	}
	if s.Publish != nil {
		ev := queue.RequestStatusEvent{
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			LabID:       lab.ID,
			LabName:     lab.Name,
			Status:      string(req.Status),
			Objective:   req.Objective,
			StartsAt:    req.StartsAt.Format(time.RFC3339),
			EndsAt:      req.EndsAt.Format(time.RFC3339),
			ActorID:     req.RequesterID,
			OccurredAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.Publish(ctx, ev); err != nil {
			log.Printf("admission: event publish failed for request %d: %v", req.ID, err)
		}
	}
}

// resourceIDsOf collects the distinct resource ids referenced by the
// payload, preserving first-seen order.
func resourceIDsOf(items []RequestedItem) []uint64 {
	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		if it.ResourceID != 0 {
			ids = append(ids, it.ResourceID)
		}
	}
	return dedupe(ids)
}

// slotReason picks the text recorded on the provisional holds.
func slotReason(in CreateRequestInput) string {
	if r := strings.TrimSpace(in.Reason); r != "" {
		return r
	}
	return strings.TrimSpace(in.Purpose)
}

// dedupe returns the ids with duplicates removed, preserving first-seen
// order.
func dedupe(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
