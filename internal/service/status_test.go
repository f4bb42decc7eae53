package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/repository"
)

// fakeReviewStore keeps a single request in memory and enforces the same
// lifecycle rules the SQL store does, counting approval-time slot inserts.
type fakeReviewStore struct {
	req        model.Request
	items      []model.RequestItem
	slotsAdded int
}

func (f *fakeReviewStore) GetByID(_ context.Context, id uint64) (model.Request, []model.RequestItem, error) {
	if id != f.req.ID {
		return model.Request{}, nil, repository.ErrRequestNotFound
	}
	return f.req, f.items, nil
}

func (f *fakeReviewStore) SetStatus(_ context.Context, id uint64, target model.RequestStatus, note *string, _ uint64) (model.Request, error) {
	if id != f.req.ID {
		return model.Request{}, repository.ErrRequestNotFound
	}
	if !f.req.Status.CanTransition(target) {
		return model.Request{}, model.ErrInvalidTransition
	}
	f.req.Status = target
	if note != nil {
		f.req.ReviewerNote = note
	}
	if target == model.StatusAprobada {
		f.slotsAdded++ // lab slot
		for _, it := range f.items {
			if it.ResourceID != nil {
				f.slotsAdded++
			}
		}
	}
	return f.req, nil
}

func (f *fakeReviewStore) Cancel(_ context.Context, id, actorID uint64) (model.Request, error) {
	if id != f.req.ID {
		return model.Request{}, repository.ErrRequestNotFound
	}
	if f.req.RequesterID != actorID {
		return model.Request{}, repository.ErrForbidden
	}
	if !f.req.Status.CanTransition(model.StatusCancelada) {
		return model.Request{}, model.ErrInvalidTransition
	}
	f.req.Status = model.StatusCancelada
	return f.req, nil
}

type fakeHistory struct {
	actions []string
}

func (f *fakeHistory) Add(_ context.Context, _ uint64, _ *uint64, actionType string, _ any) error {
	f.actions = append(f.actions, actionType)
	return nil
}

type fakeNotifications struct {
	sent []model.Notification
}

func (f *fakeNotifications) Add(_ context.Context, n *model.Notification) error {
	f.sent = append(f.sent, *n)
	return nil
}

func newReviewFixture(status model.RequestStatus) (*ReviewService, *fakeReviewStore, *fakeHistory, *fakeNotifications) {
	resID := uint64(7)
	store := &fakeReviewStore{
		req: model.Request{
			ID:          10,
			RequesterID: 42,
			LabID:       1,
			Objective:   "Práctica de titulación",
			Status:      status,
			StartsAt:    time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
			EndsAt:      time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
		},
		items: []model.RequestItem{
			{RequestID: 10, ResourceID: &resID, ItemType: model.ResourceEquipment, Qty: 1},
		},
	}
	history := &fakeHistory{}
	notifications := &fakeNotifications{}
	labs := &fakeLabs{labs: map[uint64]model.Lab{1: {ID: 1, Name: "Química General", IsActive: true}}}
	svc := NewReviewService(store, labs, history, notifications, nil)
	return svc, store, history, notifications
}

func TestReviewTargetWhitelist(t *testing.T) {
	for _, raw := range []string{"APROBADA", "rechazada", "NECESITA_INFO"} {
		_, err := reviewTarget(raw)
		assert.NoError(t, err, raw)
	}
	for _, raw := range []string{"PENDIENTE", "EN_REVISION", "CANCELADA", "APPROVED", ""} {
		_, err := reviewTarget(raw)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, raw)
	}
}

func TestSetStatusApprovesAndMaterializesSlots(t *testing.T) {
	svc, store, history, notifications := newReviewFixture(model.StatusPendiente)
	note := "Todo en orden"

	req, err := svc.SetStatus(context.Background(), 10, "APROBADA", &note, 7)
	require.NoError(t, err)

	assert.Equal(t, model.StatusAprobada, req.Status)
	require.NotNil(t, req.ReviewerNote)
	assert.Equal(t, note, *req.ReviewerNote)
	assert.Equal(t, 2, store.slotsAdded) // lab + resource 7
	assert.Equal(t, []string{"REQUEST_STATUS"}, history.actions)
	require.Len(t, notifications.sent, 1)
	assert.Equal(t, uint64(42), notifications.sent[0].UserID)
}

func TestSetStatusFromTerminalRejected(t *testing.T) {
	for _, status := range []model.RequestStatus{model.StatusAprobada, model.StatusRechazada, model.StatusCancelada} {
		svc, store, history, _ := newReviewFixture(status)
		before := store.slotsAdded

		_, err := svc.SetStatus(context.Background(), 10, "APROBADA", nil, 7)
		var se *StateError
		require.ErrorAs(t, err, &se, string(status))
		assert.Equal(t, before, store.slotsAdded, "no extra slots from a rejected transition")
		assert.Empty(t, history.actions)
	}
}

func TestSetStatusUnknownRequest(t *testing.T) {
	svc, _, _, _ := newReviewFixture(model.StatusPendiente)
	_, err := svc.SetStatus(context.Background(), 999, "RECHAZADA", nil, 7)
	assert.ErrorIs(t, err, repository.ErrRequestNotFound)
}

func TestCancel(t *testing.T) {
	t.Run("owner cancels pending request", func(t *testing.T) {
		svc, store, history, notifications := newReviewFixture(model.StatusPendiente)

		req, err := svc.Cancel(context.Background(), 10, 42)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelada, req.Status)
		assert.Equal(t, model.StatusCancelada, store.req.Status)
		assert.Equal(t, []string{"REQUEST_CANCEL"}, history.actions)
		assert.Len(t, notifications.sent, 1)
	})
	t.Run("non-owner is forbidden", func(t *testing.T) {
		svc, store, _, _ := newReviewFixture(model.StatusPendiente)

		_, err := svc.Cancel(context.Background(), 10, 777)
		assert.ErrorIs(t, err, repository.ErrForbidden)
		assert.Equal(t, model.StatusPendiente, store.req.Status)
	})
	t.Run("terminal state cannot be cancelled", func(t *testing.T) {
		svc, _, _, _ := newReviewFixture(model.StatusRechazada)

		_, err := svc.Cancel(context.Background(), 10, 42)
		var se *StateError
		assert.ErrorAs(t, err, &se)
	})
}
