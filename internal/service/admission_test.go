package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/repository"
)

// ----- fakes -----

// fakeSlotTable is an in-memory calendar shared between the availability
// checker and the request store, so the store's in-transaction re-check
// sees exactly what concurrent creates committed.
type fakeSlotTable struct {
	mu    sync.Mutex
	slots []model.CalendarSlot
	finds int
}

func (f *fakeSlotTable) FindOverlapping(_ context.Context, labID uint64, resourceIDs []uint64, from, to time.Time) ([]model.SlotConflict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	return f.overlapLocked(labID, resourceIDs, from, to), nil
}

func (f *fakeSlotTable) overlapLocked(labID uint64, resourceIDs []uint64, from, to time.Time) []model.SlotConflict {
	wanted := make(map[uint64]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		wanted[id] = true
	}
	out := make([]model.SlotConflict, 0)
	for _, s := range f.slots {
		if s.LabID != labID || !model.Overlaps(s.StartsAt, s.EndsAt, from, to) {
			continue
		}
		if s.ResourceID != nil && !wanted[*s.ResourceID] {
			continue
		}
		out = append(out, model.SlotConflict{
			SlotID:     s.ID,
			ResourceID: s.ResourceID,
			StartsAt:   s.StartsAt,
			EndsAt:     s.EndsAt,
			Status:     s.Status,
			Reason:     s.Reason,
		})
	}
	return out
}

type fakeLabs struct {
	labs  map[uint64]model.Lab
	calls int
}

func (f *fakeLabs) GetByID(_ context.Context, id uint64) (model.Lab, error) {
	f.calls++
	lab, ok := f.labs[id]
	if !ok {
		return model.Lab{}, repository.ErrLabNotFound
	}
	return lab, nil
}

type fakeResources struct {
	resources map[uint64]model.Resource
	calls     int
}

func (f *fakeResources) ByIDs(_ context.Context, ids []uint64) ([]model.Resource, error) {
	f.calls++
	out := make([]model.Resource, 0, len(ids))
	for _, id := range ids {
		if res, ok := f.resources[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

type fakeTrainings struct {
	missing []model.MissingRequirement
	calls   int
}

func (f *fakeTrainings) MissingForUser(_ context.Context, _, _ uint64) ([]model.MissingRequirement, error) {
	f.calls++
	return f.missing, nil
}

// fakeRequestStore mimics the transactional admission commit: the overlap
// re-check and the slot insert happen under one lock, so concurrent creates
// serialize the same way the lab row lock serializes them in MySQL.
type fakeRequestStore struct {
	table   *fakeSlotTable
	nextID  uint64
	created []model.Request
	calls   int
}

func (f *fakeRequestStore) CreateWithSlots(_ context.Context, req *model.Request, _ []model.RequestItem, slots []model.CalendarSlot) ([]model.SlotConflict, error) {
	f.table.mu.Lock()
	defer f.table.mu.Unlock()
	f.calls++

	resourceIDs := make([]uint64, 0, len(slots))
	for _, s := range slots {
		if s.ResourceID != nil {
			resourceIDs = append(resourceIDs, *s.ResourceID)
		}
	}
	if conflicts := f.table.overlapLocked(req.LabID, resourceIDs, req.StartsAt, req.EndsAt); len(conflicts) > 0 {
		return conflicts, nil
	}
	f.nextID++
	req.ID = f.nextID
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	for i := range slots {
		slots[i].ID = uint64(len(f.table.slots) + 1)
		f.table.slots = append(f.table.slots, slots[i])
	}
	f.created = append(f.created, *req)
	return nil, nil
}

type admissionFixture struct {
	svc       *AdmissionService
	table     *fakeSlotTable
	labs      *fakeLabs
	resources *fakeResources
	trainings *fakeTrainings
	requests  *fakeRequestStore
}

var testNow = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

func newAdmissionFixture() *admissionFixture {
	table := &fakeSlotTable{}
	labs := &fakeLabs{labs: map[uint64]model.Lab{
		1: {ID: 1, Code: "QUIM-01", Name: "Química General", IsActive: true},
		2: {ID: 2, Code: "FIS-02", Name: "Física", IsActive: false},
	}}
	resources := &fakeResources{resources: map[uint64]model.Resource{
		7: {ID: 7, LabID: 1, Type: model.ResourceEquipment, Name: "Centrífuga", State: model.StateDisponible},
		8: {ID: 8, LabID: 1, Type: model.ResourceSpace, Name: "Mesa 3", State: model.StateDisponible},
		9: {ID: 9, LabID: 1, Type: model.ResourceEquipment, Name: "Espectrómetro", State: model.StateMantenimiento},
	}}
	trainings := &fakeTrainings{}
	requests := &fakeRequestStore{table: table}

	svc := NewAdmissionService(labs, resources, requests,
		NewAvailabilityChecker(table), NewRequirementsChecker(trainings),
		nil, nil, nil)
	svc.now = func() time.Time { return testNow }
	return &admissionFixture{svc: svc, table: table, labs: labs, resources: resources, trainings: trainings, requests: requests}
}

func validInput() CreateRequestInput {
	return CreateRequestInput{
		RequesterID: 42,
		Role:        model.RoleUsuario,
		LabID:       1,
		Purpose:     "Práctica de titulación",
		StartsAt:    "2024-01-10T09:00:00Z",
		EndsAt:      "2024-01-10T10:00:00Z",
	}
}

// ----- tests -----

func TestCreateCleanWindowSlotCount(t *testing.T) {
	fx := newAdmissionFixture()
	in := validInput()
	in.Items = []RequestedItem{ // resource 7 twice must not create a second slot
		{ResourceID: 7},
		{ResourceID: 8},
		{ResourceID: 7, Qty: 2},
	}

	res, err := fx.svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPendiente, res.Request.Status)
	assert.True(t, res.Request.RequirementsOk)
	assert.Equal(t, model.RoleUsuario, res.Request.RoleSnapshot)

	// 1 lab slot + 2 distinct resources.
	require.Len(t, fx.table.slots, 3)
	for _, s := range fx.table.slots {
		assert.Equal(t, res.Request.StartsAt, s.StartsAt)
		assert.Equal(t, res.Request.EndsAt, s.EndsAt)
		assert.Equal(t, model.SlotReservado, s.Status)
	}
	// One request item per payload line, qty carried through.
	require.Len(t, res.Items, 3)
	assert.Equal(t, model.ResourceEquipment, res.Items[0].ItemType)
	assert.Equal(t, uint32(1), res.Items[0].Qty) // qty defaults to 1
	assert.Equal(t, model.ResourceSpace, res.Items[1].ItemType)
	assert.Equal(t, uint32(2), res.Items[2].Qty)
}

func TestCreateWithoutResourcesUsesLabSpaceItem(t *testing.T) {
	fx := newAdmissionFixture()

	res, err := fx.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.Len(t, fx.table.slots, 1)
	assert.Nil(t, fx.table.slots[0].ResourceID)
	assert.Equal(t, "Práctica de titulación", fx.table.slots[0].Reason) // falls back to the purpose
	require.Len(t, res.Items, 1)
	assert.Equal(t, model.ItemTypeLabSpace, res.Items[0].ItemType)
	assert.Nil(t, res.Items[0].ResourceID)
}

func TestCreateLabSpaceItemCarriesQtyAndReason(t *testing.T) {
	fx := newAdmissionFixture()
	in := validInput()
	in.Reason = "Clase magistral"
	in.Items = []RequestedItem{{Qty: 3}} // no resource_id: reserves the lab space

	res, err := fx.svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Nil(t, res.Items[0].ResourceID)
	assert.Equal(t, model.ItemTypeLabSpace, res.Items[0].ItemType)
	assert.Equal(t, uint32(3), res.Items[0].Qty)

	require.Len(t, fx.table.slots, 1)
	assert.Equal(t, "Clase magistral", fx.table.slots[0].Reason)
}

func TestValidationBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		startsAt string
		endsAt   string
		wantErr  bool
	}{
		{"exactly 30 minutes", "2024-01-10T09:00:00Z", "2024-01-10T09:30:00Z", false},
		{"29 minutes", "2024-01-10T09:00:00Z", "2024-01-10T09:29:00Z", true},
		{"exactly 720 hours", "2024-01-10T09:00:00Z", "2024-02-09T09:00:00Z", false},
		{"721 hours", "2024-01-10T09:00:00Z", "2024-02-09T10:00:00Z", true},
		{"exactly 5 minutes in the past", "2024-01-10T07:55:00Z", "2024-01-10T09:00:00Z", false},
		{"6 minutes in the past", "2024-01-10T07:54:00Z", "2024-01-10T09:00:00Z", true},
		{"end before start", "2024-01-10T10:00:00Z", "2024-01-10T09:00:00Z", true},
		{"missing starts_at", "", "2024-01-10T10:00:00Z", true},
		{"garbage starts_at", "not-a-date", "2024-01-10T10:00:00Z", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newAdmissionFixture()
			in := validInput()
			in.StartsAt = tc.startsAt
			in.EndsAt = tc.endsAt

			_, err := fx.svc.Create(context.Background(), in)
			if tc.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidationFailureIssuesNoQueries(t *testing.T) {
	fx := newAdmissionFixture()
	in := validInput()
	in.StartsAt = ""

	_, err := fx.svc.Create(context.Background(), in)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "starts_at", ve.Field)

	assert.Zero(t, fx.labs.calls)
	assert.Zero(t, fx.resources.calls)
	assert.Zero(t, fx.trainings.calls)
	assert.Zero(t, fx.table.finds)
	assert.Zero(t, fx.requests.calls)
}

func TestCreateConflictWritesNothing(t *testing.T) {
	fx := newAdmissionFixture()
	busy := model.CalendarSlot{
		ID:       1,
		LabID:    1,
		StartsAt: time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC),
		EndsAt:   time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC),
		Status:   model.SlotBloqueado,
		Reason:   "Mantenimiento preventivo",
	}
	fx.table.slots = append(fx.table.slots, busy)

	for i := 0; i < 2; i++ { // rejection must be idempotent
		_, err := fx.svc.Create(context.Background(), validInput())
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
		require.Len(t, ce.Conflicts, 1)
		assert.Equal(t, busy.ID, ce.Conflicts[0].SlotID)
	}
	assert.Len(t, fx.table.slots, 1)
	assert.Empty(t, fx.requests.created)
}

func TestPreviewCreateConsistency(t *testing.T) {
	fx := newAdmissionFixture()
	fx.trainings.missing = []model.MissingRequirement{{TrainingID: 3, Code: "SEG-LAB", Name: "Seguridad de laboratorio"}}
	in := validInput()

	preview, err := fx.svc.Preview(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, preview.Availability.OK)
	assert.False(t, preview.Requirements.OK)

	res, err := fx.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, preview.Requirements.OK, res.Requirements.OK)
	assert.Equal(t, preview.Requirements.Missing, res.Requirements.Missing)
	assert.False(t, res.Request.RequirementsOk) // advisory flag recorded, not blocking
}

func TestResourceConflictScenario(t *testing.T) {
	fx := newAdmissionFixture()

	a := validInput()
	a.Items = []RequestedItem{{ResourceID: 7}}
	resA, err := fx.svc.Create(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, fx.table.slots, 2) // lab + resource 7

	b := validInput()
	b.Items = []RequestedItem{{ResourceID: 7}}
	b.StartsAt = "2024-01-10T09:30:00Z"
	b.EndsAt = "2024-01-10T10:30:00Z"
	_, err = fx.svc.Create(context.Background(), b)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	found := false
	for _, conflict := range ce.Conflicts {
		if conflict.ResourceID != nil && *conflict.ResourceID == 7 {
			found = true
			assert.Equal(t, resA.Request.StartsAt, conflict.StartsAt)
		}
	}
	assert.True(t, found, "conflict list should reference the slot on resource 7")
	assert.Len(t, fx.table.slots, 2)
}

func TestCreateReferentialChecks(t *testing.T) {
	t.Run("unknown lab", func(t *testing.T) {
		fx := newAdmissionFixture()
		in := validInput()
		in.LabID = 99
		_, err := fx.svc.Create(context.Background(), in)
		assert.ErrorIs(t, err, repository.ErrLabNotFound)
	})
	t.Run("inactive lab", func(t *testing.T) {
		fx := newAdmissionFixture()
		in := validInput()
		in.LabID = 2
		_, err := fx.svc.Create(context.Background(), in)
		var se *StateError
		assert.ErrorAs(t, err, &se)
	})
	t.Run("unknown resource", func(t *testing.T) {
		fx := newAdmissionFixture()
		in := validInput()
		in.Items = []RequestedItem{{ResourceID: 7}, {ResourceID: 77}}
		_, err := fx.svc.Create(context.Background(), in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "items", ve.Field)
	})
	t.Run("resource under maintenance", func(t *testing.T) {
		fx := newAdmissionFixture()
		in := validInput()
		in.Items = []RequestedItem{{ResourceID: 9}}
		_, err := fx.svc.Create(context.Background(), in)
		var se *StateError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Reason, "Espectrómetro")
	})
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	fx := newAdmissionFixture()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := validInput()
			in.RequesterID = uint64(100 + i)
			_, errs[i] = fx.svc.Create(context.Background(), in)
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		var ce *ConflictError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &ce):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one create must win the window")
	assert.Equal(t, 1, conflicts, "the loser must see a conflict")
	assert.Len(t, fx.table.slots, 1)
	assert.Len(t, fx.requests.created, 1)
}
