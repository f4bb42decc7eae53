package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucampus/lab-reservation/internal/model"
)

func TestAvailabilityCheck(t *testing.T) {
	resID := uint64(7)
	table := &fakeSlotTable{slots: []model.CalendarSlot{
		{
			ID:       1,
			LabID:    1,
			StartsAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
			Status:   model.SlotMantenimiento,
			Reason:   "Calibración anual",
		},
		{
			ID:         2,
			LabID:      1,
			ResourceID: &resID,
			StartsAt:   time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
			EndsAt:     time.Date(2024, 1, 10, 16, 0, 0, 0, time.UTC),
			Status:     model.SlotReservado,
			Reason:     "Reserva solicitada",
		},
	}}
	checker := NewAvailabilityChecker(table)

	t.Run("clear window", func(t *testing.T) {
		res, err := checker.Check(context.Background(), 1, nil,
			time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 10, 11, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Empty(t, res.Conflicts)
	})
	t.Run("lab-level slot blocks regardless of status", func(t *testing.T) {
		res, err := checker.Check(context.Background(), 1, nil,
			time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC),
			time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, res.OK)
		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, model.SlotMantenimiento, res.Conflicts[0].Status)
	})
	t.Run("resource slot only blocks when the resource is requested", func(t *testing.T) {
		window := []time.Time{
			time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC),
		}
		res, err := checker.Check(context.Background(), 1, nil, window[0], window[1])
		require.NoError(t, err)
		assert.True(t, res.OK)

		res, err = checker.Check(context.Background(), 1, []uint64{7}, window[0], window[1])
		require.NoError(t, err)
		assert.False(t, res.OK)
	})
}

func TestRequirementsCheck(t *testing.T) {
	t.Run("all satisfied", func(t *testing.T) {
		checker := NewRequirementsChecker(&fakeTrainings{})
		res, err := checker.Check(context.Background(), 1, 42)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.Empty(t, res.Missing)
	})
	t.Run("missing trainings reported", func(t *testing.T) {
		missing := []model.MissingRequirement{
			{TrainingID: 3, Code: "SEG-LAB", Name: "Seguridad de laboratorio"},
			{TrainingID: 5, Code: "BIO-02", Name: "Bioseguridad nivel 2"},
		}
		checker := NewRequirementsChecker(&fakeTrainings{missing: missing})
		res, err := checker.Check(context.Background(), 1, 42)
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, missing, res.Missing)
	})
}
