package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from RequestStatus
		to   RequestStatus
		ok   bool
	}{
		{"pendiente to en_revision", StatusPendiente, StatusEnRevision, true},
		{"pendiente to necesita_info", StatusPendiente, StatusNecesitaInfo, true},
		{"pendiente to aprobada", StatusPendiente, StatusAprobada, true},
		{"pendiente to rechazada", StatusPendiente, StatusRechazada, true},
		{"pendiente to cancelada", StatusPendiente, StatusCancelada, true},
		{"en_revision to aprobada", StatusEnRevision, StatusAprobada, true},
		{"en_revision to pendiente", StatusEnRevision, StatusPendiente, false},
		{"necesita_info to aprobada", StatusNecesitaInfo, StatusAprobada, true},
		{"necesita_info to en_revision", StatusNecesitaInfo, StatusEnRevision, false},
		{"aprobada is terminal", StatusAprobada, StatusCancelada, false},
		{"aprobada to aprobada", StatusAprobada, StatusAprobada, false},
		{"rechazada is terminal", StatusRechazada, StatusAprobada, false},
		{"cancelada is terminal", StatusCancelada, StatusEnRevision, false},
		{"same status is not a transition", StatusPendiente, StatusPendiente, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPendiente.Terminal())
	assert.False(t, StatusEnRevision.Terminal())
	assert.False(t, StatusNecesitaInfo.Terminal())
	assert.True(t, StatusAprobada.Terminal())
	assert.True(t, StatusRechazada.Terminal())
	assert.True(t, StatusCancelada.Terminal())
}

func TestParseRequestStatus(t *testing.T) {
	got, ok := ParseRequestStatus("aprobada")
	assert.True(t, ok)
	assert.Equal(t, StatusAprobada, got)

	got, ok = ParseRequestStatus("  EN_REVISION ")
	assert.True(t, ok)
	assert.Equal(t, StatusEnRevision, got)

	_, ok = ParseRequestStatus("APPROVED")
	assert.False(t, ok)

	_, ok = ParseRequestStatus("")
	assert.False(t, ok)
}
