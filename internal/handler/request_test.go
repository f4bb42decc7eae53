package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/repository"
	"github.com/ucampus/lab-reservation/internal/service"
)

// ----- stub stores backing an in-memory AdmissionService -----

type stubLabs struct{ labs map[uint64]model.Lab }

func (s stubLabs) GetByID(_ context.Context, id uint64) (model.Lab, error) {
	lab, ok := s.labs[id]
	if !ok {
		return model.Lab{}, repository.ErrLabNotFound
	}
	return lab, nil
}

type stubResources struct{ resources map[uint64]model.Resource }

func (s stubResources) ByIDs(_ context.Context, ids []uint64) ([]model.Resource, error) {
	out := make([]model.Resource, 0, len(ids))
	for _, id := range ids {
		if res, ok := s.resources[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

type stubSlots struct{}

func (stubSlots) FindOverlapping(_ context.Context, _ uint64, _ []uint64, _, _ time.Time) ([]model.SlotConflict, error) {
	return nil, nil
}

type stubTrainings struct{}

func (stubTrainings) MissingForUser(_ context.Context, _, _ uint64) ([]model.MissingRequirement, error) {
	return nil, nil
}

type stubRequests struct{}

func (stubRequests) CreateWithSlots(_ context.Context, req *model.Request, _ []model.RequestItem, _ []model.CalendarSlot) ([]model.SlotConflict, error) {
	req.ID = 1
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	return nil, nil
}

func newTestAdmission() *service.AdmissionService {
	return service.NewAdmissionService(
		stubLabs{labs: map[uint64]model.Lab{1: {ID: 1, Code: "QUIM-01", Name: "Química General", IsActive: true}}},
		stubResources{resources: map[uint64]model.Resource{
			7: {ID: 7, LabID: 1, Type: model.ResourceEquipment, Name: "Centrífuga", State: model.StateDisponible},
		}},
		stubRequests{},
		service.NewAvailabilityChecker(stubSlots{}),
		service.NewRequirementsChecker(stubTrainings{}),
		nil, nil, nil)
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(42))
	c.Set("role", model.RoleUsuario)
	return c, rec
}

func createBody(extra string) string {
	starts := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	ends := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	return fmt.Sprintf(`{"lab_id":1,"purpose":"Práctica de titulación","starts_at":%q,"ends_at":%q%s}`, starts, ends, extra)
}

func TestCreateAcceptsItemsPayload(t *testing.T) {
	h := NewRequestHandler(newTestAdmission(), nil, nil, nil)
	c, rec := newJSONContext(http.MethodPost, "/v1/requests", createBody(`,"items":[{"resource_id":7,"qty":2}]`))

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Items []struct {
			ResourceID *uint64 `json:"resource_id"`
			Qty        uint32  `json:"qty"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.NotNil(t, resp.Items[0].ResourceID)
	assert.Equal(t, uint64(7), *resp.Items[0].ResourceID)
	assert.Equal(t, uint32(2), resp.Items[0].Qty)
}

func TestCreateResponseValidationBlock(t *testing.T) {
	h := NewRequestHandler(newTestAdmission(), nil, nil, nil)
	c, rec := newJSONContext(http.MethodPost, "/v1/requests", createBody(`,"items":[]`))

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Validation map[string]json.RawMessage `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Validation, "availability_ok")
	require.Contains(t, resp.Validation, "availability_conflicts")
	require.Contains(t, resp.Validation, "requirements_ok")
	require.Contains(t, resp.Validation, "missing_requirements")
	assert.JSONEq(t, "true", string(resp.Validation["availability_ok"]))
	assert.JSONEq(t, "[]", string(resp.Validation["availability_conflicts"]))
}

func TestCreateMissingPurposeRejected(t *testing.T) {
	h := NewRequestHandler(newTestAdmission(), nil, nil, nil)
	starts := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	ends := time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"lab_id":1,"items":[],"starts_at":%q,"ends_at":%q}`, starts, ends)
	c, rec := newJSONContext(http.MethodPost, "/v1/requests", body)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "purpose", resp.Field)
}
