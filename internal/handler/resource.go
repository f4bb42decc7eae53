package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/repository"
)

// ResourceHandler serves the admin resource CRUD plus the consumable stock
// sub-records.
type ResourceHandler struct {
	Labs      *repository.LabRepo
	Resources *repository.ResourceRepo
	History   *repository.HistoryRepo
}

func NewResourceHandler(labs *repository.LabRepo, resources *repository.ResourceRepo,
	history *repository.HistoryRepo) *ResourceHandler {
	return &ResourceHandler{Labs: labs, Resources: resources, History: history}
}

type resourceReq struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	InventoryCode string `json:"inventory_code"`
	State         string `json:"state"`
}

func validResourceType(t string) bool {
	switch t {
	case model.ResourceEquipment, model.ResourceConsumable, model.ResourceSpace:
		return true
	}
	return false
}

func validResourceState(s string) bool {
	switch s {
	case model.StateDisponible, model.StateMantenimiento, model.StateBaja:
		return true
	}
	return false
}

// Create adds a resource to a lab.
func (h *ResourceHandler) Create(c echo.Context) error {
	labID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resourceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	req.Name = strings.TrimSpace(req.Name)
	if !validResourceType(req.Type) || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type/name required"})
	}
	state := strings.ToUpper(strings.TrimSpace(req.State))
	if state == "" {
		state = model.StateDisponible
	}
	if !validResourceState(state) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown state"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Labs.GetByID(ctx, labID); err != nil {
		return writeDomainError(c, err)
	}
	res := model.Resource{
		LabID:         labID,
		Type:          req.Type,
		Name:          req.Name,
		InventoryCode: strings.TrimSpace(req.InventoryCode),
		State:         state,
	}
	if err := h.Resources.Create(ctx, &res); err != nil {
		return writeDomainError(c, err)
	}
	h.audit(ctx, c, labID, "RESOURCE_CREATE", echo.Map{"resource_id": res.ID, "name": res.Name})
	return c.JSON(http.StatusCreated, echo.Map{"resource": res})
}

type resourceStateReq struct {
	State string `json:"state"`
}

// UpdateState moves a resource between DISPONIBLE, MANTENIMIENTO and BAJA.
func (h *ResourceHandler) UpdateState(c echo.Context) error {
	id, ok := pathID(c, "resource_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resourceStateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	state := strings.ToUpper(strings.TrimSpace(req.State))
	if !validResourceState(state) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown state"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Resources.UpdateState(ctx, id, state)
	if err != nil {
		return writeDomainError(c, err)
	}
	h.audit(ctx, c, res.LabID, "RESOURCE_STATE", echo.Map{"resource_id": res.ID, "state": state})
	return c.JSON(http.StatusOK, echo.Map{"resource": res})
}

// Delete removes a resource.
func (h *ResourceHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "resource_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Resources.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := h.Resources.Delete(ctx, id); err != nil {
		return writeDomainError(c, err)
	}
	h.audit(ctx, c, res.LabID, "RESOURCE_DELETE", echo.Map{"resource_id": id})
	return c.NoContent(http.StatusNoContent)
}

type stockReq struct {
	Unit         string  `json:"unit"`
	QtyAvailable float64 `json:"qty_available"`
	ReorderPoint float64 `json:"reorder_point"`
}

// UpsertStock creates or replaces the stock record of a consumable.
func (h *ResourceHandler) UpsertStock(c echo.Context) error {
	id, ok := pathID(c, "resource_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req stockReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Unit) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unit required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Resources.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if res.Type != model.ResourceConsumable {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource is not a consumable"})
	}
	stock := model.ConsumableStock{
		ResourceID:   id,
		Unit:         strings.TrimSpace(req.Unit),
		QtyAvailable: req.QtyAvailable,
		ReorderPoint: req.ReorderPoint,
	}
	if err := h.Resources.UpsertStock(ctx, &stock); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save stock failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stock": stock})
}

// GetStock returns the stock record of a consumable.
func (h *ResourceHandler) GetStock(c echo.Context) error {
	id, ok := pathID(c, "resource_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	stock, err := h.Resources.GetStock(ctx, id)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no stock record"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stock": stock})
}

func (h *ResourceHandler) audit(ctx context.Context, c echo.Context, labID uint64, action string, detail any) {
	if h.History == nil {
		return
	}
	var actor *uint64
	if uid, err := getUserID(c); err == nil {
		actor = &uid
	}
	if err := h.History.Add(ctx, labID, actor, action, detail); err != nil {
		c.Logger().Warnf("resource audit append failed: %v", err)
	}
}
