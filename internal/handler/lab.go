package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/repository"
)

// LabHandler serves the public lab browse endpoints and the admin CRUD.
type LabHandler struct {
	Labs      *repository.LabRepo
	Resources *repository.ResourceRepo
	Slots     *repository.CalendarRepo
	Trainings *repository.TrainingRepo
	History   *repository.HistoryRepo
}

func NewLabHandler(labs *repository.LabRepo, resources *repository.ResourceRepo,
	slots *repository.CalendarRepo, trainings *repository.TrainingRepo,
	history *repository.HistoryRepo) *LabHandler {
	return &LabHandler{Labs: labs, Resources: resources, Slots: slots, Trainings: trainings, History: history}
}

// List returns labs.  Unauthenticated callers only see active labs; the
// include_inactive query parameter is honored for admins via the admin
// route group.
func (h *LabHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("include_inactive") != "true"
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	labs, err := h.Labs.List(ctx, activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"labs": labs})
}

// Get returns one lab together with its required trainings.
func (h *LabHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	lab, err := h.Labs.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	required, err := h.Trainings.RequiredByLab(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"lab": lab, "required_trainings": required})
}

// ListResources returns a lab's resources.
func (h *LabHandler) ListResources(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Labs.GetByID(ctx, id); err != nil {
		return writeDomainError(c, err)
	}
	resources, err := h.Resources.ListByLab(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"resources": resources})
}

// Calendar returns a lab's slots inside [from, to).  Defaults to the next
// 30 days when the bounds are absent.
func (h *LabHandler) Calendar(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	from := time.Now().UTC()
	to := from.Add(30 * 24 * time.Hour)
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC3339"})
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be RFC3339"})
		}
		to = t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Labs.GetByID(ctx, id); err != nil {
		return writeDomainError(c, err)
	}
	slots, err := h.Slots.ListByLab(ctx, id, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// ----- admin CRUD -----

type labReq struct {
	DepartmentID uint64 `json:"department_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	Capacity     uint32 `json:"capacity"`
	ContactEmail string `json:"contact_email"`
	IsActive     *bool  `json:"is_active"`
}

// Create registers a new lab and records a LAB_CREATE history entry.
func (h *LabHandler) Create(c echo.Context) error {
	var req labReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.DepartmentID == 0 || req.Code == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "department_id/code/name required"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	lab := model.Lab{
		DepartmentID: req.DepartmentID,
		Code:         req.Code,
		Name:         req.Name,
		Location:     strings.TrimSpace(req.Location),
		Capacity:     req.Capacity,
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		IsActive:     active,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Labs.Create(ctx, &lab); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "lab code already exists"})
		}
		return writeDomainError(c, err)
	}
	h.audit(ctx, c, lab.ID, "LAB_CREATE", echo.Map{"code": lab.Code})
	return c.JSON(http.StatusCreated, echo.Map{"lab": lab})
}

// Update patches a lab.  Only provided fields change.
func (h *LabHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	lab, err := h.Labs.Update(ctx, id, patch)
	if err != nil {
		return writeDomainError(c, err)
	}
	h.audit(ctx, c, id, "LAB_UPDATE", patch)
	return c.JSON(http.StatusOK, echo.Map{"lab": lab})
}

// Delete removes a lab and everything hanging off it.
func (h *LabHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Labs.Delete(ctx, id); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// audit appends a history record for an admin action.  History failures are
// swallowed: the primary mutation already happened.
func (h *LabHandler) audit(ctx context.Context, c echo.Context, labID uint64, action string, detail any) {
	if h.History == nil {
		return
	}
	var actor *uint64
	if uid, err := getUserID(c); err == nil {
		actor = &uid
	}
	if err := h.History.Add(ctx, labID, actor, action, detail); err != nil {
		c.Logger().Warnf("lab audit append failed: %v", err)
	}
}
