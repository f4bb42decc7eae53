package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/repository"
	"github.com/ucampus/lab-reservation/internal/service"
)

// RequestHandler serves the reservation request endpoints: preview, create,
// browse, cancel and the message thread.
type RequestHandler struct {
	Admission *service.AdmissionService
	Review    *service.ReviewService
	Requests  *repository.RequestRepo
	Messages  *repository.MessageRepo
}

func NewRequestHandler(admission *service.AdmissionService, review *service.ReviewService,
	requests *repository.RequestRepo, messages *repository.MessageRepo) *RequestHandler {
	return &RequestHandler{Admission: admission, Review: review, Requests: requests, Messages: messages}
}

type requestItemReq struct {
	ResourceID uint64 `json:"resource_id"`
	Qty        uint32 `json:"qty"`
}

type createRequestReq struct {
	LabID    uint64           `json:"lab_id"`
	Purpose  string           `json:"purpose"`
	Reason   string           `json:"reason"`
	StartsAt string           `json:"starts_at"`
	EndsAt   string           `json:"ends_at"`
	Items    []requestItemReq `json:"items"`
}

func (h *RequestHandler) admissionInput(c echo.Context) (service.CreateRequestInput, error) {
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return service.CreateRequestInput{}, err
	}
	uid, err := getUserID(c)
	if err != nil {
		return service.CreateRequestInput{}, err
	}
	items := make([]service.RequestedItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.RequestedItem{ResourceID: it.ResourceID, Qty: it.Qty})
	}
	return service.CreateRequestInput{
		RequesterID: uid,
		Role:        getRole(c),
		LabID:       req.LabID,
		Purpose:     req.Purpose,
		Reason:      req.Reason,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Items:       items,
	}, nil
}

// Preview runs the availability and requirements checks without creating
// anything.
func (h *RequestHandler) Preview(c echo.Context) error {
	in, err := h.admissionInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Admission.Preview(ctx, in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"availability_ok":        res.Availability.OK,
		"availability_conflicts": res.Availability.Conflicts,
		"requirements_ok":        res.Requirements.OK,
		"missing_requirements":   res.Requirements.Missing,
	})
}

// Create admits a new reservation request.
func (h *RequestHandler) Create(c echo.Context) error {
	in, err := h.admissionInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Admission.Create(ctx, in)
	if err != nil {
		return writeDomainError(c, err)
	}
	// The in-transaction re-check guarantees a committed request has a
	// clean window, so the availability verdict is always affirmative here.
	return c.JSON(http.StatusCreated, echo.Map{
		"request": res.Request,
		"items":   res.Items,
		"validation": echo.Map{
			"availability_ok":        true,
			"availability_conflicts": []model.SlotConflict{},
			"requirements_ok":        res.Requirements.OK,
			"missing_requirements":   res.Requirements.Missing,
		},
	})
}

// List returns requests visible to the caller.  USUARIO sees only their own
// requests; reviewers and admins can browse everything and filter by
// lab_id, status, from and to.
func (h *RequestHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f := repository.RequestFilter{}
	if getRole(c) == model.RoleUsuario {
		f.RequesterID = uid
	}
	if v := c.QueryParam("lab_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.LabID = n
		}
	}
	if v := c.QueryParam("status"); v != "" {
		status, ok := model.ParseRequestStatus(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		f.Status = status
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC3339"})
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be RFC3339"})
		}
		f.To = t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	requests, err := h.Requests.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": requests})
}

// Get returns one request with its items.  Only the requester, reviewers
// and admins may read it.
func (h *RequestHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	req, items, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if getRole(c) == model.RoleUsuario && req.RequesterID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"request": req, "items": items})
}

// Cancel withdraws the caller's own request.
func (h *RequestHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	req, err := h.Review.Cancel(ctx, id, uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"request": req})
}

type postMessageReq struct {
	Message string `json:"message"`
}

// ListMessages returns the conversation thread of a request.
func (h *RequestHandler) ListMessages(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	req, _, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if getRole(c) == model.RoleUsuario && req.RequesterID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	msgs, err := h.Messages.ListByRequest(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// PostMessage appends one message to a request's thread.  The sender side
// is derived from the caller's role: requesters write as USUARIO, everyone
// else as ENCARGADO.
func (h *RequestHandler) PostMessage(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body postMessageReq
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	req, _, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	role := getRole(c)
	if role == model.RoleUsuario && req.RequesterID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	sender := "ENCARGADO"
	if role == model.RoleUsuario {
		sender = "USUARIO"
	}

	msg := model.RequestMessage{RequestID: id, Sender: sender, Message: strings.TrimSpace(body.Message)}
	if err := h.Messages.Add(ctx, &msg); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": msg})
}
