package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/service"
)

// ReviewHandler serves the reviewer-only status endpoint.
type ReviewHandler struct {
	Review *service.ReviewService
}

func NewReviewHandler(review *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{Review: review}
}

type setStatusReq struct {
	Status       string  `json:"status"`
	ReviewerNote *string `json:"reviewer_note"`
}

// SetStatus applies a reviewer decision to a request.  Allowed targets are
// APROBADA, RECHAZADA and NECESITA_INFO; the lifecycle graph decides
// whether the move is legal from the current state.
func (h *ReviewHandler) SetStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body setStatusReq
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	req, err := h.Review.SetStatus(ctx, id, body.Status, body.ReviewerNote, uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"request": req})
}
