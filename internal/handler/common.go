// Package handler defines the HTTP handlers.  Handlers bind and validate
// transport concerns, delegate to services or repositories, and translate
// domain errors into JSON responses.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/repository"
	"github.com/ucampus/lab-reservation/internal/service"
)

// dbTimeout bounds every database call issued from a handler.
const dbTimeout = 5 * time.Second

// getUserID extracts the authenticated user id stored by the JWT
// middleware.  JWT claims decode numbers as float64, so several shapes are
// accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole returns the role claim stored by the JWT middleware.
func getRole(c echo.Context) string {
	if s, ok := c.Get("role").(string); ok {
		return s
	}
	return ""
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}

// writeDomainError maps service and repository errors onto HTTP responses.
// Unknown errors fall through to a generic 500 so internals never leak.
func writeDomainError(c echo.Context, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	}
	var se *service.StateError
	if errors.As(err, &se) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": se.Reason})
	}
	var ce *service.ConflictError
	if errors.As(err, &ce) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           "window not available",
			"availability_ok": false,
			"conflicts":       ce.Conflicts,
		})
	}
	switch {
	case errors.Is(err, repository.ErrLabNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "lab not found"})
	case errors.Is(err, repository.ErrResourceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
	case errors.Is(err, repository.ErrRequestNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	case errors.Is(err, repository.ErrDepartmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "department not found"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
