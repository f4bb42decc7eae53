package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/handler"
	"github.com/ucampus/lab-reservation/internal/middleware"
	"github.com/ucampus/lab-reservation/internal/model"
)

// RegisterReviewer registers the endpoints reserved for lab managers and
// admins: the status decision on a request.
func RegisterReviewer(e *echo.Echo, h *handler.ReviewHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleEncargado),
	)
	g.PUT("/requests/:id/status", h.SetStatus)
}
