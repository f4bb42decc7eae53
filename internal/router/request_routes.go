package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/handler"
	"github.com/ucampus/lab-reservation/internal/middleware"
	"github.com/ucampus/lab-reservation/internal/model"
)

// RegisterRequests registers the reservation endpoints available to every
// authenticated role.  Ownership checks (a USUARIO may only touch their own
// requests) happen inside the handlers.
func RegisterRequests(e *echo.Echo, h *handler.RequestHandler, n *handler.NotificationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleEncargado, model.RoleUsuario),
	)
	g.POST("/requests/preview", h.Preview)
	g.POST("/requests", h.Create)
	g.GET("/requests", h.List)
	g.GET("/requests/:id", h.Get)
	g.POST("/requests/:id/cancel", h.Cancel)
	g.GET("/requests/:id/messages", h.ListMessages)
	g.POST("/requests/:id/messages", h.PostMessage)

	g.GET("/notifications", n.List)
	g.POST("/notifications/:id/seen", n.MarkSeen)
	g.POST("/notifications/mark-all-seen", n.MarkAllSeen)
}
