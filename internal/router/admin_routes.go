package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/handler"
	"github.com/ucampus/lab-reservation/internal/middleware"
	"github.com/ucampus/lab-reservation/internal/model"
)

// RegisterAdmin registers lab administration: lab CRUD, resource CRUD,
// consumable stock, user management and the audit history (JSON and CSV).
func RegisterAdmin(e *echo.Echo, labs *handler.LabHandler, resources *handler.ResourceHandler,
	users *handler.UserHandler, history *handler.HistoryHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/labs", labs.Create)
	g.PUT("/labs/:id", labs.Update)
	g.DELETE("/labs/:id", labs.Delete)

	g.POST("/labs/:id/resources", resources.Create)
	g.PUT("/resources/:resource_id/state", resources.UpdateState)
	g.DELETE("/resources/:resource_id", resources.Delete)
	g.PUT("/resources/:resource_id/stock", resources.UpsertStock)
	g.GET("/resources/:resource_id/stock", resources.GetStock)

	g.GET("/users", users.List)
	g.GET("/users/:id", users.Get)
	g.PUT("/users/:id/role", users.SetRole)
	g.PUT("/users/:id/active", users.SetActive)

	g.GET("/labs/:id/history", history.List)
	g.GET("/labs/:id/history.csv", history.ExportCSV)
}
