// Package router wires handlers to routes, grouped by required role.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/handler"
	"github.com/ucampus/lab-reservation/internal/middleware"
	"github.com/ucampus/lab-reservation/internal/model"
)

// RegisterRoutes registers the routes that require no authentication at
// all.  Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints.  Register, login, refresh
// and logout live under /v1/auth without middleware; /v1/me requires a
// valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a bearer token (revoke all sessions) or a
	// refresh_token body (revoke one), so it stays outside the JWT group.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleEncargado, model.RoleUsuario))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints: labs,
// their resources and their calendars.  Guests use these to explore what
// can be reserved before creating an account.
func RegisterPublic(e *echo.Echo, l *handler.LabHandler) {
	e.GET("/v1/labs", l.List)
	e.GET("/v1/labs/:id", l.Get)
	e.GET("/v1/labs/:id/resources", l.ListResources)
	e.GET("/v1/labs/:id/calendar", l.Calendar)
}
