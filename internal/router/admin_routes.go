package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/handler"
	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/model"
)

// RegisterAdmin registers account and settings administration under
// /v1/admin.  All routes require a valid JWT and the Admin role, except the
// dashboard which staff (Admin or Faculty) may read.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, s *handler.StatsHandler, authMW echo.MiddlewareFunc) {
	// Dashboard figures are never cached: they must reflect the current
	// settings and counts on every request.
	e.GET("/v1/admin/stats", s.Dashboard, authMW, middleware.RequireModerator())

	g := e.Group("/v1/admin", authMW, middleware.RequireRole(model.RoleAdmin))

	// ---- Users ----
	g.GET("/users", a.ListUsers)
	g.POST("/users", a.CreateUser)
	g.PUT("/users/:id", a.UpdateUser)
	g.DELETE("/users/:id", a.DeleteUser)

	// ---- Settings ----
	g.GET("/settings", a.ListSettings)
	g.PUT("/settings/:key", a.PutSetting)
}

// RegisterStats registers the activity charts any signed-in user can read.
func RegisterStats(e *echo.Echo, s *handler.StatsHandler, authMW echo.MiddlewareFunc) {
	g := e.Group("/v1/stats", authMW)
	g.GET("/activity", s.Activity)
	g.GET("/me/activity", s.MyActivity)
	g.GET("/me/submissions", s.MySubmissions)
}
