package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/handler"
	"github.com/iliyamo/scholrhub/internal/middleware"
)

// RegisterNotices registers the notice board.  Anyone signed in can read
// it (cached); Admin and Faculty post and remove notices.
func RegisterNotices(e *echo.Echo, h *handler.NoticeHandler, authMW echo.MiddlewareFunc, cache *middleware.ResponseCache) {
	g := e.Group("/v1/notices", authMW)
	g.GET("", h.List, cache.Middleware(middleware.CacheNotices))
	g.POST("", h.Create, middleware.RequireModerator())
	g.DELETE("/:id", h.Delete, middleware.RequireModerator())
}
