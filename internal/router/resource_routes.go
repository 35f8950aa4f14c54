package router

import (
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/scholrhub/internal/handler"
	"github.com/iliyamo/scholrhub/internal/middleware"
)

// formSlack is room for the metadata fields and multipart framing on top
// of the file itself.
const formSlack = 1 << 20

// RegisterResources registers the resource endpoints under /v1/resources.
// Every route needs a valid access token.  Listing approved resources goes
// through the response cache; uploads pass a dedicated, smaller rate limit
// bucket and a body limit derived from the upload size cap.  Moderation
// (pending list, approve, reject) is restricted to Admin and Faculty.
func RegisterResources(e *echo.Echo, h *handler.ResourceHandler, authMW echo.MiddlewareFunc,
	cache *middleware.ResponseCache, uploadLimit echo.MiddlewareFunc, maxUploadBytes int64) {
	g := e.Group("/v1/resources", authMW)

	g.GET("", h.List, cache.Middleware(middleware.CacheResources))
	g.POST("", h.Upload, uploadLimit, echomw.BodyLimit(bodyLimit(maxUploadBytes)))
	g.GET("/:id/file", h.File)

	mod := g.Group("", middleware.RequireModerator())
	mod.GET("/pending", h.Pending)
	mod.PATCH("/:id/approve", h.Approve)
	mod.PATCH("/:id/reject", h.Reject)
	// DELETE is the verb the admin console uses for rejection.
	mod.DELETE("/:id", h.Reject)
}

// bodyLimit renders a byte count in the K units echo's BodyLimit parses.
func bodyLimit(maxBytes int64) string {
	return fmt.Sprintf("%dK", (maxBytes+formSlack+1023)/1024)
}
