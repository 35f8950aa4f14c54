package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/scholrhub/internal/handler" // handlers that implement the endpoints
)

// RegisterRoutes registers routes that do not require authentication: the
// health checks used by load balancers and the Prometheus scrape endpoint.
// metrics may be nil, in which case /metrics is not mounted.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, metrics http.Handler) {
	// Both paths answer the same check; /healthz is kept for liveness checks that
	// expect the Kubernetes spelling.
	e.GET("/health", h.Health)
	e.GET("/healthz", h.Health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers all authentication-related routes.  Session-less
// operations (register, login, refresh) live under /v1/auth; logout and
// /v1/me need a valid access token, checked by authMW.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authMW echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token: the old one is revoked.
	g.POST("/refresh", a.Refresh)
	// Logout revokes the refresh token in the body, or all of the caller's
	// tokens when none is given.
	g.POST("/logout", a.Logout, authMW)

	e.GET("/v1/me", a.Me, authMW)
}
