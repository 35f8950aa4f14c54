package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/lib/sl"
	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/queue"
	"github.com/iliyamo/scholrhub/internal/service"
)

// requestTimeout bounds every database round trip started by a handler.
const requestTimeout = 5 * time.Second

// CachePurger drops cached GET responses for a namespace.  A nil
// *middleware.ResponseCache satisfies it and does nothing.
type CachePurger interface {
	Purge(ctx context.Context, ns string) error
}

// EventPublisher announces moderation decisions.  A nil *queue.Publisher
// satisfies it and does nothing.
type EventPublisher interface {
	PublishModerated(ctx context.Context, ev queue.ResourceModeratedEvent) error
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// actor returns the caller placed on the context by JWTAuth.
func actor(c echo.Context) (service.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: middleware.Role(c)}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

// validationFailed renders a ValidationError with its field detail.
func validationFailed(c echo.Context, verr *service.ValidationError) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":  verr.Error(),
		"fields": verr.Fields,
	})
}

func invalid(c echo.Context, fields ...service.FieldError) error {
	return validationFailed(c, &service.ValidationError{Fields: fields})
}

// failure maps service errors to responses.  Anything that is not a
// validation or not-found error is logged and rendered as msg with 500,
// so collaborator detail never reaches the client.
func failure(c echo.Context, log *slog.Logger, err error, msg string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationFailed(c, verr)
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if log != nil {
		log.Error(msg, sl.Err(err), slog.String("path", c.Path()))
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// purge drops a cache namespace; failures only cost freshness.
func purge(ctx context.Context, cache CachePurger, log *slog.Logger, ns string) {
	if cache == nil {
		return
	}
	if err := cache.Purge(ctx, ns); err != nil && log != nil {
		log.Warn("cache purge failed", slog.String("namespace", ns), sl.Err(err))
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return sl.Discard()
	}
	return l
}
