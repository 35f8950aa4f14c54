package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/model"
	"github.com/iliyamo/scholrhub/internal/service"
)

// Stats is implemented by *service.StatsAggregator.
type Stats interface {
	DashboardStats(ctx context.Context, userID uint64) (service.Dashboard, error)
	ActivityStats(ctx context.Context) (service.Activity, error)
	UserActivityStats(ctx context.Context, userID uint64) ([]service.DayPoint, error)
	UserSubmissions(ctx context.Context, userID uint64, limit int) ([]model.Resource, error)
}

type StatsHandler struct {
	Stats Stats
	Log   *slog.Logger
}

func NewStatsHandler(stats Stats, log *slog.Logger) *StatsHandler {
	return &StatsHandler{Stats: stats, Log: logger(log)}
}

// maxSubmissionsLimit caps ?limit= on the submissions listing.
const maxSubmissionsLimit = 100

// Dashboard returns the caller's dashboard figures.
func (h *StatsHandler) Dashboard(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Stats.DashboardStats(ctx, uid)
	if err != nil {
		return failure(c, h.Log, err, "failed to load stats")
	}
	return c.JSON(http.StatusOK, d)
}

// Activity returns the last week's upload series and recent notice count.
func (h *StatsHandler) Activity(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Stats.ActivityStats(ctx)
	if err != nil {
		return failure(c, h.Log, err, "failed to load activity")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *StatsHandler) MyActivity(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	points, err := h.Stats.UserActivityStats(ctx, uid)
	if err != nil {
		return failure(c, h.Log, err, "failed to load activity")
	}
	return c.JSON(http.StatusOK, points)
}

// MySubmissions lists the caller's uploads in any status.  ?limit= is
// optional.
func (h *StatsHandler) MySubmissions(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return invalid(c, service.FieldError{Field: "limit", Error: "must be a positive integer"})
		}
		limit = min(n, maxSubmissionsLimit)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Stats.UserSubmissions(ctx, uid, limit)
	if err != nil {
		return failure(c, h.Log, err, "failed to load submissions")
	}
	return c.JSON(http.StatusOK, items)
}
