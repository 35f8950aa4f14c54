package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http" // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
    "github.com/redis/go-redis/v9"
)

// DBPinger is satisfied by *sql.DB.
type DBPinger interface {
    PingContext(ctx context.Context) error
}

// HealthHandler reports whether the service and its backing stores are
// reachable.  Redis only backs the rate limiter and the response cache,
// both of which degrade to no-ops, so a Redis outage does not fail the
// check.
type HealthHandler struct {
    DB    DBPinger
    Redis *redis.Client // nil when Redis is not configured
}

func NewHealthHandler(db DBPinger, rdb *redis.Client) *HealthHandler {
    return &HealthHandler{DB: db, Redis: rdb}
}

// Health is used by load balancers and monitoring systems.  It answers 200
// when the database responds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    body := echo.Map{"status": "ok", "db": "ok", "redis": "disabled"}
    status := http.StatusOK

    if h.DB != nil {
        if err := h.DB.PingContext(ctx); err != nil {
            body["status"], body["db"] = "degraded", "down"
            status = http.StatusServiceUnavailable
        }
    }
    if h.Redis != nil {
        body["redis"] = "ok"
        if err := h.Redis.Ping(ctx).Err(); err != nil {
            body["redis"] = "down"
        }
    }
    return c.JSON(status, body)
}
