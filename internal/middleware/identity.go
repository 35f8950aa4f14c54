package middleware

// identity.go holds the context keys set by JWTAuth and typed accessors for
// handlers and the rate limiter.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/scholrhub/internal/model"
)

const (
    ctxUserID = "user_id"
    ctxRole   = "role"
    ctxUser   = "user"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated user's role, or "" for anonymous requests.
func Role(c echo.Context) model.Role {
    s, _ := c.Get(ctxRole).(string)
    return model.Role(s)
}

// CurrentUser returns the user row loaded by JWTAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
    u, ok := c.Get(ctxUser).(model.User)
    return u, ok
}

// SetIdentity places an authenticated user on the context.  JWTAuth uses
// the same keys; tests use this to skip token handling.
func SetIdentity(c echo.Context, u model.User) {
    c.Set(ctxUserID, u.ID)
    c.Set(ctxRole, string(u.Role))
    c.Set(ctxUser, u)
}

// rateKeyUser is the user part of a rate limit key.
func rateKeyUser(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
